package ml

import (
	"errors"
	"fmt"
)

const KindRandomForest = "random_forest"

// RandomForest averages the outputs of its regression trees.
type RandomForest struct {
	trees []*DecisionTree
}

func NewRandomForest(trees [][]TreeNode) (*RandomForest, error) {
	if len(trees) == 0 {
		return nil, errors.New("forest has no trees")
	}
	rf := &RandomForest{trees: make([]*DecisionTree, 0, len(trees))}
	for i, nodes := range trees {
		tree, err := NewDecisionTree(nodes)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		rf.trees = append(rf.trees, tree)
	}
	return rf, nil
}

func (rf *RandomForest) Kind() string {
	return KindRandomForest
}

func (rf *RandomForest) Predict(rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for _, tree := range rf.trees {
		preds, err := tree.Predict(rows)
		if err != nil {
			return nil, err
		}
		for i, p := range preds {
			out[i] += p
		}
	}
	n := float64(len(rf.trees))
	for i := range out {
		out[i] /= n
	}
	return out, nil
}

func (rf *RandomForest) checkWidth(numFeatures int) error {
	for i, tree := range rf.trees {
		if err := tree.checkWidth(numFeatures); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}
