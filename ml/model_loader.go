package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// modelFile is the on-disk predictor artifact. Only the fields relevant to
// Kind are read.
type modelFile struct {
	Kind         string       `json:"kind"`
	Intercept    float64      `json:"intercept"`
	Coefficients []float64    `json:"coefficients"`
	Nodes        []TreeNode   `json:"nodes"`
	Trees        [][]TreeNode `json:"trees"`
}

// LoadModel decodes a predictor artifact.
func LoadModel(path string) (Predictor, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file modelFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}

	switch file.Kind {
	case KindLinear:
		model := &LinearRegression{Intercept: file.Intercept, Coefficients: file.Coefficients}
		if err := model.validate(); err != nil {
			return nil, err
		}
		return model, nil
	case KindDecisionTree:
		tree, err := NewDecisionTree(file.Nodes)
		if err != nil {
			return nil, err
		}
		return tree, nil
	case KindRandomForest:
		forest, err := NewRandomForest(file.Trees)
		if err != nil {
			return nil, err
		}
		return forest, nil
	case "":
		return nil, errors.New("model kind is missing")
	default:
		return nil, fmt.Errorf("unsupported model kind %q", file.Kind)
	}
}

// Loader reads the predictor and schema once and hands the same Artifacts
// to every caller. Concurrent first calls perform a single load.
type Loader struct {
	modelPath  string
	schemaPath string

	once      sync.Once
	artifacts *Artifacts
	err       error
}

func NewLoader(modelPath, schemaPath string) *Loader {
	return &Loader{modelPath: modelPath, schemaPath: schemaPath}
}

// Load returns the cached artifacts, reading storage on the first call only.
// A failed first load is cached as well.
func (l *Loader) Load() (*Artifacts, error) {
	l.once.Do(func() {
		l.artifacts, l.err = l.load()
	})
	return l.artifacts, l.err
}

func (l *Loader) ModelPath() string {
	return l.modelPath
}

func (l *Loader) SchemaPath() string {
	return l.schemaPath
}

func (l *Loader) load() (*Artifacts, error) {
	schema, err := LoadSchema(l.schemaPath)
	if err != nil {
		return nil, &ArtifactLoadError{Resource: ResourceSchema, Path: l.schemaPath, Err: err}
	}
	predictor, err := LoadModel(l.modelPath)
	if err != nil {
		return nil, &ArtifactLoadError{Resource: ResourceModel, Path: l.modelPath, Err: err}
	}
	if wc, ok := predictor.(widthChecker); ok {
		if err := wc.checkWidth(schema.Len()); err != nil {
			return nil, &ArtifactLoadError{Resource: ResourceModel, Path: l.modelPath, Err: err}
		}
	}
	return &Artifacts{Predictor: predictor, Schema: schema}, nil
}
