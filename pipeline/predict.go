package pipeline

import (
	"fmt"
	"math"

	"adsales/ml"
)

// Predict runs predictor over a validated table and returns one value per
// row, in row order. It fails as a whole or not at all.
func Predict(predictor ml.Predictor, validated *ValidatedTable) ([]float64, error) {
	matrix, err := validated.Matrix()
	if err != nil {
		return nil, err
	}
	if len(matrix) == 0 {
		return []float64{}, nil
	}

	preds, err := predictor.Predict(matrix)
	if err != nil {
		return nil, &PredictionError{Row: -1, Err: err}
	}
	if len(preds) != len(matrix) {
		return nil, &PredictionError{Row: -1, Err: fmt.Errorf("predictor returned %d values for %d rows", len(preds), len(matrix))}
	}
	for i, p := range preds {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, &PredictionError{Row: i, Err: fmt.Errorf("predictor output %v: %w", p, errNotFinite)}
		}
	}
	return preds, nil
}
