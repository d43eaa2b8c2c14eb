package ml

import (
	"errors"
	"fmt"
	"math"
)

const KindLinear = "linear"

// LinearRegression predicts intercept + Σ coefficients[i]·x[i].
type LinearRegression struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

func (m *LinearRegression) Kind() string {
	return KindLinear
}

func (m *LinearRegression) Predict(rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(m.Coefficients) {
			return nil, fmt.Errorf("row %d: expected %d features, got %d", i, len(m.Coefficients), len(row))
		}
		y := m.Intercept
		for j, x := range row {
			y += m.Coefficients[j] * x
		}
		out[i] = y
	}
	return out, nil
}

func (m *LinearRegression) validate() error {
	if len(m.Coefficients) == 0 {
		return errors.New("linear model has no coefficients")
	}
	if math.IsNaN(m.Intercept) || math.IsInf(m.Intercept, 0) {
		return errors.New("linear model intercept is not finite")
	}
	for i, c := range m.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("linear model coefficient %d is not finite", i)
		}
	}
	return nil
}

func (m *LinearRegression) checkWidth(numFeatures int) error {
	if len(m.Coefficients) != numFeatures {
		return fmt.Errorf("model has %d coefficients, schema lists %d features", len(m.Coefficients), numFeatures)
	}
	return nil
}
