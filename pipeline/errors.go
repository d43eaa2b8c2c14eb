package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedCSV wraps every failure to decode an uploaded table.
	ErrMalformedCSV = errors.New("malformed csv")
	// ErrUnknownFeature is returned for manual values naming no schema feature.
	ErrUnknownFeature = errors.New("unknown feature")
)

// MissingColumnsError lists schema columns absent from an input table, in
// schema order.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// PredictionError is a per-request inference failure. Row and Column are
// set when a single cell is at fault; Row is -1 otherwise.
type PredictionError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *PredictionError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("prediction failed: row %d column %q value %q: %v", e.Row, e.Column, e.Value, e.Err)
	}
	return fmt.Sprintf("prediction failed: %v", e.Err)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

const (
	StatusOK             = "ok"
	StatusMissingColumns = "missing_columns"
	StatusPredictionFail = "prediction_error"
	StatusBadInput       = "bad_input"
)

// Status classifies err for metrics and run history.
func Status(err error) string {
	var missing *MissingColumnsError
	var predErr *PredictionError
	switch {
	case err == nil:
		return StatusOK
	case errors.As(err, &missing):
		return StatusMissingColumns
	case errors.As(err, &predErr):
		return StatusPredictionFail
	default:
		return StatusBadInput
	}
}
