package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"adsales/ml"
)

// ManualRecord is one row of feature values entered by hand, in schema
// order. Features left unset default to 0.0.
type ManualRecord struct {
	columns   []string
	values    []float64
	defaulted []string
}

// NewManualRecord builds a record from values keyed by feature name. Names
// outside the schema are rejected with ErrUnknownFeature.
func NewManualRecord(schema *ml.FeatureSchema, values map[string]float64) (*ManualRecord, error) {
	var unknown []string
	for name := range values {
		if _, ok := schema.Index(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeature, strings.Join(unknown, ", "))
	}

	rec := &ManualRecord{columns: schema.Names()}
	rec.values = make([]float64, len(rec.columns))
	for i, name := range rec.columns {
		v, ok := values[name]
		if !ok {
			rec.defaulted = append(rec.defaulted, name)
		}
		rec.values[i] = v
	}
	return rec, nil
}

// Values returns the feature values in schema order.
func (r *ManualRecord) Values() []float64 {
	return append([]float64(nil), r.values...)
}

// Defaulted lists the features that were not supplied and took 0.0.
func (r *ManualRecord) Defaulted() []string {
	return append([]string(nil), r.defaulted...)
}

// Table renders the record as a one-row table. Cells round-trip exactly.
func (r *ManualRecord) Table() *Table {
	row := make([]string, len(r.values))
	for i, v := range r.values {
		row[i] = formatCell(v)
	}
	return &Table{Columns: append([]string(nil), r.columns...), Rows: [][]string{row}}
}
