package pipeline

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"adsales/ml"
)

// ValidatedTable is an input table confirmed to hold every schema column,
// projected to exactly those columns in schema order.
type ValidatedTable struct {
	columns []string
	cells   [][]string
}

// Validate checks table against schema. The index column is ignored. When
// any schema column is absent the result is a *MissingColumnsError naming
// the absent columns in schema order.
func Validate(table *Table, schema *ml.FeatureSchema) (*ValidatedTable, error) {
	names := schema.Names()
	positions := make([]int, len(names))
	var missing []string
	for i, name := range names {
		idx := -1
		if name != IndexColumn {
			idx = table.ColumnIndex(name)
		}
		if idx < 0 {
			missing = append(missing, name)
			continue
		}
		positions[i] = idx
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing}
	}

	cells := make([][]string, len(table.Rows))
	for r, row := range table.Rows {
		projected := make([]string, len(positions))
		for c, idx := range positions {
			if idx < len(row) {
				projected[c] = row[idx]
			}
		}
		cells[r] = projected
	}
	return &ValidatedTable{columns: names, cells: cells}, nil
}

// Columns returns the feature column names in schema order.
func (v *ValidatedTable) Columns() []string {
	return append([]string(nil), v.columns...)
}

func (v *ValidatedTable) Len() int {
	return len(v.cells)
}

// Matrix parses every cell as a finite float64. The first cell that fails
// is reported as a *PredictionError.
func (v *ValidatedTable) Matrix() ([][]float64, error) {
	matrix := make([][]float64, len(v.cells))
	for r, row := range v.cells {
		values := make([]float64, len(row))
		for c, cell := range row {
			x, err := parseCell(cell)
			if err != nil {
				return nil, &PredictionError{Row: r, Column: v.columns[c], Value: cell, Err: err}
			}
			values[c] = x
		}
		matrix[r] = values
	}
	return matrix, nil
}

var errNotFinite = errors.New("value is not finite")

func parseCell(cell string) (float64, error) {
	x, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, errNotFinite
	}
	return x, nil
}
