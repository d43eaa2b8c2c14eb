package pipeline

import (
	"fmt"
	"strconv"
)

const (
	// IndexColumn is the row-label column left behind when a dataframe is
	// written with its index. It is never a feature.
	IndexColumn = "Unnamed: 0"
	// PredictionColumn holds the predictor output in batch results.
	PredictionColumn = "Predicted_Sales"
)

// Table is a schema-less table of named columns with string cells, as
// received from a user.
type Table struct {
	Columns []string
	Rows    [][]string
}

// NewTable checks that every row is as wide as the header.
func NewTable(columns []string, rows [][]string) (*Table, error) {
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, header has %d columns", i, len(row), len(columns))
		}
	}
	return &Table{Columns: columns, Rows: rows}, nil
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

// withFloatColumn returns a copy of t with name set to values, replacing an
// existing column of that name or appending a new one.
func (t *Table) withFloatColumn(name string, values []float64) *Table {
	out := t.Clone()
	idx := out.ColumnIndex(name)
	if idx < 0 {
		out.Columns = append(out.Columns, name)
	}
	for i, row := range out.Rows {
		cell := formatCell(values[i])
		if idx < 0 {
			out.Rows[i] = append(row, cell)
		} else {
			row[idx] = cell
		}
	}
	return out
}

func formatCell(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatPrediction renders a prediction for display with two decimals. The
// value itself is not rounded.
func FormatPrediction(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
