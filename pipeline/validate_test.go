package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adsales/ml"
)

// recordingPredictor returns sum(row) per row and keeps what it was given.
type recordingPredictor struct {
	calls [][][]float64
	err   error
}

func (p *recordingPredictor) Kind() string { return "recording" }

func (p *recordingPredictor) Predict(rows [][]float64) ([]float64, error) {
	p.calls = append(p.calls, rows)
	if p.err != nil {
		return nil, p.err
	}
	out := make([]float64, len(rows))
	for i, row := range rows {
		for _, x := range row {
			out[i] += x
		}
	}
	return out, nil
}

func advertisingSchema(t *testing.T) *ml.FeatureSchema {
	t.Helper()
	schema, err := ml.NewFeatureSchema([]string{"TV", "Radio", "Newspaper"})
	require.NoError(t, err)
	return schema
}

func TestValidateProjectsSchemaOrder(t *testing.T) {
	table := &Table{
		Columns: []string{"Unnamed: 0", "Newspaper", "Store", "TV", "Radio"},
		Rows:    [][]string{{"0", "5", "north", "100", "20"}},
	}

	validated, err := Validate(table, advertisingSchema(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"TV", "Radio", "Newspaper"}, validated.Columns())
	assert.Equal(t, 1, validated.Len())

	matrix, err := validated.Matrix()
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{100, 20, 5}}, matrix)
}

func TestValidateIndexColumnScenario(t *testing.T) {
	table := &Table{
		Columns: []string{"Unnamed: 0", "Radio", "TV", "Newspaper"},
		Rows:    [][]string{{"0", "20.0", "100.0", "5.0"}},
	}
	predictor := &recordingPredictor{}
	svc := NewService(&ml.Artifacts{Predictor: predictor, Schema: advertisingSchema(t)}, nil, nil)

	out, err := svc.PredictBatch(table)
	require.NoError(t, err)

	require.Len(t, predictor.calls, 1)
	assert.Equal(t, [][]float64{{100, 20, 5}}, predictor.calls[0])
	assert.Equal(t, []string{"Unnamed: 0", "Radio", "TV", "Newspaper", PredictionColumn}, out.Table.Columns)
	assert.Equal(t, []string{"0", "20.0", "100.0", "5.0", "125"}, out.Table.Rows[0])
}

func TestValidateMissingColumns(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		missing []string
	}{
		{name: "one missing", columns: []string{"Unnamed: 0", "TV", "Radio"}, missing: []string{"Newspaper"}},
		{name: "reported in schema order", columns: []string{"Radio"}, missing: []string{"TV", "Newspaper"}},
		{name: "names are case sensitive", columns: []string{"tv", "Radio", "Newspaper"}, missing: []string{"TV"}},
		{name: "only the index column", columns: []string{"Unnamed: 0"}, missing: []string{"TV", "Radio", "Newspaper"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := make([]string, len(tt.columns))
			validated, err := Validate(&Table{Columns: tt.columns, Rows: [][]string{row}}, advertisingSchema(t))
			assert.Nil(t, validated)

			var missing *MissingColumnsError
			require.True(t, errors.As(err, &missing), "got %v", err)
			assert.Equal(t, tt.missing, missing.Missing)
			assert.Equal(t, StatusMissingColumns, Status(err))
		})
	}
}

func TestValidateIndexColumnIsNeverAFeature(t *testing.T) {
	schema, err := ml.NewFeatureSchema([]string{"Unnamed: 0", "TV"})
	require.NoError(t, err)

	_, err = Validate(&Table{Columns: []string{"Unnamed: 0", "TV"}, Rows: [][]string{{"0", "1"}}}, schema)

	var missing *MissingColumnsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"Unnamed: 0"}, missing.Missing)
}

func TestValidateIgnoresIndexColumnPresence(t *testing.T) {
	schema := advertisingSchema(t)
	with := &Table{
		Columns: []string{"Unnamed: 0", "TV", "Radio", "Newspaper"},
		Rows:    [][]string{{"7", "1", "2", "3"}, {"8", "4", "5", "6"}},
	}
	without := &Table{
		Columns: []string{"TV", "Radio", "Newspaper"},
		Rows:    [][]string{{"1", "2", "3"}, {"4", "5", "6"}},
	}

	a, err := Validate(with, schema)
	require.NoError(t, err)
	b, err := Validate(without, schema)
	require.NoError(t, err)

	ma, err := a.Matrix()
	require.NoError(t, err)
	mb, err := b.Matrix()
	require.NoError(t, err)
	assert.Equal(t, mb, ma)
}

func TestMatrixReportsFailingCell(t *testing.T) {
	tests := []struct {
		name  string
		cell  string
		want  float64
		fails bool
	}{
		{name: "integer", cell: "100", want: 100},
		{name: "padded", cell: " 2.5 ", want: 2.5},
		{name: "exponent", cell: "1e3", want: 1000},
		{name: "empty", cell: "", fails: true},
		{name: "text", cell: "lots", fails: true},
		{name: "NaN", cell: "NaN", fails: true},
		{name: "infinity", cell: "+Inf", fails: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := &Table{
				Columns: []string{"TV", "Radio", "Newspaper"},
				Rows:    [][]string{{"1", "2", "3"}, {"4", tt.cell, "6"}},
			}
			validated, err := Validate(table, advertisingSchema(t))
			require.NoError(t, err)

			matrix, err := validated.Matrix()
			if !tt.fails {
				require.NoError(t, err)
				assert.Equal(t, tt.want, matrix[1][1])
				return
			}
			var predErr *PredictionError
			require.True(t, errors.As(err, &predErr), "got %v", err)
			assert.Equal(t, 1, predErr.Row)
			assert.Equal(t, "Radio", predErr.Column)
			assert.Equal(t, tt.cell, predErr.Value)
			assert.Nil(t, matrix)
		})
	}
}
