package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryRecordAndList(t *testing.T) {
	history, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer history.Close()

	ctx := context.Background()
	_, err = history.RecordRun(ctx, Run{Mode: "batch", Rows: 200, Status: "ok"})
	require.NoError(t, err)
	_, err = history.RecordRun(ctx, Run{Mode: "batch", Rows: 3, Status: "missing_columns", Missing: []string{"Radio", "Newspaper"}})
	require.NoError(t, err)
	prediction := 17.0342
	id, err := history.RecordRun(ctx, Run{Mode: "single", Rows: 1, Status: "ok", Prediction: &prediction})
	require.NoError(t, err)

	runs, err := history.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, "single", runs[0].Mode)
	require.NotNil(t, runs[0].Prediction)
	assert.Equal(t, prediction, *runs[0].Prediction)
	assert.False(t, runs[0].CreatedAt.IsZero())

	assert.Equal(t, []string{"Radio", "Newspaper"}, runs[1].Missing)
	assert.Nil(t, runs[1].Prediction)
}

func TestHistoryRejectsBadLimit(t *testing.T) {
	history, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer history.Close()

	_, err = history.RecentRuns(context.Background(), 0)
	assert.Error(t, err)
}

func TestOpenHistoryCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "nested", "history.db")

	history, err := OpenHistory(path)
	require.NoError(t, err)
	require.NoError(t, history.Close())

	assert.FileExists(t, path)
}
