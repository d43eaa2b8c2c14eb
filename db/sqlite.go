package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Run is one prediction request as recorded in the history.
type Run struct {
	ID         int64     `json:"id"`
	Mode       string    `json:"mode"`
	Rows       int       `json:"rows"`
	Status     string    `json:"status"`
	Missing    []string  `json:"missing,omitempty"`
	Prediction *float64  `json:"prediction,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// History is an append-only sqlite log of prediction runs. Only request
// metadata is stored, never uploaded tables.
type History struct {
	db *sql.DB
}

// OpenHistory opens or creates the history database at path.
func OpenHistory(path string) (*History, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// sqlite allows a single writer
	database.SetMaxOpenConns(1)

	query := `
    CREATE TABLE IF NOT EXISTS prediction_runs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        mode VARCHAR(10) NOT NULL,
        row_count INTEGER NOT NULL,
        status VARCHAR(20) NOT NULL,
        missing TEXT DEFAULT '',
        prediction REAL,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_prediction_runs_created ON prediction_runs(created_at);
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, fmt.Errorf("create history tables: %w", err)
	}
	return &History{db: database}, nil
}

// RecordRun appends run and returns its id. CreatedAt defaults to now.
func (h *History) RecordRun(ctx context.Context, run Run) (int64, error) {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	var prediction sql.NullFloat64
	if run.Prediction != nil {
		prediction = sql.NullFloat64{Float64: *run.Prediction, Valid: true}
	}
	res, err := h.db.ExecContext(ctx,
		`INSERT INTO prediction_runs (mode, row_count, status, missing, prediction, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.Mode, run.Rows, run.Status, strings.Join(run.Missing, ","), prediction, run.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("record run: %w", err)
	}
	return res.LastInsertId()
}

// RecentRuns returns up to limit runs, newest first.
func (h *History) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, mode, row_count, status, missing, prediction, created_at FROM prediction_runs ORDER BY id DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0, limit)
	for rows.Next() {
		var run Run
		var missing string
		var prediction sql.NullFloat64
		if err := rows.Scan(&run.ID, &run.Mode, &run.Rows, &run.Status, &missing, &prediction, &run.CreatedAt); err != nil {
			return nil, err
		}
		if missing != "" {
			run.Missing = strings.Split(missing, ",")
		}
		if prediction.Valid {
			v := prediction.Float64
			run.Prediction = &v
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (h *History) Close() error {
	return h.db.Close()
}
