package telemetry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Recorder persists pipeline counters and audit events to a local SQLite
// database. Recording is best-effort; callers are expected to ignore errors.
type Recorder struct {
	db *sql.DB
}

// NewRecorder creates/opens the telemetry database at path.
func NewRecorder(path string) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create telemetry dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry db: %w", err)
	}
	// Single-process recorder. One shared connection avoids writer lock
	// contention under SQLite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	rec := &Recorder{db: db}
	if err := rec.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return rec, nil
}

func (r *Recorder) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS metrics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			metric TEXT NOT NULL,
			value REAL NOT NULL,
			labels TEXT NOT NULL DEFAULT '{}',
			created_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_metrics_name_time ON metrics(metric, created_at_ms);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("init telemetry schema: %w", err)
		}
	}
	return nil
}

func (r *Recorder) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Record stores one metric sample with optional labels.
func (r *Recorder) Record(ctx context.Context, metric string, value float64, labels map[string]string) error {
	if r == nil || r.db == nil {
		return nil
	}
	if labels == nil {
		labels = map[string]string{}
	}
	labelJSON, err := json.Marshal(labels)
	if err != nil {
		return fmt.Errorf("marshal metric labels: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO metrics (metric, value, labels, created_at_ms) VALUES (?, ?, ?, ?)`,
		metric, value, string(labelJSON), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record metric %s: %w", metric, err)
	}
	return nil
}

// Count returns how many samples of a metric have been recorded, for the
// status command and tests.
func (r *Recorder) Count(ctx context.Context, metric string) (int, error) {
	if r == nil || r.db == nil {
		return 0, nil
	}
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM metrics WHERE metric = ?`, metric,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count metric %s: %w", metric, err)
	}
	return count, nil
}
