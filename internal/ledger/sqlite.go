package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/anatolykoptev/go_titlegen/internal/pipeline"
)

// SQLite is the local ledger backend.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the ledger database at path. An empty path
// uses DefaultPath.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = DefaultPath()
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("ledger: mkdir %s: %w", dir, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSQLiteSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: init schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func initSQLiteSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS outcomes (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id     TEXT NOT NULL,
		pipeline   TEXT NOT NULL,
		identifier TEXT NOT NULL,
		status     TEXT NOT NULL,
		reason     TEXT,
		elapsed_ms INTEGER NOT NULL DEFAULT 0,
		at         TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS outcomes_run_idx ON outcomes(run_id)`)
	return err
}

func (s *SQLite) Record(ctx context.Context, e Entry) error {
	if err := checkEntry(e); err != nil {
		return err
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outcomes (run_id, pipeline, identifier, status, reason, elapsed_ms, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Pipeline, e.Identifier, e.Status, e.Reason, e.ElapsedMS, e.At.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("ledger: insert: %w", err)
	}
	return nil
}

func (s *SQLite) Summary(ctx context.Context, runID string) (pipeline.Stats, error) {
	var st pipeline.Stats
	if runID == "" {
		return st, errNoRunID
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM outcomes WHERE run_id = ? GROUP BY status`, runID)
	if err != nil {
		return st, fmt.Errorf("ledger: summary: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return st, err
		}
		addStatus(&st, status, n)
	}
	return st, rows.Err()
}

func (s *SQLite) Problems(ctx context.Context, runID string) ([]Entry, error) {
	if runID == "" {
		return nil, errNoRunID
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, pipeline, identifier, status, COALESCE(reason, ''), elapsed_ms, at
		 FROM outcomes WHERE run_id = ? AND status != ? ORDER BY id`,
		runID, pipeline.KindSuccess.String())
	if err != nil {
		return nil, fmt.Errorf("ledger: problems: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.RunID, &e.Pipeline, &e.Identifier, &e.Status, &e.Reason, &e.ElapsedMS, &at); err != nil {
			return nil, err
		}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
