package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anatolykoptev/go_titlegen/internal/pipeline"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS titlegen_outcomes (
	id         BIGSERIAL PRIMARY KEY,
	run_id     TEXT NOT NULL,
	pipeline   TEXT NOT NULL,
	identifier TEXT NOT NULL,
	status     TEXT NOT NULL,
	reason     TEXT NOT NULL DEFAULT '',
	elapsed_ms BIGINT NOT NULL DEFAULT 0,
	at         TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS titlegen_outcomes_run_idx ON titlegen_outcomes(run_id)`

// Postgres is the shared ledger backend, used when DATABASE_URL is set.
type Postgres struct {
	pool *pgxpool.Pool
}

// ConnectPostgres creates a pgx pool and ensures the schema exists.
func ConnectPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ledger: init schema: %w", err)
	}

	slog.Info("ledger postgres connected", slog.String("addr", config.ConnConfig.Host))
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Record(ctx context.Context, e Entry) error {
	if err := checkEntry(e); err != nil {
		return err
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO titlegen_outcomes (run_id, pipeline, identifier, status, reason, elapsed_ms, at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.RunID, e.Pipeline, e.Identifier, e.Status, e.Reason, e.ElapsedMS, e.At)
	if err != nil {
		return fmt.Errorf("ledger: insert: %w", err)
	}
	return nil
}

func (p *Postgres) Summary(ctx context.Context, runID string) (pipeline.Stats, error) {
	var st pipeline.Stats
	if runID == "" {
		return st, errNoRunID
	}
	rows, err := p.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM titlegen_outcomes WHERE run_id = $1 GROUP BY status`, runID)
	if err != nil {
		return st, fmt.Errorf("ledger: summary: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return st, err
		}
		addStatus(&st, status, int(n))
	}
	return st, rows.Err()
}

func (p *Postgres) Problems(ctx context.Context, runID string) ([]Entry, error) {
	if runID == "" {
		return nil, errNoRunID
	}
	rows, err := p.pool.Query(ctx,
		`SELECT run_id, pipeline, identifier, status, reason, elapsed_ms, at
		 FROM titlegen_outcomes WHERE run_id = $1 AND status <> $2 ORDER BY id`,
		runID, pipeline.KindSuccess.String())
	if err != nil {
		return nil, fmt.Errorf("ledger: problems: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.RunID, &e.Pipeline, &e.Identifier, &e.Status, &e.Reason, &e.ElapsedMS, &e.At); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
