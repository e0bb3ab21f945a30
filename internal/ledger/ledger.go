// Package ledger records the outcome of every item of every pipeline run, so
// the reasons behind skips and failures survive after the aggregate output
// has dropped them.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/anatolykoptev/go_titlegen/internal/pipeline"
)

// Entry is one recorded item outcome.
type Entry struct {
	RunID      string    `json:"run_id"`
	Pipeline   string    `json:"pipeline"`
	Identifier string    `json:"identifier"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	ElapsedMS  int64     `json:"elapsed_ms"`
	At         time.Time `json:"at"`
}

// Store persists entries.
type Store interface {
	Record(ctx context.Context, e Entry) error
	// Summary returns per-status counts for a run.
	Summary(ctx context.Context, runID string) (pipeline.Stats, error)
	// Problems lists the skipped and failed entries of a run.
	Problems(ctx context.Context, runID string) ([]Entry, error)
	Close() error
}

var errNoRunID = errors.New("ledger: run id is required")

// NewRunID returns a time-ordered run identifier.
func NewRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// DefaultPath is $HOME/.go_titlegen/ledger.db.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".go_titlegen", "ledger.db")
}

// Open picks Postgres when databaseURL is set and SQLite at sqlitePath
// otherwise.
func Open(ctx context.Context, databaseURL, sqlitePath string) (Store, error) {
	if databaseURL != "" {
		pg, err := ConnectPostgres(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	lite, err := OpenSQLite(sqlitePath)
	if err != nil {
		return nil, err
	}
	return lite, nil
}

// FromOutcome builds the entry for one outcome.
func FromOutcome[T any](runID, pipelineName string, o pipeline.Outcome[T]) Entry {
	return Entry{
		RunID:      runID,
		Pipeline:   pipelineName,
		Identifier: o.ID,
		Status:     o.Kind.String(),
		Reason:     o.Reason,
		ElapsedMS:  o.Elapsed.Milliseconds(),
		At:         time.Now().UTC(),
	}
}

// Observer records every outcome of a run into s. Write errors are logged
// and never affect the run.
func Observer[T any](ctx context.Context, s Store, runID, pipelineName string) pipeline.Observer[T] {
	// Outcomes drained after an interrupt still belong in the ledger.
	ctx = context.WithoutCancel(ctx)
	return func(o pipeline.Outcome[T]) {
		if s == nil {
			return
		}
		if err := s.Record(ctx, FromOutcome(runID, pipelineName, o)); err != nil {
			slog.Warn("ledger: record failed",
				slog.String("run_id", runID),
				slog.String("identifier", o.ID),
				slog.Any("error", err))
		}
	}
}

func addStatus(st *pipeline.Stats, status string, n int) {
	st.Requested += n
	switch status {
	case pipeline.KindSuccess.String():
		st.Succeeded += n
	case pipeline.KindSkipped.String():
		st.Skipped += n
	default:
		st.Failed += n
	}
}

func checkEntry(e Entry) error {
	if e.RunID == "" {
		return errNoRunID
	}
	if e.Identifier == "" {
		return fmt.Errorf("ledger: run %s: identifier is required", e.RunID)
	}
	return nil
}
