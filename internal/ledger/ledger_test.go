package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_titlegen/internal/pipeline"
)

func openTemp(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewRunIDIsV7(t *testing.T) {
	id, err := uuid.Parse(NewRunID())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.NotEqual(t, NewRunID(), NewRunID())
}

func TestDefaultPathUsesHome(t *testing.T) {
	t.Setenv("HOME", "/tmp/someone")
	assert.Equal(t, "/tmp/someone/.go_titlegen/ledger.db", DefaultPath())
}

func TestOpenSQLiteDefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	s, err := Open(context.Background(), "", "")
	require.NoError(t, err)
	defer s.Close()
	_, err = os.Stat(filepath.Join(home, ".go_titlegen", "ledger.db"))
	assert.NoError(t, err)
}

func TestRecordAndSummary(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	run := NewRunID()

	for _, e := range []Entry{
		{RunID: run, Pipeline: "fetch", Identifier: "a", Status: "success"},
		{RunID: run, Pipeline: "fetch", Identifier: "b", Status: "skipped", Reason: "transcripts disabled"},
		{RunID: run, Pipeline: "fetch", Identifier: "c", Status: "failed", Reason: "timeout"},
		{RunID: run, Pipeline: "fetch", Identifier: "d", Status: "success"},
		{RunID: "other", Pipeline: "fetch", Identifier: "z", Status: "failed"},
	} {
		require.NoError(t, s.Record(ctx, e))
	}

	st, err := s.Summary(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, pipeline.Stats{Requested: 4, Succeeded: 2, Skipped: 1, Failed: 1}, st)

	probs, err := s.Problems(ctx, run)
	require.NoError(t, err)
	require.Len(t, probs, 2)
	assert.Equal(t, "b", probs[0].Identifier)
	assert.Equal(t, "transcripts disabled", probs[0].Reason)
	assert.Equal(t, "c", probs[1].Identifier)
	assert.False(t, probs[1].At.IsZero())
}

func TestRecordValidation(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	assert.ErrorIs(t, s.Record(ctx, Entry{Identifier: "x"}), errNoRunID)
	assert.Error(t, s.Record(ctx, Entry{RunID: "r"}))

	_, err := s.Summary(ctx, "")
	assert.ErrorIs(t, err, errNoRunID)
}

func TestSummaryUnknownRun(t *testing.T) {
	st, err := openTemp(t).Summary(context.Background(), "nope")
	require.NoError(t, err)
	assert.Zero(t, st)
}

func TestObserverRecordsEveryOutcome(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	run := NewRunID()

	worker := func(_ context.Context, id string) pipeline.Outcome[string] {
		switch id {
		case "skip":
			return pipeline.Skip[string](id, "no transcript")
		case "fail":
			return pipeline.Fail[string](id, errors.New("boom"))
		}
		return pipeline.Succeed(id, id)
	}
	out, stats := pipeline.Execute(ctx, []string{"a", "skip", "fail", "b"}, worker,
		pipeline.Options{Workers: 2}, Observer[string](ctx, s, run, "test"))
	assert.Len(t, out, 2)

	st, err := s.Summary(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, stats, st)

	probs, err := s.Problems(ctx, run)
	require.NoError(t, err)
	require.Len(t, probs, 2)
	for _, p := range probs {
		assert.Equal(t, "test", p.Pipeline)
		switch p.Identifier {
		case "skip":
			assert.Equal(t, "skipped", p.Status)
			assert.Equal(t, "no transcript", p.Reason)
		case "fail":
			assert.Equal(t, "failed", p.Status)
			assert.Equal(t, "boom", p.Reason)
		default:
			t.Errorf("unexpected problem entry %q", p.Identifier)
		}
	}
}

func TestObserverRecordsAfterCancel(t *testing.T) {
	s := openTemp(t)
	run := NewRunID()

	ctx, cancel := context.WithCancel(context.Background())
	obs := Observer[int](ctx, s, run, "test")
	cancel()
	obs(pipeline.Fail[int]("late", context.Canceled))

	st, err := s.Summary(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, pipeline.Stats{Requested: 1, Failed: 1}, st)
}

func TestOpenErrorReturnsNilStore(t *testing.T) {
	s, err := Open(context.Background(), "://not a url", "")
	require.Error(t, err)
	assert.True(t, s == nil, "store must be an untyped nil, got %#v", s)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	s, err = Open(context.Background(), "", filepath.Join(blocker, "ledger.db"))
	require.Error(t, err)
	assert.True(t, s == nil, "store must be an untyped nil, got %#v", s)
}

func TestObserverNilStore(t *testing.T) {
	obs := Observer[int](context.Background(), nil, "r", "p")
	assert.NotPanics(t, func() { obs(pipeline.Succeed("x", 1)) })
}

func TestPostgres(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	p, err := ConnectPostgres(ctx, url)
	require.NoError(t, err)
	defer p.Close()

	run := NewRunID()
	require.NoError(t, p.Record(ctx, Entry{RunID: run, Pipeline: "fetch", Identifier: "a", Status: "success"}))
	require.NoError(t, p.Record(ctx, Entry{RunID: run, Pipeline: "fetch", Identifier: "b", Status: "failed", Reason: "x"}))

	st, err := p.Summary(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, pipeline.Stats{Requested: 2, Succeeded: 1, Failed: 1}, st)

	probs, err := p.Problems(ctx, run)
	require.NoError(t, err)
	require.Len(t, probs, 1)
	assert.Equal(t, "x", probs[0].Reason)
}

func TestConnectPostgresRequiresURL(t *testing.T) {
	_, err := ConnectPostgres(context.Background(), "")
	assert.Error(t, err)
}
