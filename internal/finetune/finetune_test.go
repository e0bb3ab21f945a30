package finetune

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_titlegen/internal/dataset"
	"github.com/anatolykoptev/go_titlegen/internal/engine"
)

func record(i int) dataset.VideoRecord {
	return dataset.VideoRecord{
		URL:            fmt.Sprintf("https://youtu.be/%011d", i),
		VideoID:        fmt.Sprintf("%011d", i),
		Title:          fmt.Sprintf("  Video number %d explained  ", i),
		FullTranscript: "  " + strings.Repeat("word ", 60) + "  ",
	}
}

func TestValid(t *testing.T) {
	ok := record(1)
	tests := []struct {
		name string
		mut  func(*dataset.VideoRecord)
		want bool
	}{
		{"valid", func(*dataset.VideoRecord) {}, true},
		{"short transcript", func(r *dataset.VideoRecord) { r.FullTranscript = strings.Repeat("a", 199) }, false},
		{"padding does not count", func(r *dataset.VideoRecord) { r.FullTranscript = "   " + strings.Repeat("a", 199) + "   " }, false},
		{"long transcript", func(r *dataset.VideoRecord) { r.FullTranscript = strings.Repeat("a", 50001) }, false},
		{"max transcript", func(r *dataset.VideoRecord) { r.FullTranscript = strings.Repeat("a", 50000) }, true},
		{"short title", func(r *dataset.VideoRecord) { r.Title = "Too short" }, false},
		{"long title", func(r *dataset.VideoRecord) { r.Title = strings.Repeat("t", 101) }, false},
		{"multibyte title counts runes", func(r *dataset.VideoRecord) { r.Title = strings.Repeat("é", 100) }, true},
		{"empty title", func(r *dataset.VideoRecord) { r.Title = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ok
			tt.mut(&r)
			assert.Equal(t, tt.want, Valid(r))
		})
	}
}

func TestPrepareWritesChatExamples(t *testing.T) {
	recs := make([]dataset.VideoRecord, 0, 30)
	for i := 0; i < 25; i++ {
		recs = append(recs, record(i))
	}
	recs = append(recs, dataset.VideoRecord{Title: "bad", FullTranscript: "short"})

	var buf bytes.Buffer
	stats, err := Prepare(recs, &buf, PrepareOptions{SampleSize: 20, Rand: rand.New(rand.NewPCG(1, 2))})
	require.NoError(t, err)
	assert.Equal(t, PrepareStats{Loaded: 26, Valid: 25, Written: 20}, stats)

	sc := bufio.NewScanner(&buf)
	sc.Buffer(make([]byte, 1<<20), 1<<20)
	lines := 0
	for sc.Scan() {
		lines++
		var ex Example
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ex))
		require.Len(t, ex.Messages, 3)
		assert.Equal(t, "system", ex.Messages[0].Role)
		assert.Equal(t, engine.TitleSystemPrompt, ex.Messages[0].Content)
		assert.Equal(t, "user", ex.Messages[1].Role)
		assert.True(t, strings.HasPrefix(ex.Messages[1].Content, "Based on the following video transcript"))
		assert.Contains(t, ex.Messages[1].Content, "Transcript:\nword word")
		assert.Equal(t, "assistant", ex.Messages[2].Role)
		assert.True(t, strings.HasPrefix(ex.Messages[2].Content, "Video number "), "title is trimmed")
	}
	assert.Equal(t, 20, lines)
}

func TestPrepareSampleIsSeedable(t *testing.T) {
	recs := make([]dataset.VideoRecord, 40)
	for i := range recs {
		recs[i] = record(i)
	}
	run := func() string {
		var buf bytes.Buffer
		_, err := Prepare(recs, &buf, PrepareOptions{SampleSize: 15, Rand: rand.New(rand.NewPCG(7, 7))})
		require.NoError(t, err)
		return buf.String()
	}
	assert.Equal(t, run(), run())
}

func TestPrepareTooFewExamples(t *testing.T) {
	recs := []dataset.VideoRecord{record(1), record(2)}
	stats, err := Prepare(recs, io.Discard, PrepareOptions{})
	assert.ErrorIs(t, err, ErrTooFewExamples)
	assert.Equal(t, 2, stats.Written)
}

func TestPrepareFileRemovesOutputOnFailure(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "training_data.json")
	out := filepath.Join(dir, DefaultJSONLName)
	require.NoError(t, dataset.SaveJSON(in, []dataset.VideoRecord{record(1)}, dataset.TranscriptsIndent))

	_, err := PrepareFile(in, out, PrepareOptions{})
	assert.ErrorIs(t, err, ErrTooFewExamples)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSampleCapsAtLength(t *testing.T) {
	recs := []dataset.VideoRecord{record(1), record(2), record(3)}
	got := Sample(recs, 800, rand.New(rand.NewPCG(1, 1)))
	assert.Len(t, got, 3)
	assert.Equal(t, "Video number 1 explained", strings.TrimSpace(recs[0].Title), "input is not reordered")
}

type fakeOpenAI struct {
	mu         sync.Mutex
	uploads    atomic.Int32
	failCreate atomic.Int32
	gotPurpose string
	gotFile    string
	gotJob     map[string]string
}

func (f *fakeOpenAI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /files", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		file, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		f.mu.Lock()
		f.gotPurpose = r.FormValue("purpose")
		f.gotFile = string(data)
		f.mu.Unlock()
		f.uploads.Add(1)
		fmt.Fprint(w, `{"id":"file-123","object":"file"}`)
	})
	mux.HandleFunc("POST /fine_tuning/jobs", func(w http.ResponseWriter, r *http.Request) {
		if f.failCreate.Load() > 0 {
			f.failCreate.Add(-1)
			http.Error(w, `{"error":"busy"}`, http.StatusServiceUnavailable)
			return
		}
		var job map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&job))
		f.mu.Lock()
		f.gotJob = job
		f.mu.Unlock()
		if job["model"] == "bad-model" {
			http.Error(w, `{"error":{"message":"model not found"}}`, http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"id":"ftjob-abc","status":"validating_files","model":"`+job["model"]+`","training_file":"file-123"}`)
	})
	mux.HandleFunc("GET /fine_tuning/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":%q,"status":"succeeded","fine_tuned_model":"ft:gpt-4.1-mini:personal:title-gen:xyz"}`, r.PathValue("id"))
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeOpenAI) *Client {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "sk-test", WithHTTPClient(srv.Client()), WithRetry(3, time.Millisecond))
}

func TestSubmit(t *testing.T) {
	f := &fakeOpenAI{}
	f.failCreate.Store(1)
	c := newTestClient(t, f)

	path := filepath.Join(t.TempDir(), DefaultJSONLName)
	require.NoError(t, os.WriteFile(path, []byte(`{"messages":[]}`+"\n"), 0o644))

	job, err := c.Submit(context.Background(), path, "gpt-4.1-mini-2025-04-14", "")
	require.NoError(t, err)

	assert.Equal(t, "ftjob-abc", job.ID)
	assert.Equal(t, "validating_files", job.Status)
	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, "fine-tune", f.gotPurpose)
	assert.Equal(t, `{"messages":[]}`+"\n", f.gotFile)
	assert.Equal(t, map[string]string{
		"training_file": "file-123",
		"model":         "gpt-4.1-mini-2025-04-14",
		"suffix":        DefaultSuffix,
	}, f.gotJob)
	assert.Equal(t, int32(0), f.failCreate.Load(), "503 should be retried")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "local file removed after upload")
}

func TestCreateJobClientErrorIsPermanent(t *testing.T) {
	f := &fakeOpenAI{}
	c := newTestClient(t, f)

	_, err := c.CreateJob(context.Background(), "file-123", "bad-model", DefaultSuffix)
	require.Error(t, err)
	var se *engine.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Contains(t, se.Body, "model not found")
}

func TestUploadKeepsFileOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "sk-bad", WithHTTPClient(srv.Client()), WithRetry(2, time.Millisecond))

	path := filepath.Join(t.TempDir(), "train.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))

	_, err := c.Submit(context.Background(), path, "m", "")
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr, "file must survive a failed upload")
}

func TestGetJob(t *testing.T) {
	c := newTestClient(t, &fakeOpenAI{})
	job, err := c.GetJob(context.Background(), "ftjob-abc")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", job.Status)
	assert.Equal(t, "ft:gpt-4.1-mini:personal:title-gen:xyz", job.FineTunedModel)
}
