// Package finetune turns the transcript dataset into a chat fine-tuning file
// and submits it to an OpenAI-compatible fine-tuning API.
package finetune

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/anatolykoptev/go_titlegen/internal/dataset"
	"github.com/anatolykoptev/go_titlegen/internal/engine"
)

// Quality bounds, in characters of the trimmed text.
const (
	MinTranscriptChars = 200
	MaxTranscriptChars = 50000
	MinTitleChars      = 10
	MaxTitleChars      = 100

	DefaultSampleSize = 800
	MinExamples       = 10

	DefaultJSONLName = "openai_title_training_data.jsonl"
)

// ErrTooFewExamples means the dataset cannot support a fine-tuning job.
var ErrTooFewExamples = errors.New("fewer than 10 training examples")

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Example is one JSONL line.
type Example struct {
	Messages []Message `json:"messages"`
}

// PrepareOptions controls sampling.
type PrepareOptions struct {
	SampleSize int
	// Rand drives sampling; nil uses a randomly seeded source.
	Rand *rand.Rand
}

// PrepareStats reports how many records survived each stage.
type PrepareStats struct {
	Loaded  int `json:"loaded"`
	Valid   int `json:"valid"`
	Written int `json:"written"`
}

// Valid reports whether a record is within the quality bounds.
func Valid(r dataset.VideoRecord) bool {
	t := utf8.RuneCountInString(strings.TrimSpace(r.FullTranscript))
	n := utf8.RuneCountInString(strings.TrimSpace(r.Title))
	return t >= MinTranscriptChars && t <= MaxTranscriptChars &&
		n >= MinTitleChars && n <= MaxTitleChars
}

// BuildExample renders a record in the chat format used at inference time.
func BuildExample(r dataset.VideoRecord) Example {
	return Example{Messages: []Message{
		{Role: "system", Content: engine.TitleSystemPrompt},
		{Role: "user", Content: engine.TitleUserMessage(strings.TrimSpace(r.FullTranscript))},
		{Role: "assistant", Content: strings.TrimSpace(r.Title)},
	}}
}

// Sample returns up to n records chosen uniformly without replacement.
func Sample(recs []dataset.VideoRecord, n int, rng *rand.Rand) []dataset.VideoRecord {
	if n > len(recs) {
		n = len(recs)
	}
	out := make([]dataset.VideoRecord, len(recs))
	copy(out, recs)
	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out[:n]
}

// Prepare filters, samples and writes recs to w as JSONL. It returns
// ErrTooFewExamples (after writing) when fewer than MinExamples lines were
// produced.
func Prepare(recs []dataset.VideoRecord, w io.Writer, opts PrepareOptions) (PrepareStats, error) {
	stats := PrepareStats{Loaded: len(recs)}
	size := opts.SampleSize
	if size <= 0 {
		size = DefaultSampleSize
	}

	valid := make([]dataset.VideoRecord, 0, len(recs))
	for _, r := range recs {
		if Valid(r) {
			valid = append(valid, r)
		}
	}
	stats.Valid = len(valid)

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, r := range Sample(valid, size, opts.Rand) {
		if err := enc.Encode(BuildExample(r)); err != nil {
			return stats, fmt.Errorf("encode example: %w", err)
		}
		stats.Written++
	}
	if err := bw.Flush(); err != nil {
		return stats, err
	}
	if stats.Written < MinExamples {
		return stats, ErrTooFewExamples
	}
	return stats, nil
}

// PrepareFile reads a training_data.json and writes the JSONL to outPath.
// The output is removed when there are too few examples.
func PrepareFile(inPath, outPath string, opts PrepareOptions) (PrepareStats, error) {
	recs, err := dataset.LoadRecords(inPath)
	if err != nil {
		return PrepareStats{}, fmt.Errorf("load training data: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return PrepareStats{}, err
	}
	stats, err := Prepare(recs, f, opts)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(outPath)
	}
	return stats, err
}
