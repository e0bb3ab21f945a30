// Package dataset builds the transcript/title records that feed training and
// the per-channel title recommendations.
package dataset

import (
	"context"
	"log/slog"

	"github.com/anatolykoptev/go_titlegen/internal/engine"
	"github.com/anatolykoptev/go_titlegen/internal/engine/sources"
	"github.com/anatolykoptev/go_titlegen/internal/pipeline"
)

// MetadataClient resolves identifiers and looks up titles.
type MetadataClient interface {
	Resolve(ctx context.Context, identifier string) (string, error)
	Title(ctx context.Context, videoID string) (string, error)
}

// TranscriptClient fetches caption fragments.
type TranscriptClient interface {
	FetchTranscript(ctx context.Context, videoID string) ([]sources.Fragment, error)
}

// VideoRecord is one training example candidate.
type VideoRecord struct {
	URL            string `json:"url"`
	VideoID        string `json:"video_id"`
	Title          string `json:"title"`
	FullTranscript string `json:"full_transcript"`
}

// Transcripts turns video URLs into VideoRecords.
type Transcripts struct {
	Meta        MetadataClient
	Transcripts TranscriptClient
	Log         *slog.Logger
}

func (t *Transcripts) log() *slog.Logger {
	if t.Log != nil {
		return t.Log
	}
	return slog.Default()
}

// Process handles one identifier and never returns more than one outcome.
// Videos without a usable transcript are skipped quietly.
func (t *Transcripts) Process(ctx context.Context, url string) pipeline.Outcome[VideoRecord] {
	videoID, err := t.Meta.Resolve(ctx, url)
	if err != nil {
		return t.fail(url, "resolve", err)
	}

	frags, err := t.Transcripts.FetchTranscript(ctx, videoID)
	if err != nil {
		if sources.IsBenign(err) {
			t.log().Debug("dataset: no transcript", slog.String("url", url), slog.Any("reason", err))
			return pipeline.Skip[VideoRecord](url, err.Error())
		}
		return t.fail(url, "transcript", err)
	}

	title, err := t.Meta.Title(ctx, videoID)
	if err != nil {
		return t.fail(url, "title", err)
	}

	return pipeline.Succeed(url, VideoRecord{
		URL:            url,
		VideoID:        videoID,
		Title:          title,
		FullTranscript: engine.JoinFragments(sources.Texts(frags)),
	})
}

func (t *Transcripts) fail(url, stage string, err error) pipeline.Outcome[VideoRecord] {
	t.log().Error("dataset: failed to process url",
		slog.String("url", url),
		slog.String("stage", stage),
		slog.Any("error", err))
	return pipeline.Fail[VideoRecord](url, err)
}

// Fetch dedups urls and runs them through the pool.
func (t *Transcripts) Fetch(ctx context.Context, urls []string, opts pipeline.Options, observers ...pipeline.Observer[VideoRecord]) ([]VideoRecord, pipeline.Stats) {
	observers = append([]pipeline.Observer[VideoRecord]{CountOutcomes[VideoRecord]}, observers...)
	return pipeline.Execute(ctx, pipeline.Dedup(urls), t.Process, opts, observers...)
}

// CountOutcomes feeds engine metrics.
func CountOutcomes[T any](o pipeline.Outcome[T]) {
	switch o.Kind {
	case pipeline.KindSuccess:
		engine.IncrItemSucceeded()
	case pipeline.KindSkipped:
		engine.IncrItemSkipped()
	default:
		engine.IncrItemFailed()
	}
}
