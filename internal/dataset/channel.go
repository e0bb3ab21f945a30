package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/anatolykoptev/go_titlegen/internal/engine"
	"github.com/anatolykoptev/go_titlegen/internal/engine/sources"
	"github.com/anatolykoptev/go_titlegen/internal/pipeline"
)

const (
	DefaultMinTranscriptChars = 200
	ChannelTemperature        = 0.3
	previewChars              = 200
)

// ChannelLister lists a channel's uploads.
type ChannelLister interface {
	ChannelVideos(ctx context.Context, ref string) ([]sources.ChannelVideo, error)
}

// TitleGenerator produces one title for a transcript.
type TitleGenerator interface {
	GenerateTitle(ctx context.Context, transcript string, temperature float64) (string, error)
}

// ChannelTitle pairs a video's current title with the model's recommendation.
type ChannelTitle struct {
	URL               string `json:"url"`
	VideoID           string `json:"video_id"`
	OriginalTitle     string `json:"original_title"`
	RecommendedTitle  string `json:"recommended_title"`
	TranscriptLength  int    `json:"transcript_length"`
	TranscriptPreview string `json:"transcript_preview"`
}

// Channel recommends titles for every upload of a channel.
type Channel struct {
	Lister      ChannelLister
	Meta        MetadataClient
	Transcripts TranscriptClient
	Titles      TitleGenerator
	// MinChars is the shortest transcript worth titling.
	MinChars int
	Log      *slog.Logger
}

func (c *Channel) log() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}

// Run lists the channel and processes each upload on the pool. Listing
// errors abort the run; per-video problems only cost that video.
func (c *Channel) Run(ctx context.Context, ref string, opts pipeline.Options, observers ...pipeline.Observer[ChannelTitle]) ([]ChannelTitle, pipeline.Stats, error) {
	videos, err := c.Lister.ChannelVideos(ctx, ref)
	if err != nil {
		return nil, pipeline.Stats{}, fmt.Errorf("list channel %s: %w", ref, err)
	}
	c.log().Info("channel listed", slog.String("channel", ref), slog.Int("videos", len(videos)))

	titles := make(map[string]string, len(videos))
	urls := make([]string, 0, len(videos))
	for _, v := range videos {
		titles[v.URL] = v.Title
		urls = append(urls, v.URL)
	}

	worker := func(ctx context.Context, url string) pipeline.Outcome[ChannelTitle] {
		return c.process(ctx, url, titles[url])
	}
	observers = append([]pipeline.Observer[ChannelTitle]{CountOutcomes[ChannelTitle]}, observers...)
	out, stats := pipeline.Execute(ctx, pipeline.Dedup(urls), worker, opts, observers...)
	return out, stats, nil
}

func (c *Channel) process(ctx context.Context, url, original string) pipeline.Outcome[ChannelTitle] {
	videoID, err := c.Meta.Resolve(ctx, url)
	if err != nil {
		return c.fail(url, "resolve", err)
	}

	frags, err := c.Transcripts.FetchTranscript(ctx, videoID)
	if err != nil {
		if sources.IsBenign(err) {
			c.log().Debug("channel: no transcript", slog.String("url", url), slog.Any("reason", err))
			return pipeline.Skip[ChannelTitle](url, err.Error())
		}
		return c.fail(url, "transcript", err)
	}

	transcript := engine.JoinFragments(sources.Texts(frags))
	length := utf8.RuneCountInString(transcript)
	minChars := c.MinChars
	if minChars <= 0 {
		minChars = DefaultMinTranscriptChars
	}
	if length < minChars {
		c.log().Debug("channel: transcript too short", slog.String("url", url), slog.Int("chars", length))
		return pipeline.Skip[ChannelTitle](url, fmt.Sprintf("transcript too short (%d chars)", length))
	}

	if original == "" {
		if original, err = c.Meta.Title(ctx, videoID); err != nil {
			return c.fail(url, "title", err)
		}
	}

	recommended, err := c.Titles.GenerateTitle(ctx, transcript, ChannelTemperature)
	if err != nil {
		return c.fail(url, "generate", err)
	}

	return pipeline.Succeed(url, ChannelTitle{
		URL:               url,
		VideoID:           videoID,
		OriginalTitle:     original,
		RecommendedTitle:  recommended,
		TranscriptLength:  length,
		TranscriptPreview: preview(transcript, length),
	})
}

func (c *Channel) fail(url, stage string, err error) pipeline.Outcome[ChannelTitle] {
	c.log().Error("channel: failed to process video",
		slog.String("url", url),
		slog.String("stage", stage),
		slog.Any("error", err))
	return pipeline.Fail[ChannelTitle](url, err)
}

func preview(transcript string, length int) string {
	if length <= previewChars {
		return transcript
	}
	return engine.TruncateRunes(transcript, previewChars, "") + "..."
}
