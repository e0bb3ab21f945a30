package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go_titlegen/internal/curate"
	"github.com/anatolykoptev/go_titlegen/internal/dataset"
	"github.com/anatolykoptev/go_titlegen/internal/engine"
	"github.com/anatolykoptev/go_titlegen/internal/engine/sources"
	"github.com/anatolykoptev/go_titlegen/internal/ledger"
	"github.com/anatolykoptev/go_titlegen/internal/pipeline"
)

// app wires every long-lived dependency once.
type app struct {
	cfg     engine.Config
	cache   *engine.Cache
	youtube *sources.YouTube
	ledger  ledger.Store // nil when the ledger could not be opened
	judge   *curate.Judge
	titles  *dataset.TitleModel
	closed  bool
}

func newApp(cfg engine.Config) (*app, error) {
	a := &app{cfg: cfg}

	a.cache = engine.NewCache(cfg.RedisURL, cfg.CacheTTL, cfg.CacheMaxEntries, cfg.CacheCleanupInterval)

	if cfg.WebshareAPIKey != "" {
		bf, err := engine.NewBrowserFetch(cfg.WebshareAPIKey, 15)
		if err != nil {
			slog.Warn("stealth client init failed, using plain HTTP", slog.Any("error", err))
		} else {
			cfg.BrowserClient = bf
			slog.Info("stealth browser client initialized")
		}
	}

	a.youtube = sources.NewYouTube(sources.YouTubeOptions{
		HTTPClient: cfg.HTTPClient,
		Browser:    cfg.BrowserClient,
		Cache:      a.cache,
		Langs:      cfg.TranscriptLangs,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := ledger.Open(ctx, cfg.DatabaseURL, cfg.LedgerPath)
	if err != nil {
		slog.Warn("run ledger disabled", slog.Any("error", err))
	} else {
		a.ledger = store
	}

	if cfg.LLMAPIKey != "" {
		a.judge = curate.NewJudge(engine.NewLLM(engine.LLMOptions{
			APIBase:      cfg.LLMAPIBase,
			APIKey:       cfg.LLMAPIKey,
			FallbackKeys: cfg.LLMAPIKeyFallbacks,
			Model:        cfg.LLMModel,
			MaxTokens:    cfg.LLMMaxTokens,
			Temperature:  cfg.LLMTemperature,
		}), cfg.CurateRPS)
	}
	if cfg.OpenAIAPIKey != "" && cfg.TitleModel != "" {
		a.titles = &dataset.TitleModel{LLM: engine.NewLLM(engine.LLMOptions{
			APIBase: cfg.OpenAIAPIBase,
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.TitleModel,
		})}
	}
	a.cfg = cfg
	return a, nil
}

func (a *app) Close() {
	if a.closed {
		return
	}
	a.closed = true
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			slog.Warn("ledger close failed", slog.Any("error", err))
		}
	}
	_ = a.cache.Close()
}

func (a *app) transcripts() *dataset.Transcripts {
	return &dataset.Transcripts{Meta: a.youtube, Transcripts: a.youtube}
}

func (a *app) channel() (*dataset.Channel, error) {
	if a.titles == nil {
		return nil, errors.New("OPENAI_API_KEY and TITLE_MODEL are required")
	}
	return &dataset.Channel{
		Lister:      a.youtube,
		Meta:        a.youtube,
		Transcripts: a.youtube,
		Titles:      a.titles,
		MinChars:    a.cfg.MinTranscriptChars,
	}, nil
}

func (a *app) poolOptions(workers int, label string, progress bool) pipeline.Options {
	opts := pipeline.Options{Workers: workers, ItemTimeout: a.cfg.ItemTimeout}
	if progress {
		opts.Progress = pipeline.NewBarProgress(stderr, label)
	} else {
		opts.Progress = pipeline.LogProgress(label, 25)
	}
	return opts
}

// record returns ledger observers for one run, or none without a ledger.
func record[T any](ctx context.Context, a *app, run, name string) []pipeline.Observer[T] {
	if a.ledger == nil {
		return nil
	}
	return []pipeline.Observer[T]{ledger.Observer[T](ctx, a.ledger, run, name)}
}

func (a *app) logRun(run string, stats pipeline.Stats) {
	slog.Info("run finished",
		slog.String("run_id", run),
		slog.Int("requested", stats.Requested),
		slog.Int("succeeded", stats.Succeeded),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed))
	if a.ledger != nil && stats.Failed > 0 {
		fmt.Fprintf(stderr, "failure details: go_titlegen ledger -run %s\n", run)
	}
}
