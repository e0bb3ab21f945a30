// go_titlegen builds a YouTube transcript/title dataset, curates it, fine-tunes
// a title model on it and serves the model over MCP.
//
// Usage:
//
//	go_titlegen [serve]            MCP server (default)
//	go_titlegen fetch              urls.txt -> training_data.json
//	go_titlegen channel -ref @name recommend titles for a channel
//	go_titlegen category           trending CSV -> category CSV
//	go_titlegen curate             LLM keep/remove pass over a category CSV
//	go_titlegen train              training_data.json -> fine-tuning job
//	go_titlegen title [text...]    title variations for a transcript
//	go_titlegen ledger -run ID     per-run outcome summary
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/joho/godotenv"

	"github.com/anatolykoptev/go_titlegen/internal/engine"
)

var version = "dev"

func main() {
	_ = godotenv.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(env.Str("LOG_LEVEL", "info")),
	})))

	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	app, err := newApp(loadConfig())
	if err != nil {
		slog.Error("init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer app.Close()

	if err := app.dispatch(cmd, args); err != nil {
		slog.Error(cmd+" failed", slog.Any("error", err))
		app.Close()
		os.Exit(1)
	}
}

func loadConfig() engine.Config {
	llmKey := env.Str("LLM_API_KEY", "")
	if llmKey == "" {
		llmKey = env.Str("GEMINI_API_KEY", "")
	}
	return engine.Config{
		LLMAPIKey:            llmKey,
		LLMAPIKeyFallbacks:   env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:           env.Str("LLM_API_BASE", ""),
		LLMModel:             env.Str("LLM_MODEL", ""),
		LLMTemperature:       env.Float("LLM_TEMPERATURE", 0.1),
		LLMMaxTokens:         env.Int("LLM_MAX_TOKENS", 256),
		OpenAIAPIKey:         env.Str("OPENAI_API_KEY", ""),
		OpenAIAPIBase:        env.Str("OPENAI_API_BASE", ""),
		TitleModel:           env.Str("TITLE_MODEL", ""),
		FinetuneBaseModel:    env.Str("FINETUNE_BASE_MODEL", ""),
		DataDir:              env.Str("DATA_DIR", "./data"),
		MaxWorkers:           env.Int("MAX_WORKERS", 10),
		ChannelWorkers:       env.Int("CHANNEL_WORKERS", 5),
		ItemTimeout:          env.Duration("ITEM_TIMEOUT", 2*time.Minute),
		TranscriptLangs:      env.List("TRANSCRIPT_LANGS", "en"),
		MinTranscriptChars:   env.Int("MIN_TRANSCRIPT_CHARS", 200),
		CurateRPS:            env.Float("CURATE_RPS", 10),
		WebshareAPIKey:       env.Str("WEBSHARE_API_KEY", ""),
		RedisURL:             env.Str("REDIS_URL", ""),
		CacheTTL:             env.Duration("CACHE_TTL", 24*time.Hour),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
		DatabaseURL:          env.Str("DATABASE_URL", ""),
		LedgerPath:           env.Str("LEDGER_PATH", ""),
	}.Defaults()
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func usage() string {
	return fmt.Sprintf("go_titlegen %s\ncommands: serve, fetch, channel, category, curate, train, title, ledger", version)
}
