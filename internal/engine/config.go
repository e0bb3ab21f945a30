package engine

import (
	"net/http"
	"time"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	// Judge model (Gemini through its OpenAI-compatible endpoint).
	LLMAPIKey          string
	LLMAPIKeyFallbacks []string
	LLMAPIBase         string
	LLMModel           string
	LLMTemperature     float64
	LLMMaxTokens       int

	// Fine-tuning API and the fine-tuned title model.
	OpenAIAPIKey      string
	OpenAIAPIBase     string
	TitleModel        string
	FinetuneBaseModel string

	DataDir            string
	MaxWorkers         int           // fetch pipeline ceiling
	ChannelWorkers     int           // channel pipeline ceiling (LLM rate limits)
	ItemTimeout        time.Duration // per-item deadline, 0 = none
	TranscriptLangs    []string
	MinTranscriptChars int
	CurateRPS          float64

	WebshareAPIKey       string
	RedisURL             string
	CacheTTL             time.Duration
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration
	DatabaseURL          string
	LedgerPath           string

	HTTPClient    *http.Client
	BrowserClient BrowserFetch // nil = plain HTTP client only
}

// Defaults fills zero values with the values the pipelines were tuned for.
func (c Config) Defaults() Config {
	if c.LLMAPIBase == "" {
		c.LLMAPIBase = "https://generativelanguage.googleapis.com/v1beta/openai"
	}
	if c.LLMModel == "" {
		c.LLMModel = "gemini-2.5-flash-lite"
	}
	if c.OpenAIAPIBase == "" {
		c.OpenAIAPIBase = "https://api.openai.com/v1"
	}
	if c.FinetuneBaseModel == "" {
		c.FinetuneBaseModel = "gpt-4.1-mini-2025-04-14"
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 10
	}
	if c.ChannelWorkers <= 0 {
		c.ChannelWorkers = 5
	}
	if len(c.TranscriptLangs) == 0 {
		c.TranscriptLangs = []string{"en"}
	}
	if c.MinTranscriptChars <= 0 {
		c.MinTranscriptChars = 200
	}
	if c.CurateRPS <= 0 {
		c.CurateRPS = 10
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 24 * time.Hour
	}
	if c.HTTPClient == nil {
		c.HTTPClient = NewHTTPClient(15 * time.Second)
	}
	return c
}
