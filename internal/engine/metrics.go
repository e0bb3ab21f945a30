package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	Retries            atomic.Int64
	TranscriptRequests atomic.Int64
	TranscriptErrors   atomic.Int64
	MetadataRequests   atomic.Int64
	ChannelRequests    atomic.Int64
	LLMCalls           atomic.Int64
	LLMErrors          atomic.Int64
	ItemsSucceeded     atomic.Int64
	ItemsSkipped       atomic.Int64
	ItemsFailed        atomic.Int64
	CacheHits          atomic.Int64
	CacheMisses        atomic.Int64
}

var metricKeys = []string{
	"retries",
	"transcript_requests", "transcript_errors",
	"metadata_requests", "channel_requests",
	"llm_calls", "llm_errors",
	"items_succeeded", "items_skipped", "items_failed",
	"cache_hits", "cache_misses",
}

// GetMetrics returns a snapshot of all metrics.
func GetMetrics() map[string]int64 {
	return map[string]int64{
		"retries":             metrics.Retries.Load(),
		"transcript_requests": metrics.TranscriptRequests.Load(),
		"transcript_errors":   metrics.TranscriptErrors.Load(),
		"metadata_requests":   metrics.MetadataRequests.Load(),
		"channel_requests":    metrics.ChannelRequests.Load(),
		"llm_calls":           metrics.LLMCalls.Load(),
		"llm_errors":          metrics.LLMErrors.Load(),
		"items_succeeded":     metrics.ItemsSucceeded.Load(),
		"items_skipped":       metrics.ItemsSkipped.Load(),
		"items_failed":        metrics.ItemsFailed.Load(),
		"cache_hits":          metrics.CacheHits.Load(),
		"cache_misses":        metrics.CacheMisses.Load(),
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for the sources/ sub-package.
func IncrTranscript()      { metrics.TranscriptRequests.Add(1) }
func IncrTranscriptError() { metrics.TranscriptErrors.Add(1) }
func IncrMetadata()        { metrics.MetadataRequests.Add(1) }
func IncrChannel()         { metrics.ChannelRequests.Add(1) }

// Item outcome counters, fed by pipeline observers.
func IncrItemSucceeded() { metrics.ItemsSucceeded.Add(1) }
func IncrItemSkipped()   { metrics.ItemsSkipped.Add(1) }
func IncrItemFailed()    { metrics.ItemsFailed.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, threshold time.Duration, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > threshold {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
