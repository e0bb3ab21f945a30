package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestFormatMetricsListsEveryKey(t *testing.T) {
	IncrTranscript()
	out := FormatMetrics()
	for _, k := range metricKeys {
		if !strings.Contains(out, k+" ") {
			t.Errorf("FormatMetrics missing %q", k)
		}
	}
	if GetMetrics()["transcript_requests"] < 1 {
		t.Error("transcript_requests not counted")
	}
}

func TestTrackOperationReturnsError(t *testing.T) {
	want := errors.New("boom")
	err := TrackOperation(context.Background(), "op", time.Hour, func(context.Context) error { return want })
	if !errors.Is(err, want) {
		t.Errorf("TrackOperation error = %v, want %v", err, want)
	}
}
