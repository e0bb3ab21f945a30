package engine

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"http 429", &StatusError{StatusCode: 429}, true},
		{"http 502", &StatusError{StatusCode: 502}, true},
		{"http 404", &StatusError{StatusCode: 404}, false},
		{"regular error", errors.New("something"), false},
		{"timeout", &net.DNSError{IsTimeout: true}, true},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRetryableStatus(t *testing.T) {
	for code, want := range map[int]bool{
		http.StatusTooManyRequests:    true,
		http.StatusServiceUnavailable: true,
		http.StatusNotFound:           false,
		http.StatusOK:                 false,
	} {
		if got := IsRetryableStatus(code); got != want {
			t.Errorf("IsRetryableStatus(%d) = %v, want %v", code, got, want)
		}
	}
}

func TestRetryDoRetriesTransientError(t *testing.T) {
	before := metrics.Retries.Load()
	calls := 0
	got, err := RetryDo(context.Background(), DefaultRetryConfig, func() (string, error) {
		calls++
		if calls == 1 {
			return "", &net.OpError{Op: "dial", Err: errors.New("refused")}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || calls != 2 {
		t.Errorf("got %q after %d calls, want ok after 2", got, calls)
	}
	if n := metrics.Retries.Load() - before; n != 1 {
		t.Errorf("retries counted = %d, want 1", n)
	}
}

func TestRetryDoNoRetryCallsOnce(t *testing.T) {
	calls := 0
	_, err := RetryDo(context.Background(), NoRetry, func() (string, error) {
		calls++
		return "", &net.OpError{Op: "dial", Err: errors.New("refused")}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryDoContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RetryDo(ctx, DefaultRetryConfig, func() (string, error) {
		return "", &net.OpError{Op: "dial", Err: errors.New("refused")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRetryHTTPPassesNonRetryableStatus(t *testing.T) {
	calls := 0
	resp, err := RetryHTTP(context.Background(), DefaultRetryConfig, func() (*http.Response, error) {
		calls++
		return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader(""))}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}
