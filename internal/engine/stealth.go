package engine

import (
	"context"
	"net/http"

	stealth "github.com/anatolykoptev/go-stealth"
)

// Retry policy comes from go-stealth; these wrappers add the retry counter.
type RetryConfig = stealth.RetryConfig

var DefaultRetryConfig = stealth.DefaultRetryConfig

// NoRetry runs the call exactly once.
var NoRetry = RetryConfig{}

func IsRetryableStatus(code int) bool { return stealth.IsRetryableStatus(code) }

func RetryDo[T any](ctx context.Context, rc RetryConfig, fn func() (T, error)) (T, error) {
	return stealth.RetryDo(ctx, rc, countAttempts(fn))
}

func RetryHTTP(ctx context.Context, rc RetryConfig, fn func() (*http.Response, error)) (*http.Response, error) {
	return stealth.RetryHTTP(ctx, rc, countAttempts(fn))
}

func countAttempts[T any](fn func() (T, error)) func() (T, error) {
	attempt := 0
	return func() (T, error) {
		if attempt > 0 {
			metrics.Retries.Add(1)
		}
		attempt++
		return fn()
	}
}
