package engine

import (
	"errors"
	"net"
	"net/http"
)

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return "HTTP " + http.StatusText(e.StatusCode) + ": " + e.Body
	}
	return "HTTP " + http.StatusText(e.StatusCode)
}

// IsRetryable reports transient errors for callers with their own backoff.
func IsRetryable(err error) bool {
	var httpErr *StatusError
	if errors.As(err, &httpErr) {
		return IsRetryableStatus(httpErr.StatusCode)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	// net.Error includes OpError, so check after OpError
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
