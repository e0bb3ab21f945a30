package engine

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/proxypool"
)

// User-Agent strings used across HTTP clients.
const (
	UserAgentBot    = "go_titlegen/1.0"
	UserAgentChrome = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

// BrowserFetch performs one request with a Chrome TLS fingerprint.
// Returns body bytes, HTTP status code, and any error.
type BrowserFetch func(method, url string, headers map[string]string, body io.Reader) ([]byte, int, error)

// NewHTTPClient returns the shared client used for plain API calls.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     60 * time.Second,
		},
	}
}

// NewBrowserFetch builds a stealth browser client. When webshareKey is set the
// client rotates through the Webshare proxy pool.
func NewBrowserFetch(webshareKey string, timeoutSec int) (BrowserFetch, error) {
	opts := []stealth.ClientOption{stealth.WithTimeout(timeoutSec)}

	if webshareKey != "" {
		pool, err := proxypool.NewWebshare(webshareKey)
		if err != nil {
			slog.Warn("proxy pool init failed, running without proxy", slog.Any("error", err))
		} else {
			opts = append(opts, stealth.WithProxyPool(pool))
			slog.Info("proxy pool initialized", slog.Int("proxies", pool.Len()))
		}
	}

	bc, err := stealth.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("stealth client init: %w", err)
	}
	return func(method, url string, headers map[string]string, body io.Reader) ([]byte, int, error) {
		data, _, status, err := bc.Do(method, url, headers, body)
		return data, status, err
	}, nil
}

// ChromeHeaders returns common Chrome browser headers.
func ChromeHeaders() map[string]string {
	return stealth.ChromeHeaders()
}

// RandomUserAgent returns a rotating desktop browser User-Agent.
func RandomUserAgent() string {
	return stealth.RandomUserAgent()
}
