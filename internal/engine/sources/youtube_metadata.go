package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go_titlegen/internal/engine"
)

var (
	videoIDRE = regexp.MustCompile(`(?:youtube\.com/(?:watch\?(?:.*&)?v=|embed/|shorts/|live/|v/)|youtu\.be/)([a-zA-Z0-9_-]{11})(?:[^a-zA-Z0-9_-]|$)`)
	bareIDRE  = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
)

// Resolve turns a video URL or bare 11-char ID into a video ID.
func (y *YouTube) Resolve(_ context.Context, identifier string) (string, error) {
	s := strings.TrimSpace(identifier)
	if bareIDRE.MatchString(s) {
		return s, nil
	}
	if m := videoIDRE.FindStringSubmatch(s); len(m) >= 2 {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: %q", ErrMalformedIdentifier, identifier)
}

type oembedResp struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
}

// Title returns the video title via oEmbed. Private, removed and unknown
// videos map to ErrVideoNotFound.
func (y *YouTube) Title(ctx context.Context, videoID string) (string, error) {
	engine.IncrMetadata()

	key := engine.CacheKey("title", videoID)
	if t, ok := engine.CacheLoadJSON[string](ctx, y.cache, key); ok {
		return t, nil
	}

	endpoint := y.base + "/oembed?format=json&url=" + url.QueryEscape(WatchURL(videoID))
	resp, err := engine.RetryHTTP(ctx, y.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentBot)
		req.Header.Set("Accept", "application/json")
		return y.client.Do(req)
	})
	if err != nil {
		return "", fmt.Errorf("oembed %s: %w", videoID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return "", fmt.Errorf("oembed %s: %w", videoID, ErrVideoNotFound)
	default:
		return "", fmt.Errorf("oembed %s: %w", videoID, &engine.StatusError{StatusCode: resp.StatusCode})
	}

	var o oembedResp
	if err := json.NewDecoder(resp.Body).Decode(&o); err != nil {
		return "", fmt.Errorf("oembed %s: decode: %w", videoID, err)
	}
	if o.Title == "" {
		return "", fmt.Errorf("oembed %s: %w", videoID, errors.New("empty title"))
	}

	engine.CacheStoreJSON(ctx, y.cache, key, o.Title)
	return o.Title, nil
}
