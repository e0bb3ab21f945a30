package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/anatolykoptev/go_titlegen/internal/engine"
)

// YouTube transcript fetching.
// Primary:  watch page ytInitialPlayerResponse -> caption track -> timedtext XML
// Fallback: ANDROID Innertube /player -> caption track -> timedtext XML

// ytInitialPlayerResponseMarker marks the start of the player response JSON in watch page HTML.
const ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "

// sharedFetchTimeout bounds one shared transcript fetch, fallback included.
const sharedFetchTimeout = 90 * time.Second

// FetchTranscript returns the caption fragments for a video in the
// configured languages. Fails with ErrTranscriptsDisabled or ErrNoTranscript
// when the video has nothing usable; any other error is unexpected.
func (y *YouTube) FetchTranscript(ctx context.Context, videoID string) ([]Fragment, error) {
	engine.IncrTranscript()

	key := engine.CacheKey("transcript", videoID, strings.Join(y.langs, ","))
	if frags, ok := engine.CacheLoadJSON[[]Fragment](ctx, y.cache, key); ok {
		return frags, nil
	}

	// Concurrent requests for the same video share one fetch. It runs
	// detached from any single caller; each caller's ctx only bounds its wait.
	ch := y.flight.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		return y.fetchTranscript(fctx, videoID)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, fmt.Errorf("transcript %s: %w", videoID, ctx.Err())
	}
	if res.Err != nil {
		if !IsBenign(res.Err) {
			engine.IncrTranscriptError()
		}
		return nil, fmt.Errorf("transcript %s: %w", videoID, res.Err)
	}

	frags := res.Val.([]Fragment)
	engine.CacheStoreJSON(ctx, y.cache, key, frags)
	return frags, nil
}

func (y *YouTube) fetchTranscript(ctx context.Context, videoID string) ([]Fragment, error) {
	frags, err := y.transcriptFromWatchPage(ctx, videoID)
	if err != nil && !IsBenign(err) && ctx.Err() == nil {
		slog.Warn("youtube: watch page failed, trying player",
			slog.String("id", videoID), slog.Any("error", err))
		frags, err = y.transcriptFromPlayer(ctx, videoID)
	}
	return frags, err
}

// transcriptFromWatchPage scrapes the watch page and reads the caption
// tracks from ytInitialPlayerResponse.
func (y *YouTube) transcriptFromWatchPage(ctx context.Context, videoID string) ([]Fragment, error) {
	body, err := y.get(ctx, y.base+"/watch?v="+videoID, map[string]string{
		"User-Agent":      engine.RandomUserAgent(),
		"Accept-Language": "en-US,en;q=0.9",
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	}, maxPageBytes)
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}

	pr, err := parseWatchPage(body)
	if err != nil {
		return nil, err
	}
	tracks, err := pr.tracks()
	if err != nil {
		return nil, err
	}
	track, err := selectTrack(tracks, y.langs)
	if err != nil {
		return nil, err
	}
	return y.fetchTimedText(ctx, track.BaseURL)
}

func parseWatchPage(body []byte) (*playerResponse, error) {
	idx := bytes.Index(body, []byte(ytInitialPlayerResponseMarker))
	if idx < 0 {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	raw := extractJSON(body[idx+len(ytInitialPlayerResponseMarker):])
	if raw == nil {
		return nil, errors.New("failed to extract ytInitialPlayerResponse JSON")
	}
	var pr playerResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return &pr, nil
}
