package sources

// YouTube implementation is split across files by responsibility:
//   youtube.go            client struct, options and error kinds
//   youtube_innertube.go  player response types, timedtext parsing, ANDROID /player
//   youtube_transcript.go transcript fetching (watch page scrape + player fallback)
//   youtube_metadata.go   identifier resolution and oEmbed titles
//   youtube_channel.go    channel ID lookup and uploads listing

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/anatolykoptev/go_titlegen/internal/engine"
)

const ytDefaultBase = "https://www.youtube.com"

// Error kinds. ErrTranscriptsDisabled and ErrNoTranscript are benign: the
// video simply has nothing to offer. Everything else is unexpected.
var (
	ErrMalformedIdentifier = errors.New("youtube: malformed video identifier")
	ErrVideoNotFound       = errors.New("youtube: video not found")
	ErrTranscriptsDisabled = errors.New("youtube: transcripts disabled")
	ErrNoTranscript        = errors.New("youtube: no transcript in requested languages")
	ErrChannelNotFound     = errors.New("youtube: channel not found")
)

// IsBenign reports whether err means "no transcript available" rather than a fault.
func IsBenign(err error) bool {
	return errors.Is(err, ErrTranscriptsDisabled) || errors.Is(err, ErrNoTranscript)
}

// Fragment is one timed caption line.
type Fragment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Texts returns fragment texts in order.
func Texts(frags []Fragment) []string {
	out := make([]string, len(frags))
	for i, f := range frags {
		out[i] = f.Text
	}
	return out
}

// YouTubeOptions configures a YouTube client. Zero values get defaults.
type YouTubeOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	// Browser, when set, is used for watch and channel pages.
	Browser   engine.BrowserFetch
	Cache     *engine.Cache
	Retry     *engine.RetryConfig
	Langs     []string
	Playlists PlaylistLister
}

// YouTube is the metadata, transcript and channel client. It holds no
// per-request state and is safe for concurrent use by many workers.
type YouTube struct {
	base      string
	client    *http.Client
	browser   engine.BrowserFetch
	cache     *engine.Cache
	retry     engine.RetryConfig
	langs     []string
	playlists PlaylistLister
	flight    singleflight.Group
}

// NewYouTube builds a client from options.
func NewYouTube(o YouTubeOptions) *YouTube {
	y := &YouTube{
		base:      strings.TrimRight(o.BaseURL, "/"),
		client:    o.HTTPClient,
		browser:   o.Browser,
		cache:     o.Cache,
		retry:     engine.DefaultRetryConfig,
		langs:     o.Langs,
		playlists: o.Playlists,
	}
	if y.base == "" {
		y.base = ytDefaultBase
	}
	if y.client == nil {
		y.client = engine.NewHTTPClient(15 * time.Second)
	}
	if o.Retry != nil {
		y.retry = *o.Retry
	}
	if len(y.langs) == 0 {
		y.langs = []string{"en"}
	}
	if y.playlists == nil {
		y.playlists = ytdlpLister{}
	}
	return y
}

// WatchURL returns the canonical watch URL for a video ID.
func WatchURL(videoID string) string {
	return ytDefaultBase + "/watch?v=" + videoID
}
