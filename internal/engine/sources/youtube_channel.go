package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ytget/ytdlp/v2"

	"github.com/anatolykoptev/go_titlegen/internal/engine"
)

var (
	channelIDRE   = regexp.MustCompile(`^UC[a-zA-Z0-9_-]{22}$`)
	channelPathRE = regexp.MustCompile(`/channel/(UC[a-zA-Z0-9_-]{22})`)
	externalIDRE  = regexp.MustCompile(`"externalId":"(UC[a-zA-Z0-9_-]{22})"`)
)

// ChannelVideo is one upload listed for a channel.
type ChannelVideo struct {
	URL     string `json:"url"`
	VideoID string `json:"video_id"`
	Title   string `json:"title"`
}

// PlaylistLister lists the videos of a playlist.
type PlaylistLister interface {
	PlaylistVideos(ctx context.Context, playlistID string) ([]ChannelVideo, error)
}

// ytdlpLister lists playlists through the ytdlp library.
type ytdlpLister struct{}

func (ytdlpLister) PlaylistVideos(ctx context.Context, playlistID string) ([]ChannelVideo, error) {
	items, err := ytdlp.New().GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, fmt.Errorf("playlist %s: %w", playlistID, err)
	}
	out := make([]ChannelVideo, 0, len(items))
	for _, it := range items {
		if it.VideoID == "" {
			continue
		}
		out = append(out, ChannelVideo{URL: WatchURL(it.VideoID), VideoID: it.VideoID, Title: it.Title})
	}
	return out, nil
}

// ChannelVideos lists every upload of a channel. ref may be a channel URL,
// an @handle or a UC… channel ID.
func (y *YouTube) ChannelVideos(ctx context.Context, ref string) ([]ChannelVideo, error) {
	engine.IncrChannel()

	id, err := y.ChannelID(ctx, ref)
	if err != nil {
		return nil, err
	}
	uploads := "UU" + strings.TrimPrefix(id, "UC")
	slog.Debug("youtube: listing uploads", slog.String("channel", id), slog.String("playlist", uploads))

	videos, err := y.playlists.PlaylistVideos(ctx, uploads)
	if err != nil {
		return nil, fmt.Errorf("channel %s: %w", id, err)
	}
	return videos, nil
}

// ChannelID resolves a channel reference to its UC… ID.
func (y *YouTube) ChannelID(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if channelIDRE.MatchString(ref) {
		return ref, nil
	}
	if m := channelPathRE.FindStringSubmatch(ref); len(m) == 2 {
		return m[1], nil
	}

	pageURL, err := y.channelPageURL(ref)
	if err != nil {
		return "", err
	}
	body, err := y.get(ctx, pageURL, map[string]string{
		"User-Agent":      engine.RandomUserAgent(),
		"Accept-Language": "en-US,en;q=0.9",
	}, maxPageBytes)
	if err != nil {
		var se *engine.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("%w: %s", ErrChannelNotFound, ref)
		}
		return "", fmt.Errorf("channel page %s: %w", ref, err)
	}
	if id := channelIDFromPage(body); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("%w: no channel id on %s", ErrChannelNotFound, pageURL)
}

func (y *YouTube) channelPageURL(ref string) (string, error) {
	switch {
	case strings.HasPrefix(ref, "@"):
		return y.base + "/" + ref, nil
	case strings.Contains(ref, "://"):
		u, err := url.Parse(ref)
		if err != nil || u.Path == "" || u.Path == "/" {
			return "", fmt.Errorf("%w: %s", ErrChannelNotFound, ref)
		}
		return y.base + u.Path, nil
	case ref != "":
		return y.base + "/@" + ref, nil
	}
	return "", fmt.Errorf("%w: empty reference", ErrChannelNotFound)
}

// channelIDFromPage reads the channel ID from page metadata, falling back to
// the embedded ytInitialData.
func channelIDFromPage(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err == nil {
		if id, ok := doc.Find(`meta[itemprop="identifier"]`).Attr("content"); ok && channelIDRE.MatchString(id) {
			return id
		}
		if id, ok := doc.Find(`meta[itemprop="channelId"]`).Attr("content"); ok && channelIDRE.MatchString(id) {
			return id
		}
		if href, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok {
			if m := channelPathRE.FindStringSubmatch(href); len(m) == 2 {
				return m[1]
			}
		}
	}
	if m := externalIDRE.FindSubmatch(body); len(m) == 2 {
		return string(m[1])
	}
	return ""
}
