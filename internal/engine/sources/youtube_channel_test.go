package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anatolykoptev/go_titlegen/internal/engine"
)

const testChannelID = "UCabcdefghijklmnopqrstuv"

type stubLister struct {
	gotPlaylist string
	videos      []ChannelVideo
}

func (s *stubLister) PlaylistVideos(_ context.Context, playlistID string) ([]ChannelVideo, error) {
	s.gotPlaylist = playlistID
	return s.videos, nil
}

func TestChannelIDFromPage(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"meta identifier", `<html><head><meta itemprop="identifier" content="` + testChannelID + `"></head></html>`, testChannelID},
		{"canonical link", `<html><head><link rel="canonical" href="https://www.youtube.com/channel/` + testChannelID + `"></head></html>`, testChannelID},
		{"initial data", `<html><script>var ytInitialData = {"metadata":{"externalId":"` + testChannelID + `"}};</script></html>`, testChannelID},
		{"nothing", `<html><head><title>x</title></head></html>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := channelIDFromPage([]byte(tt.html)); got != tt.want {
				t.Errorf("channelIDFromPage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChannelVideos(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/@joshycodes", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<html><head><meta itemprop="identifier" content="%s"></head></html>`, testChannelID)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	lister := &stubLister{videos: []ChannelVideo{
		{URL: WatchURL("AAAAAAAAAAA"), VideoID: "AAAAAAAAAAA", Title: "first"},
		{URL: WatchURL("BBBBBBBBBBB"), VideoID: "BBBBBBBBBBB", Title: "second"},
	}}
	yt := NewYouTube(YouTubeOptions{
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		Retry:      &engine.NoRetry,
		Playlists:  lister,
	})
	ctx := context.Background()

	for _, ref := range []string{"@joshycodes", "https://www.youtube.com/@joshycodes", "joshycodes"} {
		videos, err := yt.ChannelVideos(ctx, ref)
		if err != nil {
			t.Fatalf("ChannelVideos(%q): %v", ref, err)
		}
		if len(videos) != 2 {
			t.Errorf("ChannelVideos(%q) = %d videos, want 2", ref, len(videos))
		}
		if lister.gotPlaylist != "UUabcdefghijklmnopqrstuv" {
			t.Errorf("playlist = %q, want uploads playlist", lister.gotPlaylist)
		}
	}

	if _, err := yt.ChannelVideos(ctx, "@missing"); !errors.Is(err, ErrChannelNotFound) {
		t.Errorf("missing channel err = %v, want ErrChannelNotFound", err)
	}

	lister.gotPlaylist = ""
	if _, err := yt.ChannelVideos(ctx, testChannelID); err != nil {
		t.Fatalf("direct channel id: %v", err)
	}
	if lister.gotPlaylist != "UUabcdefghijklmnopqrstuv" {
		t.Errorf("direct id should skip page lookup and list uploads, got %q", lister.gotPlaylist)
	}
}
