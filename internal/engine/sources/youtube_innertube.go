package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_titlegen/internal/engine"
)

// Innertube player constants, response types and HTTP primitives.

const (
	ytPlayerPath     = "/youtubei/v1/player"
	ytAndroidVersion = "20.10.38"
	ytAndroidUA      = "com.google.android.youtube/" + ytAndroidVersion + " (Linux; U; Android 11) gzip"

	maxPageBytes      = 6 << 20
	maxTimedTextBytes = 2 << 20
)

type innertubeReq struct {
	VideoID        string       `json:"videoId"`
	Context        innertubeCtx `json:"context"`
	RacyCheckOk    bool         `json:"racyCheckOk"`
	ContentCheckOk bool         `json:"contentCheckOk"`
}

type innertubeCtx struct {
	Client innertubeClient `json:"client"`
}

type innertubeClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion,omitempty"`
	Hl                string `json:"hl,omitempty"`
	Gl                string `json:"gl,omitempty"`
}

type playerResponse struct {
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

// tracks classifies a player response: playability problems are unexpected,
// a missing captions block means transcripts are disabled.
func (p *playerResponse) tracks() ([]captionTrack, error) {
	if ps := p.PlayabilityStatus; ps != nil && ps.Status != "" && ps.Status != "OK" {
		return nil, fmt.Errorf("playability %s: %s", ps.Status, ps.Reason)
	}
	if p.Captions == nil {
		return nil, ErrTranscriptsDisabled
	}
	tracks := p.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return nil, ErrTranscriptsDisabled
	}
	return tracks, nil
}

type timedText struct {
	Lines []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Text  string `xml:",chardata"`
	} `xml:"text"`
}

// parseTimedText decodes timedtext XML into fragments, preserving order.
// Elements without text are dropped.
func parseTimedText(body []byte) ([]Fragment, error) {
	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}
	frags := make([]Fragment, 0, len(tt.Lines))
	for _, l := range tt.Lines {
		if l.Text == "" {
			continue
		}
		start, _ := strconv.ParseFloat(l.Start, 64)
		dur, _ := strconv.ParseFloat(l.Dur, 64)
		frags = append(frags, Fragment{Text: engine.CleanHTML(l.Text), Start: start, Duration: dur})
	}
	if len(frags) == 0 {
		return nil, errors.New("empty timedtext")
	}
	return frags, nil
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickTrack selects a caption track strictly from langs, in preference
// order. For each language a manual track wins over an auto-generated one.
func pickTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	for _, lang := range langs {
		var asr *captionTrack
		for i, t := range tracks {
			if t.LanguageCode != lang {
				continue
			}
			if t.Kind != "asr" {
				return t, true
			}
			if asr == nil {
				asr = &tracks[i]
			}
		}
		if asr != nil {
			return *asr, true
		}
	}
	return captionTrack{}, false
}

// selectTrack applies language selection, then steers around PoToken tracks.
func selectTrack(tracks []captionTrack, langs []string) (captionTrack, error) {
	t, ok := pickTrack(tracks, langs)
	if !ok {
		return captionTrack{}, ErrNoTranscript
	}
	if !needsPoToken(t.BaseURL) {
		return t, nil
	}
	usable := make([]captionTrack, 0, len(tracks))
	for _, tr := range tracks {
		if !needsPoToken(tr.BaseURL) {
			usable = append(usable, tr)
		}
	}
	if t, ok := pickTrack(usable, langs); ok {
		return t, nil
	}
	return captionTrack{}, errors.New("caption track requires PoToken")
}

// fetchTimedText downloads and parses a caption track.
func (y *YouTube) fetchTimedText(ctx context.Context, baseURL string) ([]Fragment, error) {
	// srv3 uses a different schema; plain timedtext carries start/dur attrs.
	baseURL = strings.Replace(baseURL, "&fmt=srv3", "", 1)
	body, err := y.get(ctx, baseURL, map[string]string{"User-Agent": engine.UserAgentChrome}, maxTimedTextBytes)
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	return parseTimedText(body)
}

// transcriptFromPlayer uses the ANDROID Innertube /player endpoint.
func (y *YouTube) transcriptFromPlayer(ctx context.Context, videoID string) ([]Fragment, error) {
	reqBody, err := json.Marshal(innertubeReq{
		VideoID: videoID,
		Context: innertubeCtx{
			Client: innertubeClient{
				ClientName:        "ANDROID",
				ClientVersion:     ytAndroidVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return nil, err
	}

	resp, err := engine.RetryHTTP(ctx, y.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			y.base+ytPlayerPath+"?prettyPrint=false", bytes.NewReader(reqBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", ytAndroidUA)
		req.Header.Set("X-Youtube-Client-Name", "3")
		req.Header.Set("X-Youtube-Client-Version", ytAndroidVersion)
		return y.client.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("android player: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("android player: %w", &engine.StatusError{StatusCode: resp.StatusCode})
	}

	var pr playerResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode player: %w", err)
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

// get fetches a page body. Uses the browser client when configured, the
// plain HTTP client otherwise. Non-200 responses become *engine.StatusError.
func (y *YouTube) get(ctx context.Context, rawURL string, headers map[string]string, limit int64) ([]byte, error) {
	resp, err := engine.RetryHTTP(ctx, y.retry, func() (*http.Response, error) {
		if y.browser != nil {
			return y.browserGet(ctx, rawURL, headers)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return y.client.Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, &engine.StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

// browserGet wraps a browser fetch in an *http.Response so both transports
// share the retry and status handling.
func (y *YouTube) browserGet(ctx context.Context, rawURL string, headers map[string]string) (*http.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h := make(map[string]string)
	for k, v := range engine.ChromeHeaders() {
		h[k] = v
	}
	for k, v := range headers {
		h[k] = v
	}
	data, status, err := y.browser(http.MethodGet, rawURL, h, nil)
	if err != nil {
		return nil, err
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader(data)),
	}, nil
}

// extractJSON returns the balanced JSON object at the start of b.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr, esc := false, false
	for i, c := range b {
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}
