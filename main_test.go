package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelSlug(t *testing.T) {
	tests := map[string]string{
		"@joshycodes":                                "joshycodes",
		"https://www.youtube.com/@joshycodes":        "joshycodes",
		"https://www.youtube.com/@joshycodes/videos": "joshycodes",
		"UCabcdefghijklmnopqrstuv":                   "UCabcdefghijklmnopqrstuv",
		"/":                                          "channel",
	}
	for in, want := range tests {
		assert.Equal(t, want, channelSlug(in), in)
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}
