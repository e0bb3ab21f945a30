// Package titleserver exposes the transcript, title and curation pipelines as
// MCP tools.
package titleserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_titlegen/internal/curate"
	"github.com/anatolykoptev/go_titlegen/internal/dataset"
	"github.com/anatolykoptev/go_titlegen/internal/engine"
	"github.com/anatolykoptev/go_titlegen/internal/ledger"
	"github.com/anatolykoptev/go_titlegen/internal/pipeline"
)

// TitleSampler returns several candidate titles for one transcript.
type TitleSampler interface {
	GenerateTitles(ctx context.Context, transcript string, n int) []string
}

// Verdicts judges a single video.
type Verdicts interface {
	Decide(ctx context.Context, title, channel, tags string) curate.Decision
}

// Server holds the dependencies shared by every tool handler.
type Server struct {
	Transcripts *dataset.Transcripts
	Titles      TitleSampler // nil when no fine-tuned model is configured
	Judge       Verdicts     // nil when no judge key is configured
	Channel     *dataset.Channel
	Cache       *engine.Cache
	Ledger      ledger.Store
	// ChannelOptions bounds the channel_titles pool.
	ChannelOptions pipeline.Options
}

// RegisterTools registers all tools on the given MCP server:
// youtube_transcript, title_generate, video_filter, channel_titles.
// Tools whose backing model is missing are left out.
func (s *Server) RegisterTools(server *mcp.Server) int {
	n := 0
	registerTranscript(server, s)
	n++
	if s.Titles != nil {
		registerTitleGenerate(server, s)
		n++
	}
	if s.Judge != nil {
		registerVideoFilter(server, s)
		n++
	}
	if s.Titles != nil && s.Channel != nil {
		registerChannelTitles(server, s)
		n++
	}
	slog.Info("tools registered", slog.Int("count", n))
	return n
}
