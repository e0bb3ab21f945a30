package titleserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_titlegen/internal/dataset"
	"github.com/anatolykoptev/go_titlegen/internal/engine"
	"github.com/anatolykoptev/go_titlegen/internal/pipeline"
)

// TranscriptInput is the input for youtube_transcript.
type TranscriptInput struct {
	URL string `json:"url" jsonschema:"YouTube video URL or 11-character video ID"`
}

// TranscriptOutput is the output for youtube_transcript.
type TranscriptOutput struct {
	Status string               `json:"status"`
	Reason string               `json:"reason,omitempty"`
	Video  *dataset.VideoRecord `json:"video,omitempty"`
}

// Transcript runs one identifier through the fetch worker. Videos without
// captions come back with status "skipped" rather than an error.
func (s *Server) Transcript(ctx context.Context, input TranscriptInput) (TranscriptOutput, error) {
	if input.URL == "" {
		return TranscriptOutput{}, errors.New("url is required")
	}
	if s.Transcripts == nil {
		return TranscriptOutput{}, errors.New("transcript client not configured")
	}

	cacheKey := engine.CacheKey("tool_transcript", input.URL)
	if out, ok := engine.CacheLoadJSON[TranscriptOutput](ctx, s.Cache, cacheKey); ok {
		return out, nil
	}

	o := s.Transcripts.Process(ctx, input.URL)
	dataset.CountOutcomes(o)
	out := TranscriptOutput{Status: o.Kind.String(), Reason: o.Reason}
	switch o.Kind {
	case pipeline.KindSuccess:
		v := o.Value
		out.Video = &v
		engine.CacheStoreJSON(ctx, s.Cache, cacheKey, out)
	case pipeline.KindFailed:
		return TranscriptOutput{}, o.Err
	}
	return out, nil
}

func registerTranscript(server *mcp.Server, s *Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_transcript",
		Description: "Fetch the English transcript and title of a YouTube video. Returns the joined transcript text, or status \"skipped\" with a reason when the video has no usable captions.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input TranscriptInput) (*mcp.CallToolResult, TranscriptOutput, error) {
		out, err := s.Transcript(ctx, input)
		return nil, out, err
	})
}
