package titleserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// FilterInput is the input for video_filter.
type FilterInput struct {
	Title   string `json:"title" jsonschema:"Video title"`
	Channel string `json:"channel,omitempty" jsonschema:"Channel name"`
	Tags    string `json:"tags,omitempty" jsonschema:"Pipe-separated tags as in the trending dataset"`
}

// FilterOutput is the output for video_filter.
type FilterOutput struct {
	Keep   bool   `json:"keep"`
	Reason string `json:"reason"`
}

// Filter asks the judge whether a video is a good title example.
func (s *Server) Filter(ctx context.Context, input FilterInput) (FilterOutput, error) {
	if input.Title == "" {
		return FilterOutput{}, errors.New("title is required")
	}
	d := s.Judge.Decide(ctx, input.Title, input.Channel, input.Tags)
	return FilterOutput{Keep: d.Keep, Reason: d.Reason}, nil
}

func registerVideoFilter(server *mcp.Server, s *Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_filter",
		Description: "Judge whether a trending video's title is a good example of a curiosity-driven title (KEEP) or should be dropped from training data (REMOVE).",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input FilterInput) (*mcp.CallToolResult, FilterOutput, error) {
		out, err := s.Filter(ctx, input)
		return nil, out, err
	})
}
