package titleserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_titlegen/internal/dataset"
	"github.com/anatolykoptev/go_titlegen/internal/ledger"
	"github.com/anatolykoptev/go_titlegen/internal/pipeline"
)

// ChannelInput is the input for channel_titles.
type ChannelInput struct {
	Channel string `json:"channel" jsonschema:"Channel handle (@name), channel URL or UC... channel ID"`
}

// ChannelOutput is the output for channel_titles.
type ChannelOutput struct {
	RunID   string                 `json:"run_id"`
	Stats   pipeline.Stats         `json:"stats"`
	Results []dataset.ChannelTitle `json:"results"`
}

// ChannelTitles recommends a title for every upload of a channel.
func (s *Server) ChannelTitles(ctx context.Context, input ChannelInput) (ChannelOutput, error) {
	if input.Channel == "" {
		return ChannelOutput{}, errors.New("channel is required")
	}
	run := ledger.NewRunID()
	var observers []pipeline.Observer[dataset.ChannelTitle]
	if s.Ledger != nil {
		observers = append(observers, ledger.Observer[dataset.ChannelTitle](ctx, s.Ledger, run, "channel"))
	}
	results, stats, err := s.Channel.Run(ctx, input.Channel, s.ChannelOptions, observers...)
	if err != nil {
		return ChannelOutput{}, err
	}
	return ChannelOutput{RunID: run, Stats: stats, Results: results}, nil
}

func registerChannelTitles(server *mcp.Server, s *Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "channel_titles",
		Description: "List every upload of a YouTube channel and recommend a new title for each video that has a transcript. Slow: one transcript fetch and one model call per video.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ChannelInput) (*mcp.CallToolResult, ChannelOutput, error) {
		out, err := s.ChannelTitles(ctx, input)
		return nil, out, err
	})
}
