package titleserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_titlegen/internal/dataset"
	"github.com/anatolykoptev/go_titlegen/internal/pipeline"
)

const maxVariations = 10

// TitleInput is the input for title_generate.
type TitleInput struct {
	Transcript string `json:"transcript,omitempty" jsonschema:"Video transcript text. Either transcript or url is required"`
	URL        string `json:"url,omitempty" jsonschema:"YouTube URL whose transcript should be titled"`
	Count      int    `json:"count,omitempty" jsonschema:"Number of title variations (default 5, max 10)"`
}

// TitleOutput is the output for title_generate.
type TitleOutput struct {
	Titles        []string `json:"titles"`
	OriginalTitle string   `json:"original_title,omitempty"`
}

// GenerateTitles samples title variations from the fine-tuned model.
func (s *Server) GenerateTitles(ctx context.Context, input TitleInput) (TitleOutput, error) {
	n := input.Count
	if n <= 0 {
		n = dataset.DefaultVariations
	}
	n = min(n, maxVariations)

	var out TitleOutput
	transcript := input.Transcript
	if transcript == "" {
		if input.URL == "" {
			return out, errors.New("transcript or url is required")
		}
		tr, err := s.Transcript(ctx, TranscriptInput{URL: input.URL})
		if err != nil {
			return out, err
		}
		if tr.Status != pipeline.KindSuccess.String() {
			return out, fmt.Errorf("no transcript for %s: %s", input.URL, tr.Reason)
		}
		transcript = tr.Video.FullTranscript
		out.OriginalTitle = tr.Video.Title
	}

	out.Titles = s.Titles.GenerateTitles(ctx, transcript, n)
	if len(out.Titles) == 0 {
		return out, errors.New("title model returned no titles")
	}
	return out, nil
}

func registerTitleGenerate(server *mcp.Server, s *Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "title_generate",
		Description: "Generate engaging YouTube title variations from a transcript (or a video URL) using the fine-tuned title model.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input TitleInput) (*mcp.CallToolResult, TitleOutput, error) {
		out, err := s.GenerateTitles(ctx, input)
		return nil, out, err
	})
}
