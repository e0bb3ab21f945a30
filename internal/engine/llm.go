package engine

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
)

// Completion is one chat request: an optional system prompt and a user prompt.
type Completion struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int // 0 = client default
}

// Completer sends a chat completion and returns the assistant text.
type Completer interface {
	Complete(ctx context.Context, c Completion) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, c Completion) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, c Completion) (string, error) {
	return f(ctx, c)
}

// LLMOptions configures an OpenAI-compatible chat client.
type LLMOptions struct {
	APIBase      string
	APIKey       string
	FallbackKeys []string
	Model        string
	MaxTokens    int
	Temperature  float64
	HTTPClient   *http.Client
}

// NewLLM builds a Completer over go-kit/llm. Works for Gemini's
// OpenAI-compatible endpoint and for OpenAI fine-tuned models alike.
func NewLLM(o LLMOptions) Completer {
	if o.HTTPClient == nil {
		o.HTTPClient = NewHTTPClient(60 * time.Second)
	}
	client := llm.NewClient(o.APIBase, o.APIKey, o.Model,
		llm.WithFallbackKeys(o.FallbackKeys),
		llm.WithMaxTokens(o.MaxTokens),
		llm.WithTemperature(o.Temperature),
		llm.WithHTTPClient(o.HTTPClient),
	)
	return CompleterFunc(func(ctx context.Context, c Completion) (string, error) {
		metrics.LLMCalls.Add(1)
		var (
			raw string
			err error
		)
		if c.MaxTokens > 0 {
			raw, err = client.Complete(ctx, c.System, c.Prompt,
				llm.WithChatTemperature(c.Temperature),
				llm.WithChatMaxTokens(c.MaxTokens),
			)
		} else {
			raw, err = client.Complete(ctx, c.System, c.Prompt,
				llm.WithChatTemperature(c.Temperature),
			)
		}
		if err != nil {
			metrics.LLMErrors.Add(1)
			return "", err
		}
		return strings.TrimSpace(raw), nil
	})
}

// StripFences removes markdown code fences from LLM output.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// CleanTitle normalises a generated title: fences, surrounding quotes, and
// anything past the first line are dropped.
func CleanTitle(s string) string {
	s = StripFences(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
