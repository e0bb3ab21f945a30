package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go_titlegen/internal/engine"
)

const (
	titleMaxTokens       = 100
	VariationTemperature = 0.7
	DefaultVariations    = 5

	slowTitleCall = 10 * time.Second
)

var errEmptyTitle = errors.New("model returned an empty title")

// TitleModel queries the fine-tuned title model with the same prompts it
// was trained on.
type TitleModel struct {
	LLM engine.Completer
}

// GenerateTitle returns one title for transcript.
func (m *TitleModel) GenerateTitle(ctx context.Context, transcript string, temperature float64) (string, error) {
	var raw string
	err := engine.TrackOperation(ctx, "title_generate", slowTitleCall, func(ctx context.Context) error {
		var err error
		raw, err = m.LLM.Complete(ctx, engine.Completion{
			System:      engine.TitleSystemPrompt,
			Prompt:      engine.TitleUserMessage(transcript),
			Temperature: temperature,
			MaxTokens:   titleMaxTokens,
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("generate title: %w", err)
	}
	title := engine.CleanTitle(raw)
	if title == "" {
		return "", errEmptyTitle
	}
	return title, nil
}

// GenerateTitles asks for n variations. Failed attempts are logged and
// dropped, so fewer than n titles may come back.
func (m *TitleModel) GenerateTitles(ctx context.Context, transcript string, n int) []string {
	titles := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		title, err := m.GenerateTitle(ctx, transcript, VariationTemperature)
		if err != nil {
			slog.Warn("title variation failed", slog.Int("attempt", i+1), slog.Any("error", err))
			continue
		}
		titles = append(titles, title)
	}
	return titles
}
