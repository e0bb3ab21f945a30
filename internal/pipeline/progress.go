package pipeline

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Progress receives completion ticks. done increases by one per call.
type Progress interface {
	Tick(done, total int)
}

// ProgressFunc adapts a function to Progress.
type ProgressFunc func(done, total int)

func (f ProgressFunc) Tick(done, total int) { f(done, total) }

// LogProgress logs at INFO every `every` items and on the last one.
func LogProgress(label string, every int) Progress {
	if every < 1 {
		every = 1
	}
	started := time.Now()
	return ProgressFunc(func(done, total int) {
		if done%every != 0 && done != total {
			return
		}
		slog.Info(label,
			slog.Int("done", done),
			slog.Int("total", total),
			slog.Duration("elapsed", time.Since(started).Round(time.Millisecond)))
	})
}

// BarProgress redraws a one-line progress bar on w (usually stderr).
type BarProgress struct {
	mu      sync.Mutex
	w       io.Writer
	label   string
	started time.Time
}

// NewBarProgress returns a bar writing to w.
func NewBarProgress(w io.Writer, label string) *BarProgress {
	return &BarProgress{w: w, label: label, started: time.Now()}
}

func (b *BarProgress) Tick(done, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	const width = 30
	filled := width
	pct := 100
	if total > 0 {
		filled = done * width / total
		pct = done * 100 / total
	}
	bar := make([]byte, width)
	for i := range bar {
		if i < filled {
			bar[i] = '#'
		} else {
			bar[i] = '.'
		}
	}
	fmt.Fprintf(b.w, "\r%s [%s] %3d%% %d/%d %s", b.label, bar, pct, done, total,
		time.Since(b.started).Round(time.Second))
	if done == total {
		fmt.Fprintln(b.w)
	}
}
