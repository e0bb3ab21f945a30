package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Worker processes one identifier. It must return exactly one outcome and
// should honor ctx cancellation.
type Worker[T any] func(ctx context.Context, id string) Outcome[T]

// Options tunes a Run.
type Options struct {
	// Workers is the pool size; values below 1 mean 1.
	Workers int
	// ItemTimeout bounds each worker call. Zero means no per-item deadline.
	ItemTimeout time.Duration
	// Progress receives one Tick per completed item. Optional.
	Progress Progress
}

// Run dispatches every id to worker on a fixed pool of goroutines and
// returns outcomes in completion order. The channel is closed after the last
// outcome. Items never cancel each other.
func Run[T any](ctx context.Context, ids []string, worker Worker[T], opts Options) <-chan Outcome[T] {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	total := len(ids)

	jobs := make(chan string)
	results := make(chan Outcome[T], total)
	out := make(chan Outcome[T], total)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				results <- runOne(ctx, id, worker, opts.ItemTimeout)
			}
		}()
	}

	go func() {
		for _, id := range ids {
			jobs <- id
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	go func() {
		defer close(out)
		done := 0
		for o := range results {
			done++
			if opts.Progress != nil {
				opts.Progress.Tick(done, total)
			}
			out <- o
		}
	}()

	return out
}

// runOne invokes worker with the per-item deadline and turns panics and
// deadline expiry into failures.
func runOne[T any](ctx context.Context, id string, worker Worker[T], timeout time.Duration) (o Outcome[T]) {
	started := time.Now()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("pipeline: worker panic",
				slog.String("id", id),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			o = Fail[T](id, fmt.Errorf("worker panic: %v", r))
		}
		o.ID = id
		o.Elapsed = time.Since(started)
	}()

	o = worker(ctx, id)
	if o.Kind == KindFailed && timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		o = Fail[T](id, fmt.Errorf("item timed out after %s: %w", timeout, ctx.Err()))
	}
	return o
}
