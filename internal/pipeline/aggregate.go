package pipeline

import "context"

// Stats counts outcomes by kind. Succeeded always equals the length of the
// collected slice.
type Stats struct {
	Requested int `json:"requested"`
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Observer sees every outcome, including skips and failures.
type Observer[T any] func(Outcome[T])

// Collect drains in and keeps the Success payloads in arrival order.
// Skipped and Failed outcomes only show up in Stats and observers.
func Collect[T any](in <-chan Outcome[T], observers ...Observer[T]) ([]T, Stats) {
	out := make([]T, 0)
	var stats Stats
	for o := range in {
		stats.Requested++
		switch o.Kind {
		case KindSuccess:
			stats.Succeeded++
			out = append(out, o.Value)
		case KindSkipped:
			stats.Skipped++
		default:
			stats.Failed++
		}
		for _, fn := range observers {
			fn(o)
		}
	}
	return out, stats
}

// Execute runs the batch and collects the results.
func Execute[T any](ctx context.Context, ids []string, worker Worker[T], opts Options, observers ...Observer[T]) ([]T, Stats) {
	return Collect(Run(ctx, ids, worker, opts), observers...)
}
