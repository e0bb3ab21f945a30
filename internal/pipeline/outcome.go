// Package pipeline fans a batch of identifiers out to a fixed pool of
// workers and folds the per-item outcomes back into one result set.
package pipeline

import "time"

// Kind tags an Outcome.
type Kind int

const (
	KindSuccess Kind = iota
	KindSkipped
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindSkipped:
		return "skipped"
	case KindFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome is the result of processing one identifier. Value is set only for
// KindSuccess; Err only for KindFailed.
type Outcome[T any] struct {
	ID      string
	Kind    Kind
	Value   T
	Reason  string
	Err     error
	Elapsed time.Duration
}

// Succeed wraps a produced record.
func Succeed[T any](id string, v T) Outcome[T] {
	return Outcome[T]{ID: id, Kind: KindSuccess, Value: v}
}

// Skip marks an item that legitimately has nothing to contribute.
func Skip[T any](id, reason string) Outcome[T] {
	return Outcome[T]{ID: id, Kind: KindSkipped, Reason: reason}
}

// Fail marks an item that hit an unexpected error.
func Fail[T any](id string, err error) Outcome[T] {
	o := Outcome[T]{ID: id, Kind: KindFailed, Err: err}
	if err != nil {
		o.Reason = err.Error()
	}
	return o
}
