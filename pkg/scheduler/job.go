package scheduler

import (
	"context"
	"time"
)

// Job is one scheduled payload.
type Job[T any] struct {
	ID         string    `json:"id"`
	Key        string    `json:"key"`
	Payload    T         `json:"payload"`
	NotBefore  time.Time `json:"not_before"`
	RetryCount int       `json:"retry_count"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Handler processes one batch of payloads scheduled under key. Changes Handle
// makes to batch elements are kept, so on Retry a handler can narrow what the
// next attempt carries.
type Handler[T any] interface {
	Handle(ctx context.Context, key string, batch []T) Outcome
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc[T any] func(ctx context.Context, key string, batch []T) Outcome

// Handle calls f(ctx, key, batch).
func (f HandlerFunc[T]) Handle(ctx context.Context, key string, batch []T) Outcome {
	return f(ctx, key, batch)
}

// OutcomeKind classifies a handler result.
type OutcomeKind int

const (
	OutcomeCompleted OutcomeKind = iota
	OutcomeRetry
	OutcomeFailed
)

// String returns the lowercase name of k.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCompleted:
		return "completed"
	case OutcomeRetry:
		return "retry"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is what a handler reports for a batch.
type Outcome struct {
	kind  OutcomeKind
	after time.Duration
	err   error
}

// Completed reports that the batch was delivered.
func Completed() Outcome {
	return Outcome{kind: OutcomeCompleted}
}

// Retry asks for the batch to be attempted again no sooner than after. The
// scheduler's backoff may push it further out.
func Retry(after time.Duration) Outcome {
	return Outcome{kind: OutcomeRetry, after: max(after, 0)}
}

// Failed reports a terminal failure. The batch is not retried.
func Failed(err error) Outcome {
	return Outcome{kind: OutcomeFailed, err: err}
}

// WithCause attaches the error behind a Retry.
func (o Outcome) WithCause(err error) Outcome {
	o.err = err
	return o
}

// Kind reports whether the batch completed, should be retried or failed.
func (o Outcome) Kind() OutcomeKind { return o.kind }

// After is the minimum wait before a retry. Zero for other kinds.
func (o Outcome) After() time.Duration { return o.after }

// Err is the cause of a Retry or Failed outcome, if any.
func (o Outcome) Err() error { return o.err }
