package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// DefaultMaxAttempts is how many read-modify-write cycles Update tries.
const DefaultMaxAttempts = 5

type updateOptions struct {
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
}

// UpdateOption configures Update.
type UpdateOption func(*updateOptions)

// WithMaxAttempts limits the number of read-modify-write cycles.
func WithMaxAttempts(n int) UpdateOption {
	return func(o *updateOptions) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithRetryDelay sets the upper bound of the random pause between conflicting
// attempts. Zero retries immediately.
func WithRetryDelay(d time.Duration) UpdateOption {
	return func(o *updateOptions) {
		if d >= 0 {
			o.retryDelay = d
		}
	}
}

// WithLogger sets the logger used for conflict reports.
func WithLogger(l *slog.Logger) UpdateOption {
	return func(o *updateOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Update executes cmd against the aggregate stored under id and saves the
// result. It re-reads and retries when another writer won the race.
func Update[A Versioned[A]](ctx context.Context, repo Repository[A], id string, cmd Command[A], opts ...UpdateOption) (A, error) {
	if cmd == nil {
		var zero A
		return zero, ErrNilCommand
	}
	if err := cmd.Validate(); err != nil {
		var zero A
		return zero, err
	}
	return UpdateFunc(ctx, repo, id, func(A) (Command[A], error) { return cmd, nil }, opts...)
}

// UpdateFunc is Update for commands that depend on the current snapshot.
// build runs on every attempt with the freshly loaded aggregate; an error
// from build aborts the update without retry.
func UpdateFunc[A Versioned[A]](ctx context.Context, repo Repository[A], id string, build func(current A) (Command[A], error), opts ...UpdateOption) (A, error) {
	o := updateOptions{
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  10 * time.Millisecond,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	var zero A
	for attempt := 1; ; attempt++ {
		current, err := repo.Get(ctx, id)
		if err != nil {
			return zero, err
		}

		cmd, err := build(current)
		if err != nil {
			return zero, err
		}

		changed, next, err := Execute(cmd, current)
		if err != nil {
			return zero, err
		}
		if !changed {
			return current, nil
		}

		err = repo.Save(ctx, next, current.AggregateVersion())
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return zero, err
		}

		o.logger.LogAttrs(ctx, slog.LevelDebug, "aggregate version conflict",
			logger.Component("command"),
			slog.String("aggregate_id", id),
			slog.Int("attempt", attempt),
		)

		if attempt >= o.maxAttempts {
			return zero, fmt.Errorf("%w: %d attempts: %w", ErrTooManyConflicts, attempt, err)
		}
		if err := pause(ctx, o.retryDelay); err != nil {
			return zero, err
		}
	}
}

func pause(ctx context.Context, upTo time.Duration) error {
	if upTo <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(rand.N(upTo) + 1)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
