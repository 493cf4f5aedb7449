package command

import (
	"github.com/dmitrymomot/notifykit/pkg/validator"
)

// Versioned is the constraint every aggregate satisfies. WithVersion returns
// a copy carrying version v.
type Versioned[A any] interface {
	AggregateID() string
	AggregateVersion() int64
	WithVersion(v int64) A
}

// Command is a named mutation of aggregate A.
type Command[A any] interface {
	// Validate checks the command input without looking at any aggregate.
	Validate() error
	// Apply returns the next snapshot and whether it differs from current.
	// It must not modify current.
	Apply(current A) (next A, changed bool)
}

// Execute validates cmd and applies it to snapshot. An unchanged result
// returns snapshot as is; a change gets version+1.
func Execute[A Versioned[A]](cmd Command[A], snapshot A) (bool, A, error) {
	if cmd == nil {
		return false, snapshot, ErrNilCommand
	}
	if err := cmd.Validate(); err != nil {
		return false, snapshot, err
	}

	next, changed := cmd.Apply(snapshot)
	if !changed {
		return false, snapshot, nil
	}
	return true, next.WithVersion(snapshot.AggregateVersion() + 1), nil
}

// IsValidation reports whether err was produced by command validation.
func IsValidation(err error) bool {
	return validator.IsValidationError(err)
}
