package scheduler

import "errors"

var (
	ErrHandlerNil         = errors.New("scheduler: handler cannot be nil")
	ErrEmptyKey           = errors.New("scheduler: job key is required")
	ErrStopped            = errors.New("scheduler: stopped")
	ErrAlreadyStarted     = errors.New("scheduler: already started")
	ErrStorageRequired    = errors.New("scheduler: persist shutdown policy requires storage")
	ErrMaxRetriesExceeded = errors.New("scheduler: max retries exceeded")
	ErrHandlerPanic       = errors.New("scheduler: handler panicked")
	ErrShutdownTimeout    = errors.New("scheduler: shutdown timed out")
	ErrRestoreFailed      = errors.New("scheduler: failed to restore pending jobs")
	ErrPersistFailed      = errors.New("scheduler: failed to persist pending jobs")
)

var ErrStorageType = errors.New("scheduler: storage payload type does not match scheduler")
