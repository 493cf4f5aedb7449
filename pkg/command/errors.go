package command

import "errors"

var (
	ErrNotFound         = errors.New("aggregate not found")
	ErrAlreadyExists    = errors.New("aggregate already exists")
	ErrVersionConflict  = errors.New("aggregate version conflict")
	ErrTooManyConflicts = errors.New("too many version conflicts")
	ErrNilCommand       = errors.New("command is nil")
)
