package integration

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid integration status transition")
	ErrNotReady          = errors.New("integration not ready")
	ErrUnknownStatus     = errors.New("unknown integration status")
	ErrEmptyID           = errors.New("app and integration id are required")
	ErrStoreConflict     = errors.New("integration record changed concurrently")
)

// TransitionError describes a rejected status change.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// NotReadyError carries the status that blocked delivery.
type NotReadyError struct {
	AppID         string
	IntegrationID string
	Status        Status
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("%s: %s/%s is %s", ErrNotReady, e.AppID, e.IntegrationID, e.Status)
}

func (e *NotReadyError) Unwrap() error {
	return ErrNotReady
}
