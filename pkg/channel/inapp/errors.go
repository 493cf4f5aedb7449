package inapp

import "errors"

var (
	ErrNotificationNotFound = errors.New("inapp: notification not found")
	ErrMissingID            = errors.New("inapp: notification id is required")
	ErrMissingUserID        = errors.New("inapp: user id is required")
)
