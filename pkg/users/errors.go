package users

import "errors"

var (
	ErrRegistrationFailed = errors.New("failed to register mobile device")
	ErrNoRegistrar        = errors.New("mobile push registrar is not configured")
)

var (
	ErrInvalidUser    = errors.New("user id and app id are required")
	ErrFailedToLoad   = errors.New("failed to load user")
	ErrFailedToSave   = errors.New("failed to save user")
	ErrFailedToEncode = errors.New("failed to encode user")
	ErrFailedToDecode = errors.New("failed to decode user")
)
