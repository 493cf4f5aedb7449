package apps

import "errors"

var (
	ErrInvalidApp     = errors.New("invalid app")
	ErrFailedToLoad   = errors.New("failed to load app")
	ErrFailedToSave   = errors.New("failed to save app")
	ErrFailedToEncode = errors.New("failed to encode app")
	ErrFailedToDecode = errors.New("failed to decode app")
	ErrInvalidCommand = errors.New("invalid app command")
)
