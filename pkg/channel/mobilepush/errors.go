package mobilepush

import "errors"

var (
	ErrFailedToPublish  = errors.New("mobilepush: failed to publish")
	ErrFailedToRegister = errors.New("mobilepush: failed to register device token")
	ErrUnknownPlatform  = errors.New("mobilepush: unknown device platform")
	ErrEndpointDisabled = errors.New("mobilepush: endpoint disabled")
)
