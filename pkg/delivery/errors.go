package delivery

import "errors"

var (
	ErrNoScheduler  = errors.New("delivery: no scheduler configured")
	ErrInvalidKey   = errors.New("delivery: malformed job key")
	ErrRenderFailed = errors.New("delivery: failed to render message")
)
