package webpush

import "errors"

var (
	ErrInvalidConfig    = errors.New("webpush: invalid config")
	ErrInvalidURL       = errors.New("webpush: invalid subscription url")
	ErrInvalidPayload   = errors.New("webpush: invalid payload")
	ErrInvalidSignature = errors.New("webpush: invalid signature")
	ErrSubscriptionGone = errors.New("webpush: subscription gone")
	ErrCircuitOpen      = errors.New("webpush: circuit open")
	ErrDeliveryFailed   = errors.New("webpush: delivery failed")
)
