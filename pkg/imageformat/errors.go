package imageformat

import "errors"

var (
	ErrInvalidConfig   = errors.New("imageformat: invalid config")
	ErrFailedToLoadAWS = errors.New("imageformat: failed to load aws config")
	ErrFailedToPresign = errors.New("imageformat: failed to presign url")
)
