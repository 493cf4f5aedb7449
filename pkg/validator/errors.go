package validator

import "errors"

// ErrValidationFailed is matched by errors.Is for any ValidationErrors value.
var ErrValidationFailed = errors.New("validation failed")
