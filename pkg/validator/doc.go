// Package validator builds declarative input checks for commands.
//
// A Rule pairs a Check function with the ValidationError reported when the
// check fails. Apply evaluates every rule and aggregates the failures into
// ValidationErrors, which implements error:
//
//	err := validator.Apply(
//		validator.Required("token", cmd.Token.Token),
//		validator.OneOf("device_type", cmd.Token.DeviceType, []string{"ios", "android"}),
//	)
//	if verrs := validator.ExtractValidationErrors(err); verrs != nil {
//		// inspect per-field messages
//	}
//
// Rules carry a stable Code next to the human readable Message so callers can
// map failures to their own messages.
package validator
