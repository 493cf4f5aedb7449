// Package logger is a thin layer over log/slog used by every notifykit
// component.
//
// New builds a *slog.Logger from functional options (format, level, static
// attributes, context extractors); FromConfig does the same from the
// env-driven Config used by the binary. Attribute helpers in attr.go keep key
// names consistent across packages:
//
//	log.LogAttrs(ctx, slog.LevelWarn, "flush failed",
//	    logger.JobKey(key),
//	    logger.Channel("email"),
//	    logger.Error(err),
//	)
//
// Helpers that receive a zero value (nil error, empty id) return an empty
// slog.Attr which slog drops, so callers never need a nil check.
package logger
