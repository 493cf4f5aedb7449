package template

import "errors"

var (
	// ErrMissingDefaultVariant is returned by Parse when the body does not
	// define the NOTIFICATION item variant. It is a content error and must not
	// be retried.
	ErrMissingDefaultVariant = errors.New("template: missing NOTIFICATION item variant")

	// ErrTemplateNotFound is returned by Bundle.Lookup callers when no template
	// is registered for a channel.
	ErrTemplateNotFound = errors.New("template: no template for channel")

	// ErrInvalidBundle is returned when a template bundle cannot be decoded or
	// one of its bodies fails to parse.
	ErrInvalidBundle = errors.New("template: invalid bundle")
)
