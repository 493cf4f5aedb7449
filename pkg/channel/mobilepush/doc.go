// Package mobilepush delivers digests to iOS and Android devices through
// Amazon SNS platform endpoints.
//
// Message.To holds endpoint ARNs. Endpoints that SNS reports as disabled are
// passed to the OnDisabled hook so the owning token can be removed from the
// user, and count as permanent failures.
package mobilepush
