// Package integration tracks whether an app's external integrations, such as
// an email provider credential, are verified and may be used for delivery.
//
// Every (app, integration) pair holds one Record. Its Status moves along a
// fixed table:
//
//	Pending  -> Verified
//	Pending  -> VerificationFailed
//	Verified -> VerificationFailed
//
// Nothing leaves VerificationFailed on its own. Reverify starts a fresh
// Pending record with the next attempt number. Only Verified is ready to
// send; Tracker.Ready returns ErrNotReady for everything else, and the
// delivery pipeline calls it before a flush reaches a transport.
package integration
