// Package command applies validated mutations to versioned aggregates.
//
// A Command validates its own input and maps an aggregate snapshot to the
// next snapshot, reporting whether anything changed. Execute is pure: it
// performs no I/O and bumps the version only for an accepted change.
//
// Persistence is optimistic. Update runs the read-modify-write cycle against
// a Repository and retries on ErrVersionConflict:
//
//	app, err := command.Update(ctx, repo, appID, apps.UpdateEmailVerificationStatus{
//		Status: apps.EmailVerified,
//	})
//	if command.IsValidation(err) {
//		// reject the request
//	}
//
// Validation failures are never retried.
package command
