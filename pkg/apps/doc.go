// Package apps holds the App aggregate, the commands that mutate it and its
// repositories.
//
// Commands are pure and run through pkg/command:
//
//	app, err := command.Update(ctx, repo, appID, apps.UpdateEmailVerificationStatus{
//		Status: apps.EmailVerified,
//	})
//
// PostgresRepository stores each app as a JSONB document next to its version
// column and rejects stale writes with command.ErrVersionConflict. The
// schema ships in Migrations. IntegrationStore exposes the per-app
// integration records to integration.Tracker.
package apps
