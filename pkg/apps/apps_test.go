package apps_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/apps"
	"github.com/dmitrymomot/notifykit/pkg/command"
	"github.com/dmitrymomot/notifykit/pkg/integration"
	"github.com/dmitrymomot/notifykit/pkg/logger"
)

func TestUpdateEmailVerificationStatus(t *testing.T) {
	t.Parallel()

	app := apps.New("app-1", "Acme").WithVersion(4)

	t.Run("same status is a no-op", func(t *testing.T) {
		t.Parallel()
		changed, next, err := command.Execute[apps.App](apps.UpdateEmailVerificationStatus{Status: apps.EmailUnverified}, app)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, app, next)
	})

	t.Run("new status bumps version", func(t *testing.T) {
		t.Parallel()
		changed, next, err := command.Execute[apps.App](apps.UpdateEmailVerificationStatus{Status: apps.EmailVerified}, app)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, apps.EmailVerified, next.EmailVerificationStatus)
		assert.Equal(t, int64(5), next.Version)
		assert.Equal(t, apps.EmailUnverified, app.EmailVerificationStatus)
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		t.Parallel()
		_, _, err := command.Execute[apps.App](apps.UpdateEmailVerificationStatus{Status: "maybe"}, app)
		assert.True(t, command.IsValidation(err))
	})
}

func TestSetIntegration(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rec := integration.Record{Status: integration.Verified, Attempt: 1, UpdatedAt: at}
	app := apps.New("app-1", "Acme")

	changed, next, err := command.Execute[apps.App](apps.SetIntegration{IntegrationID: "postmark", Record: rec}, app)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, rec, next.Integrations["postmark"])
	assert.Nil(t, app.Integrations)

	// Same record in another location is still equal.
	same := rec
	same.UpdatedAt = at.In(time.FixedZone("CET", 3600))
	changed, _, err = command.Execute[apps.App](apps.SetIntegration{IntegrationID: "postmark", Record: same}, next)
	require.NoError(t, err)
	assert.False(t, changed)

	_, _, err = command.Execute[apps.App](apps.SetIntegration{Record: rec}, app)
	assert.True(t, command.IsValidation(err))
}

func TestUpdateSender(t *testing.T) {
	t.Parallel()

	app := apps.New("app-1", "Acme")
	app.EmailAddress = "hello@acme.io"
	app.EmailVerificationStatus = apps.EmailVerified

	changed, next, err := command.Execute[apps.App](apps.UpdateSender{EmailAddress: "hello@acme.io", EmailName: "Acme"}, app)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, apps.EmailVerified, next.EmailVerificationStatus)

	changed, next, err = command.Execute[apps.App](apps.UpdateSender{EmailAddress: "news@acme.io", EmailName: "Acme"}, next)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, apps.EmailUnverified, next.EmailVerificationStatus)

	_, _, err = command.Execute[apps.App](apps.UpdateSender{EmailAddress: "not-an-email"}, app)
	assert.True(t, command.IsValidation(err))
}

func TestIntegrationStore_WithTracker(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := command.NewMemoryRepository[apps.App]()
	_, err := repo.Create(ctx, apps.New("app-1", "Acme"))
	require.NoError(t, err)

	tr := integration.NewTracker(apps.NewIntegrationStore(repo), integration.WithLogger(logger.Discard()))

	status, err := tr.Get(ctx, "app-1", "ses")
	require.NoError(t, err)
	assert.Equal(t, integration.Pending, status)

	require.NoError(t, tr.Set(ctx, "app-1", "ses", integration.Verified))
	require.NoError(t, tr.Ready(ctx, "app-1", "ses"))
	assert.ErrorIs(t, tr.Set(ctx, "app-1", "ses", integration.Pending), integration.ErrInvalidTransition)

	app, err := repo.Get(ctx, "app-1")
	require.NoError(t, err)
	assert.Equal(t, integration.Verified, app.Integrations["ses"].Status)
	assert.Equal(t, int64(2), app.Version)

	// A repeated status does not create a new version.
	require.NoError(t, tr.Set(ctx, "app-1", "ses", integration.Verified))
	app, err = repo.Get(ctx, "app-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), app.Version)

	all, err := tr.List(ctx, "app-1")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = tr.Get(ctx, "missing", "ses")
	assert.ErrorIs(t, err, command.ErrNotFound)
}
