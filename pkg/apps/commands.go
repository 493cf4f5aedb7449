package apps

import (
	"maps"

	"github.com/dmitrymomot/notifykit/pkg/integration"
	"github.com/dmitrymomot/notifykit/pkg/validator"
)

// UpdateEmailVerificationStatus sets the sender verification status.
type UpdateEmailVerificationStatus struct {
	Status EmailVerificationStatus
}

// Validate checks the status value.
func (c UpdateEmailVerificationStatus) Validate() error {
	return validator.Apply(validator.OneOf("status", c.Status, emailStatuses))
}

// Apply reports false when the status is unchanged.
func (c UpdateEmailVerificationStatus) Apply(app App) (App, bool) {
	if app.EmailVerificationStatus == c.Status {
		return app, false
	}
	app.EmailVerificationStatus = c.Status
	return app, true
}

// SetIntegration stores the record of one integration.
type SetIntegration struct {
	IntegrationID string
	Record        integration.Record
}

// Validate requires an integration ID and a known status.
func (c SetIntegration) Validate() error {
	return validator.Apply(
		validator.Required("integration_id", c.IntegrationID),
		validator.MaxLen("integration_id", c.IntegrationID, 100),
		validator.OneOf("status", c.Record.Status,
			[]integration.Status{integration.Pending, integration.Verified, integration.VerificationFailed}),
	)
}

// Apply copies the integrations map before writing to it.
func (c SetIntegration) Apply(app App) (App, bool) {
	if cur, ok := app.Integrations[c.IntegrationID]; ok && sameRecord(cur, c.Record) {
		return app, false
	}

	next := maps.Clone(app.Integrations)
	if next == nil {
		next = make(map[string]integration.Record, 1)
	}
	next[c.IntegrationID] = c.Record
	app.Integrations = next
	return app, true
}

func sameRecord(a, b integration.Record) bool {
	return a.Status == b.Status &&
		a.Attempt == b.Attempt &&
		a.Reason == b.Reason &&
		a.UpdatedAt.Equal(b.UpdatedAt)
}

// UpdateSender sets the sender address and name. A changed address resets
// the verification status to unverified.
type UpdateSender struct {
	EmailAddress string
	EmailName    string
}

// Validate requires a well-formed sender address.
func (c UpdateSender) Validate() error {
	return validator.Apply(
		validator.ValidEmail("email_address", c.EmailAddress),
		validator.MaxLen("email_name", c.EmailName, 100),
	)
}

// Apply resets the verification status when the address changes.
func (c UpdateSender) Apply(app App) (App, bool) {
	if app.EmailAddress == c.EmailAddress && app.EmailName == c.EmailName {
		return app, false
	}
	if app.EmailAddress != c.EmailAddress {
		app.EmailVerificationStatus = EmailUnverified
	}
	app.EmailAddress = c.EmailAddress
	app.EmailName = c.EmailName
	return app, true
}
