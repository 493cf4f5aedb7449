package apps

import (
	"github.com/dmitrymomot/notifykit/pkg/integration"
)

// EmailVerificationStatus tracks the app's sender address verification with
// the email provider.
type EmailVerificationStatus string

const (
	EmailUnverified EmailVerificationStatus = "unverified"
	EmailPending    EmailVerificationStatus = "pending"
	EmailVerified   EmailVerificationStatus = "verified"
	EmailFailed     EmailVerificationStatus = "failed"
)

var emailStatuses = []EmailVerificationStatus{EmailUnverified, EmailPending, EmailVerified, EmailFailed}

// App is a tenant of the notification platform.
type App struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`
	Name    string `json:"name"`

	EmailAddress            string                  `json:"email_address,omitempty"`
	EmailName               string                  `json:"email_name,omitempty"`
	EmailVerificationStatus EmailVerificationStatus `json:"email_verification_status"`

	Languages    []string                      `json:"languages,omitempty"`
	Integrations map[string]integration.Record `json:"integrations,omitempty"`
}

func (a App) AggregateID() string     { return a.ID }
func (a App) AggregateVersion() int64 { return a.Version }

// WithVersion returns a copy of a at version v.
func (a App) WithVersion(v int64) App {
	a.Version = v
	return a
}

// New returns an app at version zero, ready for Repository.Create.
func New(id, name string) App {
	return App{
		ID:                      id,
		Name:                    name,
		EmailVerificationStatus: EmailUnverified,
		Languages:               []string{"en"},
	}
}
