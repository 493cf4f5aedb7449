package users

import (
	"time"
)

// Device types accepted for mobile push tokens.
const (
	DeviceIOS     = "ios"
	DeviceAndroid = "android"
)

// MobilePushToken is one registered device. Token values are unique per user.
type MobilePushToken struct {
	Token            string    `json:"token"`
	DeviceType       string    `json:"device_type,omitempty"`
	DeviceIdentifier string    `json:"device_identifier,omitempty"`
	EndpointARN      string    `json:"endpoint_arn,omitempty"`
	LastWakeup       time.Time `json:"last_wakeup,omitzero"`
	CreatedAt        time.Time `json:"created_at,omitzero"`
}

func (t MobilePushToken) equal(o MobilePushToken) bool {
	return t.Token == o.Token &&
		t.DeviceType == o.DeviceType &&
		t.DeviceIdentifier == o.DeviceIdentifier &&
		t.EndpointARN == o.EndpointARN &&
		t.LastWakeup.Equal(o.LastWakeup) &&
		t.CreatedAt.Equal(o.CreatedAt)
}

// ChannelSetting says whether a channel fires for the user and how long its
// digest window is. A zero delay delivers immediately.
type ChannelSetting struct {
	Send           bool `json:"send"`
	DelayInSeconds int  `json:"delay_in_seconds,omitempty"`
}

// Delay returns the digest window as a duration.
func (s ChannelSetting) Delay() time.Duration {
	return time.Duration(max(s.DelayInSeconds, 0)) * time.Second
}

// User is a notification recipient within an app.
type User struct {
	ID      string `json:"id"`
	AppID   string `json:"app_id"`
	Version int64  `json:"version"`

	EmailAddress      string `json:"email_address,omitempty"`
	PhoneNumber       string `json:"phone_number,omitempty"`
	PreferredLanguage string `json:"preferred_language,omitempty"`

	MobilePushTokens     []MobilePushToken         `json:"mobile_push_tokens,omitempty"`
	WebPushSubscriptions []string                  `json:"web_push_subscriptions,omitempty"`
	Settings             map[string]ChannelSetting `json:"settings,omitempty"`
}

// New returns a user of appID with no contact details. Every channel falls
// back to the dispatcher default until configured.
func New(appID, id string) User {
	return User{ID: id, AppID: appID}
}

func (u User) AggregateID() string     { return u.ID }
func (u User) AggregateVersion() int64 { return u.Version }

// WithVersion returns a copy of u at version v.
func (u User) WithVersion(v int64) User {
	u.Version = v
	return u
}

// EndpointARNs returns the push endpoints of every registered device.
func (u User) EndpointARNs() []string {
	arns := make([]string, 0, len(u.MobilePushTokens))
	for _, t := range u.MobilePushTokens {
		if t.EndpointARN != "" {
			arns = append(arns, t.EndpointARN)
		}
	}
	return arns
}
