package delivery

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/template"
	"github.com/dmitrymomot/notifykit/pkg/users"
	"github.com/dmitrymomot/notifykit/pkg/validator"
)

// MaxTopicLength bounds Event.Topic, which ends up in every job key.
const MaxTopicLength = 128

// Event is a domain event addressed to one user.
type Event struct {
	ID         string            `json:"id"`
	AppID      string            `json:"app_id"`
	UserID     string            `json:"user_id"`
	Topic      string            `json:"topic"`
	Items      []template.Item   `json:"items"`
	Properties map[string]string `json:"properties,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Validate requires app, user and topic and at least one item.
func (e Event) Validate() error {
	return validator.Apply(
		validator.Required("app_id", e.AppID),
		validator.Required("user_id", e.UserID),
		validator.Required("topic", e.Topic),
		validator.MaxLen("topic", e.Topic, MaxTopicLength),
		validator.MinNum("items", len(e.Items), 1),
	)
}

// Recipient is the delivery view of a user: where each channel can reach them
// and how they want to be notified.
type Recipient struct {
	AppID         string
	UserID        string
	Language      string
	Email         string
	Phone         string
	PushEndpoints []string
	WebPushURLs   []string
	Settings      map[string]users.ChannelSetting
}

// RecipientFromUser builds a Recipient from the user aggregate.
func RecipientFromUser(u users.User) Recipient {
	return Recipient{
		AppID:         u.AppID,
		UserID:        u.ID,
		Language:      u.PreferredLanguage,
		Email:         u.EmailAddress,
		Phone:         u.PhoneNumber,
		PushEndpoints: u.EndpointARNs(),
		WebPushURLs:   slices.Clone(u.WebPushSubscriptions),
		Settings:      maps.Clone(u.Settings),
	}
}

// Addresses returns the transport addresses for channelID. In-app delivery
// is addressed by user id.
func (r Recipient) Addresses(channelID string) []string {
	switch channelID {
	case channel.Email:
		return nonEmpty(r.Email)
	case channel.SMS:
		return nonEmpty(r.Phone)
	case channel.MobilePush:
		return slices.Clone(r.PushEndpoints)
	case channel.WebPush:
		return slices.Clone(r.WebPushURLs)
	case channel.InApp:
		return nonEmpty(r.UserID)
	default:
		return nil
	}
}

func nonEmpty(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return []string{s}
}

// Job is the scheduler payload for one event on one channel.
type Job struct {
	EventID    string            `json:"event_id"`
	AppID      string            `json:"app_id"`
	UserID     string            `json:"user_id"`
	Topic      string            `json:"topic"`
	Channel    string            `json:"channel"`
	Language   string            `json:"language,omitempty"`
	To         []string          `json:"to"`
	Items      []template.Item   `json:"items"`
	Properties map[string]string `json:"properties,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

const keySeparator = "|"

// Key is the batching key of a recipient's topic on a channel.
func Key(appID, userID, channelID, topic string) string {
	return strings.Join([]string{appID + ":" + userID, channelID, topic}, keySeparator)
}

// ParseKey splits a key produced by Key.
func ParseKey(key string) (appID, userID, channelID, topic string, err error) {
	parts := strings.SplitN(key, keySeparator, 3)
	if len(parts) != 3 {
		return "", "", "", "", ErrInvalidKey
	}
	appID, userID, ok := strings.Cut(parts[0], ":")
	if !ok {
		return "", "", "", "", ErrInvalidKey
	}
	return appID, userID, parts[1], parts[2], nil
}
