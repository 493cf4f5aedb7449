package users

import (
	"maps"
	"slices"

	"github.com/dmitrymomot/notifykit/pkg/validator"
)

// AddMobileToken registers a device. An entry with the same Token is
// replaced by the new one, which goes to the end of the list.
type AddMobileToken struct {
	Token MobilePushToken
}

// Validate checks the token and its device type.
func (c AddMobileToken) Validate() error {
	return validator.Apply(
		validator.Required("token.token", c.Token.Token),
		validator.MaxLen("token.token", c.Token.Token, 4096),
		validator.When(c.Token.DeviceType != "",
			validator.OneOf("token.device_type", c.Token.DeviceType, []string{DeviceIOS, DeviceAndroid})),
	)
}

// Apply reports false when the same token is already registered unchanged.
func (c AddMobileToken) Apply(u User) (User, bool) {
	if slices.ContainsFunc(u.MobilePushTokens, c.Token.equal) {
		return u, false
	}

	tokens := make([]MobilePushToken, 0, len(u.MobilePushTokens)+1)
	for _, t := range u.MobilePushTokens {
		if t.Token != c.Token.Token {
			tokens = append(tokens, t)
		}
	}
	u.MobilePushTokens = append(tokens, c.Token)
	return u, true
}

// RemoveMobileToken unregisters a device. Removing an unknown token is a
// no-op.
type RemoveMobileToken struct {
	Token string
}

// Validate requires a token.
func (c RemoveMobileToken) Validate() error {
	return validator.Apply(validator.Required("token", c.Token))
}

// Apply removes the first entry with the token.
func (c RemoveMobileToken) Apply(u User) (User, bool) {
	i := slices.IndexFunc(u.MobilePushTokens, func(t MobilePushToken) bool { return t.Token == c.Token })
	if i < 0 {
		return u, false
	}
	u.MobilePushTokens = slices.Delete(slices.Clone(u.MobilePushTokens), i, i+1)
	return u, true
}

// UpdateChannelSetting sets the delivery preference for one channel.
type UpdateChannelSetting struct {
	Channel string
	Setting ChannelSetting
}

// Validate requires a channel and a non-negative delay.
func (c UpdateChannelSetting) Validate() error {
	return validator.Apply(
		validator.Required("channel", c.Channel),
		validator.MinNum("setting.delay_in_seconds", c.Setting.DelayInSeconds, 0),
	)
}

// Apply copies the settings map before writing to it.
func (c UpdateChannelSetting) Apply(u User) (User, bool) {
	if cur, ok := u.Settings[c.Channel]; ok && cur == c.Setting {
		return u, false
	}
	settings := maps.Clone(u.Settings)
	if settings == nil {
		settings = make(map[string]ChannelSetting, 1)
	}
	settings[c.Channel] = c.Setting
	u.Settings = settings
	return u, true
}

// UpdateContact sets the email address and phone number. Empty values clear
// the address.
type UpdateContact struct {
	EmailAddress string
	PhoneNumber  string
}

// Validate checks only the non-empty fields.
func (c UpdateContact) Validate() error {
	return validator.Apply(
		validator.When(c.EmailAddress != "", validator.ValidEmail("email_address", c.EmailAddress)),
		validator.When(c.PhoneNumber != "", validator.ValidPhone("phone_number", c.PhoneNumber)),
	)
}

// Apply reports false when both values are unchanged.
func (c UpdateContact) Apply(u User) (User, bool) {
	if u.EmailAddress == c.EmailAddress && u.PhoneNumber == c.PhoneNumber {
		return u, false
	}
	u.EmailAddress = c.EmailAddress
	u.PhoneNumber = c.PhoneNumber
	return u, true
}

// RemoveMobileEndpoint drops every token registered under an SNS endpoint.
type RemoveMobileEndpoint struct {
	EndpointARN string
}

// Validate requires an endpoint ARN.
func (c RemoveMobileEndpoint) Validate() error {
	return validator.Apply(validator.Required("endpoint_arn", c.EndpointARN))
}

// Apply reports false when no token uses the endpoint.
func (c RemoveMobileEndpoint) Apply(u User) (User, bool) {
	match := func(t MobilePushToken) bool { return t.EndpointARN == c.EndpointARN }
	if !slices.ContainsFunc(u.MobilePushTokens, match) {
		return u, false
	}
	u.MobilePushTokens = slices.DeleteFunc(slices.Clone(u.MobilePushTokens), match)
	return u, true
}

// UpdateLanguage sets the language templates are looked up in.
type UpdateLanguage struct {
	Language string
}

// Validate limits the language tag length. An empty tag clears the preference.
func (c UpdateLanguage) Validate() error {
	return validator.Apply(validator.MaxLen("language", c.Language, 16))
}

// Apply sets PreferredLanguage.
func (c UpdateLanguage) Apply(u User) (User, bool) {
	if u.PreferredLanguage == c.Language {
		return u, false
	}
	u.PreferredLanguage = c.Language
	return u, true
}

// AddWebPushSubscription stores a web push relay URL once.
type AddWebPushSubscription struct {
	URL string
}

// Validate requires an https URL.
func (c AddWebPushSubscription) Validate() error {
	return validator.Apply(
		validator.Required("url", c.URL),
		validator.ValidURL("url", c.URL, "https"),
	)
}

// Apply appends the URL unless it is already stored.
func (c AddWebPushSubscription) Apply(u User) (User, bool) {
	if slices.Contains(u.WebPushSubscriptions, c.URL) {
		return u, false
	}
	u.WebPushSubscriptions = append(slices.Clone(u.WebPushSubscriptions), c.URL)
	return u, true
}

// RemoveWebPushSubscription drops a relay URL, typically after the relay
// answered 404 or 410.
type RemoveWebPushSubscription struct {
	URL string
}

// Validate requires a URL.
func (c RemoveWebPushSubscription) Validate() error {
	return validator.Apply(validator.Required("url", c.URL))
}

// Apply reports false for an unknown URL.
func (c RemoveWebPushSubscription) Apply(u User) (User, bool) {
	i := slices.Index(u.WebPushSubscriptions, c.URL)
	if i < 0 {
		return u, false
	}
	u.WebPushSubscriptions = slices.Delete(slices.Clone(u.WebPushSubscriptions), i, i+1)
	return u, true
}
