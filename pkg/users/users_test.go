package users_test

import (
	"context"
	"math/rand/v2"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/command"
	"github.com/dmitrymomot/notifykit/pkg/users"
)

func tokens(u users.User) []string {
	out := make([]string, 0, len(u.MobilePushTokens))
	for _, t := range u.MobilePushTokens {
		out = append(out, t.Token)
	}
	return out
}

func TestAddMobileToken(t *testing.T) {
	t.Parallel()

	u := users.User{ID: "u1", Version: 1}

	changed, u, err := command.Execute[users.User](users.AddMobileToken{Token: users.MobilePushToken{Token: "a", DeviceType: users.DeviceIOS}}, u)
	require.NoError(t, err)
	assert.True(t, changed)

	_, u, err = command.Execute[users.User](users.AddMobileToken{Token: users.MobilePushToken{Token: "b"}}, u)
	require.NoError(t, err)

	before := u
	changed, u, err = command.Execute[users.User](users.AddMobileToken{Token: users.MobilePushToken{Token: "a", DeviceType: users.DeviceAndroid}}, u)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"b", "a"}, tokens(u))
	assert.Equal(t, users.DeviceAndroid, u.MobilePushTokens[1].DeviceType)
	assert.Equal(t, int64(4), u.Version)
	assert.Equal(t, []string{"a", "b"}, tokens(before))

	// The identical token again changes nothing.
	changed, same, err := command.Execute[users.User](users.AddMobileToken{Token: users.MobilePushToken{Token: "a", DeviceType: users.DeviceAndroid}}, u)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, u, same)
}

func TestAddMobileToken_Validation(t *testing.T) {
	t.Parallel()

	u := users.User{ID: "u1"}
	for _, tok := range []users.MobilePushToken{
		{},
		{Token: "   "},
		{Token: "a", DeviceType: "windows"},
	} {
		changed, next, err := command.Execute[users.User](users.AddMobileToken{Token: tok}, u)
		assert.True(t, command.IsValidation(err))
		assert.False(t, changed)
		assert.Equal(t, u, next)
	}
}

func TestAddMobileToken_Uniqueness(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))
	u := users.User{ID: "u1"}
	last := map[string]string{}

	for i := range 200 {
		tok := "t" + strconv.Itoa(rng.IntN(10))
		ident := "device-" + strconv.Itoa(i)
		var err error
		_, u, err = command.Execute[users.User](users.AddMobileToken{Token: users.MobilePushToken{Token: tok, DeviceIdentifier: ident}}, u)
		require.NoError(t, err)
		last[tok] = ident
	}

	seen := map[string]bool{}
	for _, tok := range u.MobilePushTokens {
		assert.False(t, seen[tok.Token], "duplicate token %s", tok.Token)
		seen[tok.Token] = true
		assert.Equal(t, last[tok.Token], tok.DeviceIdentifier)
	}
	assert.Len(t, u.MobilePushTokens, len(last))
}

func TestRemoveMobileToken(t *testing.T) {
	t.Parallel()

	u := users.User{ID: "u1", MobilePushTokens: []users.MobilePushToken{{Token: "a"}, {Token: "b"}}}

	changed, next, err := command.Execute[users.User](users.RemoveMobileToken{Token: "a"}, u)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"b"}, tokens(next))
	assert.Equal(t, []string{"a", "b"}, tokens(u))

	changed, _, err = command.Execute[users.User](users.RemoveMobileToken{Token: "zzz"}, u)
	require.NoError(t, err)
	assert.False(t, changed)

	_, _, err = command.Execute[users.User](users.RemoveMobileToken{}, u)
	assert.True(t, command.IsValidation(err))
}

func TestUpdateChannelSetting(t *testing.T) {
	t.Parallel()

	u := users.User{ID: "u1"}
	setting := users.ChannelSetting{Send: true, DelayInSeconds: 300}

	changed, u, err := command.Execute[users.User](users.UpdateChannelSetting{Channel: "email", Setting: setting}, u)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 5*time.Minute, u.Settings["email"].Delay())

	changed, _, err = command.Execute[users.User](users.UpdateChannelSetting{Channel: "email", Setting: setting}, u)
	require.NoError(t, err)
	assert.False(t, changed)

	_, _, err = command.Execute[users.User](users.UpdateChannelSetting{Channel: "email", Setting: users.ChannelSetting{DelayInSeconds: -1}}, u)
	assert.True(t, command.IsValidation(err))
}

func TestUpdateContact(t *testing.T) {
	t.Parallel()

	u := users.User{ID: "u1"}
	changed, u, err := command.Execute[users.User](users.UpdateContact{EmailAddress: "jo@example.com", PhoneNumber: "+4915112345678"}, u)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "jo@example.com", u.EmailAddress)

	_, _, err = command.Execute[users.User](users.UpdateContact{PhoneNumber: "12345"}, u)
	assert.True(t, command.IsValidation(err))
}

func TestUser_EndpointARNs(t *testing.T) {
	t.Parallel()

	u := users.User{MobilePushTokens: []users.MobilePushToken{
		{Token: "a", EndpointARN: "arn:1"},
		{Token: "b"},
		{Token: "c", EndpointARN: "arn:3"},
	}}
	assert.Equal(t, []string{"arn:1", "arn:3"}, u.EndpointARNs())
}

func TestConcurrentTokenUpdates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := command.NewMemoryRepository[users.User]()
	_, err := repo.Create(ctx, users.User{ID: "u1"})
	require.NoError(t, err)

	done := make(chan error, 4)
	for i := range 4 {
		go func() {
			_, err := command.Update[users.User](ctx, repo, "u1",
				users.AddMobileToken{Token: users.MobilePushToken{Token: "tok-" + strconv.Itoa(i)}},
				command.WithMaxAttempts(50))
			done <- err
		}()
	}
	for range 4 {
		require.NoError(t, <-done)
	}

	u, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, u.MobilePushTokens, 4)
}

func TestUpdateLanguage(t *testing.T) {
	t.Parallel()

	u := users.New("app-1", "u1").WithVersion(1)
	changed, u, err := command.Execute[users.User](users.UpdateLanguage{Language: "de"}, u)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "de", u.PreferredLanguage)
	assert.Equal(t, int64(2), u.Version)

	changed, _, err = command.Execute[users.User](users.UpdateLanguage{Language: "de"}, u)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestWebPushSubscriptions(t *testing.T) {
	t.Parallel()

	const url = "https://push.example.com/s/1"
	u := users.New("app-1", "u1").WithVersion(1)

	_, _, err := command.Execute[users.User](users.AddWebPushSubscription{URL: "http://insecure.example.com"}, u)
	assert.True(t, command.IsValidation(err))

	changed, u, err := command.Execute[users.User](users.AddWebPushSubscription{URL: url}, u)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, u, err = command.Execute[users.User](users.AddWebPushSubscription{URL: url}, u)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, []string{url}, u.WebPushSubscriptions)

	changed, u, err = command.Execute[users.User](users.RemoveWebPushSubscription{URL: url}, u)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Empty(t, u.WebPushSubscriptions)

	changed, _, err = command.Execute[users.User](users.RemoveWebPushSubscription{URL: url}, u)
	require.NoError(t, err)
	assert.False(t, changed)
}
