package users

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/command"
	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Registrar creates a push endpoint for a device token and returns its ARN.
// *mobilepush.Channel implements it.
type Registrar interface {
	Register(ctx context.Context, userID, token, deviceType string) (string, error)
}

// Devices registers and retires mobile push tokens.
type Devices struct {
	repo      command.Repository[User]
	registrar Registrar
	logger    *slog.Logger
	now       func() time.Time
}

// DevicesOption configures Devices.
type DevicesOption func(*Devices)

func WithDevicesLogger(l *slog.Logger) DevicesOption {
	return func(d *Devices) {
		if l != nil {
			d.logger = l
		}
	}
}

func WithDevicesClock(now func() time.Time) DevicesOption {
	return func(d *Devices) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDevices registers devices through registrar and stores them in repo.
func NewDevices(repo command.Repository[User], registrar Registrar, opts ...DevicesOption) *Devices {
	d := &Devices{
		repo:      repo,
		registrar: registrar,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register creates the push endpoint for token and stores the token on the
// user. A re-registered token replaces the previous entry.
func (d *Devices) Register(ctx context.Context, userID string, token MobilePushToken) (User, error) {
	cmd := AddMobileToken{Token: token}
	if err := cmd.Validate(); err != nil {
		return User{}, err
	}
	if d.registrar == nil {
		return User{}, ErrNoRegistrar
	}

	arn, err := d.registrar.Register(ctx, userID, token.Token, token.DeviceType)
	if err != nil {
		return User{}, errors.Join(ErrRegistrationFailed, err)
	}

	now := d.now()
	cmd.Token.EndpointARN = arn
	cmd.Token.LastWakeup = now
	if cmd.Token.CreatedAt.IsZero() {
		cmd.Token.CreatedAt = now
	}

	return command.Update[User](ctx, d.repo, userID, cmd)
}

// Unregister removes token from the user.
func (d *Devices) Unregister(ctx context.Context, userID, token string) (User, error) {
	return command.Update[User](ctx, d.repo, userID, RemoveMobileToken{Token: token})
}

// Disabled removes the tokens behind an endpoint the push provider disabled.
// Its signature matches mobilepush.DisabledFunc.
func (d *Devices) Disabled(ctx context.Context, userID, endpointARN string) {
	if _, err := command.Update[User](ctx, d.repo, userID, RemoveMobileEndpoint{EndpointARN: endpointARN}); err != nil {
		d.logger.LogAttrs(ctx, slog.LevelError, "failed to remove disabled push endpoint",
			logger.Component("users"),
			logger.UserID(userID),
			slog.String("endpoint_arn", endpointARN),
			logger.Error(err),
		)
	}
}
