package integration

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Tracker validates and records integration status changes.
type Tracker struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithClock overrides the time source for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTracker creates a tracker over store.
func NewTracker(store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Get returns the status of an integration. Unknown integrations are Pending.
func (t *Tracker) Get(ctx context.Context, appID, integrationID string) (Status, error) {
	rec, err := t.Record(ctx, appID, integrationID)
	if err != nil {
		return "", err
	}
	return rec.Status, nil
}

// Record returns the full record, defaulting to a first-attempt Pending one.
func (t *Tracker) Record(ctx context.Context, appID, integrationID string) (Record, error) {
	if appID == "" || integrationID == "" {
		return Record{}, ErrEmptyID
	}
	rec, ok, err := t.store.Get(ctx, appID, integrationID)
	if err != nil {
		return Record{}, err
	}
	if !ok {
		return Record{Status: Pending, Attempt: 1}, nil
	}
	return rec, nil
}

// Set moves an integration to status. Transitions outside the table fail
// with a *TransitionError; setting the current status again is a no-op.
func (t *Tracker) Set(ctx context.Context, appID, integrationID string, status Status) error {
	return t.set(ctx, appID, integrationID, status, "")
}

// Fail marks an integration as VerificationFailed and keeps reason on the
// record.
func (t *Tracker) Fail(ctx context.Context, appID, integrationID, reason string) error {
	return t.set(ctx, appID, integrationID, VerificationFailed, reason)
}

func (t *Tracker) set(ctx context.Context, appID, integrationID string, status Status, reason string) error {
	if appID == "" || integrationID == "" {
		return ErrEmptyID
	}
	if !status.Valid() {
		return ErrUnknownStatus
	}

	var from Status
	_, err := t.store.Update(ctx, appID, integrationID, func(cur Record, found bool) (Record, error) {
		if !found {
			cur = Record{Status: Pending, Attempt: 1}
		}
		from = cur.Status
		if !CanTransition(cur.Status, status) {
			return Record{}, &TransitionError{From: cur.Status, To: status}
		}
		if found && cur.Status == status && (reason == "" || cur.Reason == reason) {
			return cur, nil
		}
		cur.Status = status
		cur.Reason = reason
		cur.UpdatedAt = t.now()
		return cur, nil
	})
	if err != nil {
		return err
	}

	if from != status {
		t.logger.LogAttrs(ctx, slog.LevelInfo, "integration status changed",
			logger.Component("integration"),
			logger.AppID(appID),
			logger.Integration(integrationID),
			slog.String("from", from.String()),
			slog.String("to", status.String()),
		)
	}
	return nil
}

// Reverify replaces the record with a fresh Pending one and returns it.
func (t *Tracker) Reverify(ctx context.Context, appID, integrationID string) (Record, error) {
	if appID == "" || integrationID == "" {
		return Record{}, ErrEmptyID
	}

	rec, err := t.store.Update(ctx, appID, integrationID, func(cur Record, found bool) (Record, error) {
		attempt := 1
		if found {
			attempt = cur.Attempt + 1
		}
		return Record{Status: Pending, Attempt: attempt, UpdatedAt: t.now()}, nil
	})
	if err != nil {
		return Record{}, err
	}

	t.logger.LogAttrs(ctx, slog.LevelInfo, "integration re-verification started",
		logger.Component("integration"),
		logger.AppID(appID),
		logger.Integration(integrationID),
		slog.Int("attempt", rec.Attempt),
	)
	return rec, nil
}

// Ready returns nil only for a Verified integration and a *NotReadyError
// otherwise.
func (t *Tracker) Ready(ctx context.Context, appID, integrationID string) error {
	status, err := t.Get(ctx, appID, integrationID)
	if err != nil {
		return err
	}
	if !status.Ready() {
		return &NotReadyError{AppID: appID, IntegrationID: integrationID, Status: status}
	}
	return nil
}

// List returns every stored record of an app.
func (t *Tracker) List(ctx context.Context, appID string) (map[string]Record, error) {
	if appID == "" {
		return nil, ErrEmptyID
	}
	return t.store.List(ctx, appID)
}
