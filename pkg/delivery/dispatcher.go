package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/users"
)

// Scheduler accepts jobs for one channel. *scheduler.Scheduler[Job]
// implements it.
type Scheduler interface {
	Schedule(ctx context.Context, key string, job Job, delay time.Duration) error
}

// Dispatcher fans events out to channel schedulers.
type Dispatcher struct {
	schedulers     map[string]Scheduler
	defaultSetting users.ChannelSetting
	logger         *slog.Logger
	now            func() time.Time
}

type DispatcherOption func(*Dispatcher)

// WithScheduler routes channelID to s.
func WithScheduler(channelID string, s Scheduler) DispatcherOption {
	return func(d *Dispatcher) {
		d.schedulers[channelID] = s
	}
}

// WithDefaultSetting applies to channels the recipient has no setting for.
// The default sends immediately.
func WithDefaultSetting(s users.ChannelSetting) DispatcherOption {
	return func(d *Dispatcher) {
		d.defaultSetting = s
	}
}

func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

func WithDispatcherClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDispatcher returns a dispatcher with the given per-channel schedulers.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		schedulers:     make(map[string]Scheduler),
		defaultSetting: users.ChannelSetting{Send: true},
		logger:         slog.Default(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Channels returns the routed channel ids in sorted order.
func (d *Dispatcher) Channels() []string {
	ids := make([]string, 0, len(d.schedulers))
	for id := range d.schedulers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Dispatch schedules the event on every channel the recipient has enabled and
// can be reached on. It returns the channels that accepted a job. A failing
// scheduler does not stop the remaining channels; its error is joined into
// the result.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event, r Recipient) ([]string, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}
	if len(d.schedulers) == 0 {
		return nil, ErrNoScheduler
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = d.now()
	}

	log := d.logger.With(logger.AppID(event.AppID), logger.UserID(event.UserID), slog.String("topic", event.Topic))

	var (
		scheduled []string
		errs      []error
	)
	for _, id := range d.Channels() {
		setting, ok := r.Settings[id]
		if !ok {
			setting = d.defaultSetting
		}
		if !setting.Send {
			continue
		}
		to := r.Addresses(id)
		if len(to) == 0 {
			log.DebugContext(ctx, "recipient has no address for channel", logger.Channel(id))
			continue
		}

		job := Job{
			EventID:    event.ID,
			AppID:      event.AppID,
			UserID:     event.UserID,
			Topic:      event.Topic,
			Channel:    id,
			Language:   r.Language,
			To:         to,
			Items:      event.Items,
			Properties: event.Properties,
			CreatedAt:  event.CreatedAt,
		}
		key := Key(event.AppID, event.UserID, id, event.Topic)
		if err := d.schedulers[id].Schedule(ctx, key, job, setting.Delay()); err != nil {
			log.ErrorContext(ctx, "failed to schedule job", logger.Channel(id), logger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		scheduled = append(scheduled, id)
	}

	return scheduled, errors.Join(errs...)
}
