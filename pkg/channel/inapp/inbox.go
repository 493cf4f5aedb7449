package inapp

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Inbox is the in-app channel.
type Inbox struct {
	storage Storage
	feed    *feed
	logger  *slog.Logger
}

// Option configures an Inbox.
type Option func(*Inbox)

// WithLogger sets the inbox logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Inbox) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithBufferSize sets the per-subscriber buffer. Default 16.
func WithBufferSize(n int) Option {
	return func(i *Inbox) {
		i.feed = newFeed(n)
	}
}

// New creates an inbox over storage.
func New(storage Storage, opts ...Option) *Inbox {
	i := &Inbox{storage: storage, feed: newFeed(16), logger: slog.Default()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Inbox) ID() string { return channel.InApp }

// Send stores one entry per recipient. Message.To holds user ids; when empty
// the message's own UserID is used.
func (i *Inbox) Send(ctx context.Context, msg channel.Message) error {
	recipients := msg.To
	if len(recipients) == 0 && msg.UserID != "" {
		recipients = []string{msg.UserID}
	}
	if len(recipients) == 0 {
		return channel.Permanent(channel.ErrNoRecipients)
	}

	for _, userID := range recipients {
		n := Notification{
			ID:     uuid.NewString(),
			AppID:  msg.AppID,
			UserID: userID,
			Topic:  msg.Topic,
			Title:  msg.Subject,
			Body:   msg.Body(),
			Count:  msg.Count,
			Data:   msg.Data,
		}
		if err := i.storage.Create(ctx, n); err != nil {
			return channel.Transient(err)
		}

		live := i.feed.publish(n)
		i.logger.LogAttrs(ctx, slog.LevelDebug, "in-app notification stored",
			logger.UserID(userID),
			slog.String("notification_id", n.ID),
			slog.Int("live_subscribers", live),
		)
	}
	return nil
}

// Subscribe streams new entries for userID until ctx is done or the returned
// cancel func is called.
func (i *Inbox) Subscribe(ctx context.Context, userID string) (<-chan Notification, func()) {
	return i.feed.subscribe(ctx, userID)
}

// List returns the notifications of a user that match opts, newest first.
func (i *Inbox) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	return i.storage.List(ctx, userID, opts)
}

// MarkRead marks the given notifications of a user as read. With no ids
// every notification is marked.
func (i *Inbox) MarkRead(ctx context.Context, userID string, ids ...string) error {
	return i.storage.MarkRead(ctx, userID, ids...)
}

func (i *Inbox) CountUnread(ctx context.Context, userID string) (int, error) {
	return i.storage.CountUnread(ctx, userID)
}
