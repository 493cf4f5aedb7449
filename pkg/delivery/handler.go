package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/command"
	"github.com/dmitrymomot/notifykit/pkg/integration"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/scheduler"
	"github.com/dmitrymomot/notifykit/pkg/template"
)

// Props added to every render on top of the event properties.
const (
	PropCount  = "count"
	PropAppID  = "app.id"
	PropUserID = "user.id"
	PropTopic  = "topic"
)

// Gate reports whether an app may send through an integration.
// *integration.Tracker implements it.
type Gate interface {
	Ready(ctx context.Context, appID, integrationID string) error
}

// TemplateSource resolves the template of a channel in a language.
// *template.Bundle implements it.
type TemplateSource interface {
	Lookup(channel, language string) (template.ChannelTemplate, bool)
}

// FlushHandler delivers flushed batches through one channel.
type FlushHandler struct {
	channel       channel.Channel
	templates     TemplateSource
	cache         *template.Cache
	images        template.ImageFormatter
	gate          Gate
	integrationID string
	logger        *slog.Logger
}

var _ scheduler.Handler[Job] = (*FlushHandler)(nil)

type HandlerOption func(*FlushHandler)

// WithIntegration gates sends on integrationID being verified for the app.
func WithIntegration(gate Gate, integrationID string) HandlerOption {
	return func(h *FlushHandler) {
		h.gate = gate
		h.integrationID = integrationID
	}
}

func WithImageFormatter(f template.ImageFormatter) HandlerOption {
	return func(h *FlushHandler) {
		h.images = f
	}
}

// WithCache shares a parsed template cache between handlers.
func WithCache(c *template.Cache) HandlerOption {
	return func(h *FlushHandler) {
		if c != nil {
			h.cache = c
		}
	}
}

func WithHandlerLogger(l *slog.Logger) HandlerOption {
	return func(h *FlushHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewFlushHandler renders batches with templates and sends them over ch.
func NewFlushHandler(ch channel.Channel, templates TemplateSource, opts ...HandlerOption) *FlushHandler {
	h := &FlushHandler{
		channel:   ch,
		templates: templates,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.cache == nil {
		h.cache = template.NewCache(template.DefaultCacheSize)
	}
	h.logger = h.logger.With(logger.Component("delivery"), logger.Channel(ch.ID()))
	return h
}

// Handle renders the batch into one message and sends it.
//
// An integration that is not verified, or an app that does not exist, fails
// the batch without touching the transport. Template problems fail it too, since a retry would render the
// same content. Permanent transport errors fail the batch unless some
// recipients got the message, in which case it completes. Anything else is
// retried for the recipients that neither got the message nor rejected it.
func (h *FlushHandler) Handle(ctx context.Context, key string, batch []Job) scheduler.Outcome {
	if len(batch) == 0 {
		return scheduler.Completed()
	}
	last := batch[len(batch)-1]
	log := h.logger.With(logger.JobKey(key), logger.AppID(last.AppID), logger.BatchSize(len(batch)))

	if h.gate != nil {
		if err := h.gate.Ready(ctx, last.AppID, h.integrationID); err != nil {
			if errors.Is(err, integration.ErrNotReady) || errors.Is(err, command.ErrNotFound) {
				log.WarnContext(ctx, "integration not ready, dropping batch", logger.Integration(h.integrationID), logger.Error(err))
				return scheduler.Failed(err)
			}
			return scheduler.Retry(0).WithCause(err)
		}
	}

	msg, err := h.render(batch)
	if err != nil {
		log.ErrorContext(ctx, "failed to render batch", logger.Error(err))
		return scheduler.Failed(err)
	}

	if err := h.channel.Send(ctx, msg); err != nil {
		delivered, rejected := channel.Recipients(err)
		if channel.IsPermanent(err) {
			if len(delivered) > 0 {
				log.WarnContext(ctx, "batch partially delivered",
					slog.Int("delivered", len(delivered)), slog.Int("rejected", len(rejected)), logger.Error(err))
				return scheduler.Completed()
			}
			log.ErrorContext(ctx, "permanent delivery failure", logger.Error(err))
			return scheduler.Failed(err)
		}
		if done := slices.Concat(delivered, rejected); len(done) > 0 {
			for i := range batch {
				batch[i].To = slices.DeleteFunc(slices.Clone(batch[i].To), func(to string) bool {
					return slices.Contains(done, to)
				})
			}
		}
		log.WarnContext(ctx, "transient delivery failure",
			slog.Int("delivered", len(delivered)), slog.Int("rejected", len(rejected)), logger.Error(err))
		return scheduler.Retry(0).WithCause(err)
	}

	log.DebugContext(ctx, "batch delivered", slog.String("message_id", msg.ID), slog.Int("items", msg.Count))
	return scheduler.Completed()
}

func (h *FlushHandler) render(batch []Job) (channel.Message, error) {
	last := batch[len(batch)-1]

	tmpl, ok := h.templates.Lookup(h.channel.ID(), last.Language)
	if !ok {
		return channel.Message{}, fmt.Errorf("%w: %s", template.ErrTemplateNotFound, h.channel.ID())
	}

	var items []template.Item
	props := make(map[string]string)
	for _, job := range batch {
		items = append(items, job.Items...)
		maps.Copy(props, job.Properties)
	}
	props[PropCount] = strconv.Itoa(len(items))
	props[PropAppID] = last.AppID
	props[PropUserID] = last.UserID
	props[PropTopic] = last.Topic

	msg := channel.Message{
		ID:      uuid.NewString(),
		AppID:   last.AppID,
		UserID:  last.UserID,
		Topic:   last.Topic,
		To:      last.To,
		Subject: template.Substitute(tmpl.Subject, props),
		Count:   len(items),
		Data:    props,
	}

	var err error
	if msg.BodyHTML, err = h.body(tmpl.BodyHTML, items, props, true); err != nil {
		return channel.Message{}, err
	}
	if msg.BodyText, err = h.body(tmpl.BodyText, items, props, false); err != nil {
		return channel.Message{}, err
	}
	return msg, nil
}

func (h *FlushHandler) body(raw string, items []template.Item, props map[string]string, asHTML bool) (string, error) {
	if raw == "" {
		return "", nil
	}
	parsed, err := h.cache.Get(raw)
	if err != nil {
		return "", errors.Join(ErrRenderFailed, err)
	}
	return parsed.Render(items, props, asHTML, h.images), nil
}
