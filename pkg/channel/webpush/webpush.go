package webpush

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/channel"
)

// Config holds web push relay settings.
type Config struct {
	Secret           string        `env:"WEBPUSH_SECRET"`
	Timeout          time.Duration `env:"WEBPUSH_TIMEOUT" envDefault:"10s"`
	FailureThreshold int           `env:"WEBPUSH_CIRCUIT_FAILURES" envDefault:"5"`
	RecoveryTimeout  time.Duration `env:"WEBPUSH_CIRCUIT_RECOVERY" envDefault:"30s"`
}

// Payload is the JSON document POSTed to the relay.
type Payload struct {
	ID     string            `json:"id"`
	AppID  string            `json:"app_id"`
	UserID string            `json:"user_id"`
	Topic  string            `json:"topic,omitempty"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Count  int               `json:"count"`
	Data   map[string]string `json:"data,omitempty"`
}

// Channel posts messages to subscription URLs.
type Channel struct {
	client   *http.Client
	cfg      Config
	breakers *breakers
	now      func() time.Time
}

// Option configures a Channel.
type Option func(*Channel)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(ch *Channel) {
		if c != nil {
			ch.client = c
		}
	}
}

// New creates a web push channel.
func New(cfg Config, opts ...Option) (*Channel, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("%w: secret is required", ErrInvalidConfig)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	ch := &Channel{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		cfg: cfg,
		breakers: &breakers{
			byHost: make(map[string]*breaker),
			newFn: func() *breaker {
				return newBreaker(cfg.FailureThreshold, 1, cfg.RecoveryTimeout)
			},
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(ch)
	}
	return ch, nil
}

func (c *Channel) ID() string { return channel.WebPush }

// Send implements channel.Channel.
func (c *Channel) Send(ctx context.Context, msg channel.Message) error {
	if len(msg.To) == 0 {
		return channel.Permanent(channel.ErrNoRecipients)
	}

	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}
	payload, err := json.Marshal(Payload{
		ID:     id,
		AppID:  msg.AppID,
		UserID: msg.UserID,
		Topic:  msg.Topic,
		Title:  msg.Subject,
		Body:   msg.Body(),
		Count:  msg.Count,
		Data:   msg.Data,
	})
	if err != nil {
		return channel.Permanent(errors.Join(ErrInvalidPayload, err))
	}

	var fan channel.Fanout
	for _, target := range msg.To {
		if err := c.post(ctx, target, id, payload); err != nil {
			fan.Failed(target, err)
			continue
		}
		fan.Delivered(target)
	}
	return fan.Err()
}

func (c *Channel) post(ctx context.Context, target, id string, payload []byte) error {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return channel.Permanent(fmt.Errorf("%w: %q", ErrInvalidURL, target))
	}

	cb := c.breakers.get(u.Host)
	if !cb.allow() {
		return channel.Transient(fmt.Errorf("%w: %s", ErrCircuitOpen, u.Host))
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return channel.Permanent(fmt.Errorf("%w: %w", ErrInvalidURL, err))
	}

	ts := c.now().Unix()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "notifykit-webpush/1.0")
	req.Header.Set(HeaderID, id)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderSignature, Sign(c.cfg.Secret, ts, payload))

	resp, err := c.client.Do(req)
	if err != nil {
		cb.failure()
		return channel.Transient(fmt.Errorf("%w: %w", ErrDeliveryFailed, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		cb.success()
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	failure := fmt.Errorf("%w: status %d: %s", ErrDeliveryFailed, resp.StatusCode,
		strings.ReplaceAll(strings.TrimSpace(string(body)), "\n", " "))

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		cb.success()
		return channel.Permanent(errors.Join(ErrSubscriptionGone, failure))
	case isPermanentStatus(resp.StatusCode):
		cb.success()
		return channel.Permanent(failure)
	default:
		cb.failure()
		return channel.Transient(failure)
	}
}

func isPermanentStatus(code int) bool {
	if code < 400 || code >= 500 {
		return false
	}
	switch code {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return false
	default:
		return true
	}
}
