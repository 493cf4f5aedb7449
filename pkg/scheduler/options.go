package scheduler

import (
	"log/slog"
	"time"
)

// Policy decides how later jobs affect an open window.
type Policy int

const (
	PolicyFixed Policy = iota
	PolicySliding
)

// ShutdownPolicy decides what Stop does with jobs still waiting.
type ShutdownPolicy int

const (
	ShutdownDrop ShutdownPolicy = iota
	ShutdownPersist
)

// Config holds scheduler settings loaded from the environment.
type Config struct {
	Policy               string        `env:"SCHEDULER_POLICY" envDefault:"fixed"`
	MaxWindow            time.Duration `env:"SCHEDULER_MAX_WINDOW" envDefault:"1h"`
	MaxBatchSize         int           `env:"SCHEDULER_MAX_BATCH_SIZE" envDefault:"100"`
	MaxRetries           int           `env:"SCHEDULER_MAX_RETRIES" envDefault:"5"`
	MaxConcurrentFlushes int           `env:"SCHEDULER_MAX_CONCURRENT_FLUSHES" envDefault:"16"`
	FlushTimeout         time.Duration `env:"SCHEDULER_FLUSH_TIMEOUT" envDefault:"30s"`
	RetryInitial         time.Duration `env:"SCHEDULER_RETRY_INITIAL" envDefault:"5s"`
	RetryMax             time.Duration `env:"SCHEDULER_RETRY_MAX" envDefault:"5m"`
	PersistOnShutdown    bool          `env:"SCHEDULER_PERSIST_ON_SHUTDOWN" envDefault:"true"`
}

// Options converts cfg into scheduler options. Storage is not part of the
// config and must be passed separately when PersistOnShutdown is set.
func (cfg Config) Options() []Option {
	policy := PolicyFixed
	if cfg.Policy == "sliding" {
		policy = PolicySliding
	}
	shutdown := ShutdownDrop
	if cfg.PersistOnShutdown {
		shutdown = ShutdownPersist
	}

	return []Option{
		WithPolicy(policy),
		WithMaxWindow(cfg.MaxWindow),
		WithMaxBatchSize(cfg.MaxBatchSize),
		WithMaxRetries(cfg.MaxRetries),
		WithMaxConcurrentFlushes(cfg.MaxConcurrentFlushes),
		WithFlushTimeout(cfg.FlushTimeout),
		WithShutdownPolicy(shutdown),
		WithBackoff(ExponentialBackoff{
			InitialInterval: cfg.RetryInitial,
			MaxInterval:     cfg.RetryMax,
			Multiplier:      2,
			JitterFactor:    0.1,
		}),
	}
}

// Option configures a Scheduler.
type Option func(*options)

type options struct {
	name                 string
	policy               Policy
	maxWindow            time.Duration
	maxBatchSize         int
	maxRetries           int
	maxConcurrentFlushes int
	flushTimeout         time.Duration
	backoff              Backoff
	shutdownPolicy       ShutdownPolicy
	storage              any
	failures             FailureRecorder
	observer             Observer
	logger               *slog.Logger
	now                  func() time.Time
}

func defaultOptions() options {
	return options{
		name:                 "default",
		policy:               PolicyFixed,
		maxRetries:           5,
		maxConcurrentFlushes: 16,
		flushTimeout:         30 * time.Second,
		backoff:              DefaultBackoff(),
		shutdownPolicy:       ShutdownDrop,
		observer:             NopObserver{},
		logger:               slog.Default(),
		now:                  time.Now,
	}
}

// WithName sets the scheduler name used in logs, metrics and storage keys.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithPolicy sets the window policy.
func WithPolicy(p Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithMaxWindow caps how long a sliding window may stay open.
func WithMaxWindow(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.maxWindow = d
		}
	}
}

// WithMaxBatchSize flushes a bucket as soon as it holds n jobs and never
// hands more than n payloads to the handler at once. Zero means unbounded.
func WithMaxBatchSize(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxBatchSize = n
		}
	}
}

// WithMaxRetries sets how many retries a batch gets after its first attempt.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithMaxConcurrentFlushes bounds how many keys flush at the same time.
func WithMaxConcurrentFlushes(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConcurrentFlushes = n
		}
	}
}

// WithFlushTimeout bounds a single handler invocation.
func WithFlushTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.flushTimeout = d
		}
	}
}

// WithBackoff sets the retry backoff strategy.
func WithBackoff(b Backoff) Option {
	return func(o *options) {
		if b != nil {
			o.backoff = b
		}
	}
}

// WithShutdownPolicy sets what Stop does with waiting jobs.
func WithShutdownPolicy(p ShutdownPolicy) Option {
	return func(o *options) {
		o.shutdownPolicy = p
	}
}

// WithStorage sets where waiting jobs are saved on shutdown and loaded from
// on start. The storage must hold the scheduler's payload type.
func WithStorage[T any](s Storage[T]) Option {
	return func(o *options) {
		if s != nil {
			o.storage = s
		}
	}
}

// WithFailureRecorder sets where terminal failures are recorded.
func WithFailureRecorder(r FailureRecorder) Option {
	return func(o *options) {
		o.failures = r
	}
}

// WithObserver sets the flush observer.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithLogger sets the scheduler logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
