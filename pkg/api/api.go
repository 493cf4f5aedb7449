package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/notifykit/pkg/apps"
	"github.com/dmitrymomot/notifykit/pkg/channel/inapp"
	"github.com/dmitrymomot/notifykit/pkg/command"
	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/integration"
	"github.com/dmitrymomot/notifykit/pkg/requestid"
	"github.com/dmitrymomot/notifykit/pkg/scheduler"
	"github.com/dmitrymomot/notifykit/pkg/users"
)

// Dispatcher is implemented by *delivery.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, event delivery.Event, r delivery.Recipient) ([]string, error)
}

// UserStore is implemented by users.PostgresRepository and
// command.MemoryRepository[users.User].
type UserStore interface {
	command.Repository[users.User]
	Create(ctx context.Context, u users.User) (users.User, error)
}

// AppStore is implemented by apps.PostgresRepository and
// command.MemoryRepository[apps.App].
type AppStore interface {
	command.Repository[apps.App]
	Create(ctx context.Context, app apps.App) (apps.App, error)
}

// Devices is implemented by *users.Devices.
type Devices interface {
	Register(ctx context.Context, userID string, token users.MobilePushToken) (users.User, error)
	Unregister(ctx context.Context, userID, token string) (users.User, error)
}

// Integrations is implemented by *integration.Tracker.
type Integrations interface {
	Record(ctx context.Context, appID, integrationID string) (integration.Record, error)
	Set(ctx context.Context, appID, integrationID string, status integration.Status) error
	Fail(ctx context.Context, appID, integrationID, reason string) error
	Reverify(ctx context.Context, appID, integrationID string) (integration.Record, error)
	List(ctx context.Context, appID string) (map[string]integration.Record, error)
}

// Inbox is implemented by *inapp.Inbox.
type Inbox interface {
	List(ctx context.Context, userID string, opts inapp.ListOptions) ([]inapp.Notification, error)
	MarkRead(ctx context.Context, userID string, ids ...string) error
	CountUnread(ctx context.Context, userID string) (int, error)
}

// FailureLog is implemented by *scheduler.RedisFailureLog.
type FailureLog interface {
	List(ctx context.Context, limit int64) ([]scheduler.Failure, error)
}

// Server holds the handlers' dependencies.
type Server struct {
	dispatcher   Dispatcher
	apps         AppStore
	users        UserStore
	devices      Devices
	integrations Integrations
	inbox        Inbox
	failures     FailureLog
	health       http.Handler
	metrics      http.Handler
	timeout      time.Duration
	logger       *slog.Logger
}

type Option func(*Server)

func WithDispatcher(d Dispatcher) Option       { return func(s *Server) { s.dispatcher = d } }
func WithApps(a AppStore) Option               { return func(s *Server) { s.apps = a } }
func WithUsers(u UserStore) Option             { return func(s *Server) { s.users = u } }
func WithDevices(d Devices) Option             { return func(s *Server) { s.devices = d } }
func WithIntegrations(i Integrations) Option   { return func(s *Server) { s.integrations = i } }
func WithInbox(i Inbox) Option                 { return func(s *Server) { s.inbox = i } }
func WithFailureLog(f FailureLog) Option       { return func(s *Server) { s.failures = f } }
func WithHealthCheck(h http.Handler) Option    { return func(s *Server) { s.health = h } }
func WithMetricsHandler(h http.Handler) Option { return func(s *Server) { s.metrics = h } }

// WithRequestTimeout bounds every /v1 request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New builds the API server. Routes whose dependency is not set are not
// registered.
func New(opts ...Option) *Server {
	s := &Server{
		timeout: 30 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router for the configured dependencies.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(middleware.Recoverer)

	if s.health != nil {
		r.Get("/healthz", s.health.ServeHTTP)
	}
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		if s.timeout > 0 {
			r.Use(middleware.Timeout(s.timeout))
		}

		if s.dispatcher != nil && s.users != nil {
			r.Post("/events", s.postEvent)
		}
		if s.failures != nil {
			r.Get("/failures", s.listFailures)
		}

		r.Route("/apps/{appID}", func(r chi.Router) {
			if s.apps != nil {
				r.Put("/", s.putApp)
				r.Get("/", s.getApp)
				r.Put("/email-status", s.putEmailStatus)
			}
			if s.integrations != nil {
				r.Get("/integrations", s.listIntegrations)
				r.Get("/integrations/{integrationID}", s.getIntegration)
				r.Put("/integrations/{integrationID}", s.putIntegration)
				r.Post("/integrations/{integrationID}/reverify", s.reverifyIntegration)
			}

			if s.users == nil {
				return
			}
			r.Route("/users/{userID}", func(r chi.Router) {
				r.Put("/", s.putUser)
				r.Get("/", s.getUser)
				r.Put("/settings/{channel}", s.putSetting)
				r.Post("/webpush", s.postWebPush)
				r.Delete("/webpush", s.deleteWebPush)
				if s.devices != nil {
					r.Post("/devices", s.postDevice)
					r.Delete("/devices/{token}", s.deleteDevice)
				}
				if s.inbox != nil {
					r.Get("/inbox", s.listInbox)
					r.Post("/inbox/read", s.markRead)
				}
			})
		})
	})

	return r
}
