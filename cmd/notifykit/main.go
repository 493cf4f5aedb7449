// Command notifykit runs the notification delivery service: the HTTP API,
// one batching scheduler per enabled channel and the metrics endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifykit/pkg/api"
	"github.com/dmitrymomot/notifykit/pkg/apps"
	"github.com/dmitrymomot/notifykit/pkg/awsconfig"
	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/channel/email"
	"github.com/dmitrymomot/notifykit/pkg/channel/inapp"
	"github.com/dmitrymomot/notifykit/pkg/channel/mobilepush"
	"github.com/dmitrymomot/notifykit/pkg/channel/sms"
	"github.com/dmitrymomot/notifykit/pkg/channel/webpush"
	"github.com/dmitrymomot/notifykit/pkg/command"
	"github.com/dmitrymomot/notifykit/pkg/config"
	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/imageformat"
	"github.com/dmitrymomot/notifykit/pkg/integration"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/metrics"
	"github.com/dmitrymomot/notifykit/pkg/pg"
	"github.com/dmitrymomot/notifykit/pkg/redis"
	"github.com/dmitrymomot/notifykit/pkg/requestid"
	"github.com/dmitrymomot/notifykit/pkg/scheduler"
	"github.com/dmitrymomot/notifykit/pkg/template"
	"github.com/dmitrymomot/notifykit/pkg/users"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("notifykit stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return err
	}
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := logger.FromConfig(cfg.Logger, logger.WithContextExtractors(requestid.LoggerExtractor()))
	slog.SetDefault(log)

	awsCfg, err := awsconfig.Load(ctx, cfg.AWS)
	if err != nil {
		return err
	}

	rdb, err := redis.Connect(ctx, cfg.Redis, redis.WithLogger(log))
	if err != nil {
		return err
	}
	defer rdb.Close()

	pool, err := pg.Connect(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := migrate(ctx, pool, cfg, log); err != nil {
		return err
	}

	appRepo := apps.NewPostgresRepository(pool)
	userRepo := users.NewPostgresRepository(pool)

	var store integration.Store = integration.NewRedisStore(rdb, cfg.Redis.Key("integrations"))
	if cfg.IntegrationStore == integrationStorePostgres {
		store = apps.NewIntegrationStore(appRepo, command.WithLogger(log))
	}
	tracker := integration.NewTracker(store, integration.WithLogger(log))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.New(reg)

	bundle, err := template.LoadBundleFile(cfg.TemplatesFile)
	if err != nil {
		return err
	}
	cache := template.NewCache(cfg.TemplateCacheSize)

	images, err := newImageFormatter(ctx, cfg.Images, log)
	if err != nil {
		return err
	}

	inbox := inapp.New(inapp.NewMemoryStorage(), inapp.WithLogger(log))

	// The mobile push channel reports disabled endpoints to devices, and
	// devices register new tokens through the channel.
	var devices *users.Devices
	channels, registrar, err := newChannels(ctx, cfg, awsCfg, inbox, func(ctx context.Context, userID, arn string) {
		if devices != nil {
			devices.Disabled(ctx, userID, arn)
		}
	}, log)
	if err != nil {
		return err
	}
	if registrar != nil {
		devices = users.NewDevices(userRepo, registrar, users.WithDevicesLogger(log))
	}

	failures := scheduler.NewRedisFailureLog(rdb, cfg.Redis.Key("failures"), cfg.FailureLogSize)

	g, ctx := errgroup.WithContext(ctx)

	dispatcherOpts := []delivery.DispatcherOption{delivery.WithDispatcherLogger(log)}
	for _, id := range channels.IDs() {
		ch, err := channels.Get(id)
		if err != nil {
			return err
		}
		handlerOpts := []delivery.HandlerOption{
			delivery.WithImageFormatter(images),
			delivery.WithCache(cache),
			delivery.WithHandlerLogger(log),
		}
		if integrationID, ok := cfg.GateIntegrations[id]; ok {
			handlerOpts = append(handlerOpts, delivery.WithIntegration(tracker, integrationID))
		}

		opts := append(cfg.Scheduler.Options(),
			scheduler.WithName(id),
			scheduler.WithStorage[delivery.Job](scheduler.NewRedisStorage[delivery.Job](rdb, id)),
			scheduler.WithFailureRecorder(failures),
			scheduler.WithObserver(collector),
			scheduler.WithLogger(log),
		)
		s, err := scheduler.New[delivery.Job](delivery.NewFlushHandler(collector.Channel(ch), bundle, handlerOpts...), opts...)
		if err != nil {
			return fmt.Errorf("scheduler %s: %w", id, err)
		}

		g.Go(s.Run(ctx, cfg.HTTP.ShutdownTimeout))
		dispatcherOpts = append(dispatcherOpts, delivery.WithScheduler(id, s))
	}

	health := httpserver.HealthCheckHandler(log, cfg.HTTP.ReadTimeout,
		httpserver.Check{Name: "redis", Fn: redis.Healthcheck(rdb)},
		httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(pool)},
	)

	apiOpts := []api.Option{
		api.WithDispatcher(delivery.NewDispatcher(dispatcherOpts...)),
		api.WithApps(appRepo),
		api.WithUsers(userRepo),
		api.WithIntegrations(tracker),
		api.WithInbox(inbox),
		api.WithFailureLog(failures),
		api.WithHealthCheck(health),
		api.WithMetricsHandler(metrics.Handler(reg)),
		api.WithLogger(log),
	}
	if devices != nil {
		apiOpts = append(apiOpts, api.WithDevices(devices))
	}

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
	g.Go(func() error {
		return srv.Run(ctx, api.New(apiOpts...).Router())
	})

	log.InfoContext(ctx, "notifykit started",
		slog.String("addr", cfg.HTTP.Addr),
		slog.Any("channels", cfg.Channels),
		slog.String("integration_store", cfg.IntegrationStore),
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool, cfg Config, log *slog.Logger) error {
	usersCfg := cfg.Postgres
	usersCfg.MigrationsTable = cfg.UsersMigrationsTable
	if err := pg.Migrate(ctx, pool, users.Migrations, usersCfg, log); err != nil {
		return fmt.Errorf("users migrations: %w", err)
	}

	appsCfg := cfg.Postgres
	appsCfg.MigrationsTable = cfg.AppsMigrationsTable
	if err := pg.Migrate(ctx, pool, apps.Migrations, appsCfg, log); err != nil {
		return fmt.Errorf("apps migrations: %w", err)
	}
	return nil
}

func newImageFormatter(ctx context.Context, cfg imageformat.Config, log *slog.Logger) (template.ImageFormatter, error) {
	if cfg.S3Bucket != "" {
		return imageformat.NewS3(ctx, cfg, imageformat.WithLogger(log))
	}
	return imageformat.NewCDN(cfg.BaseURL, nil)
}

// newChannels builds the registry of enabled transports. The registrar is
// non-nil when mobile push is enabled.
func newChannels(
	ctx context.Context,
	cfg Config,
	awsCfg aws.Config,
	inbox *inapp.Inbox,
	onDisabled mobilepush.DisabledFunc,
	log *slog.Logger,
) (*channel.Registry, users.Registrar, error) {
	var (
		channels  []channel.Channel
		registrar users.Registrar
	)

	for _, id := range cfg.Channels {
		switch id {
		case channel.Email:
			var c email.Config
			if err := config.Load(&c); err != nil {
				return nil, nil, fmt.Errorf("email config: %w", err)
			}
			sender, err := email.NewSender(ctx, c, awsCfg)
			if err != nil {
				return nil, nil, err
			}
			channels = append(channels, email.NewChannel(sender))

		case channel.SMS:
			var c sms.Config
			if err := config.Load(&c); err != nil {
				return nil, nil, fmt.Errorf("sms config: %w", err)
			}
			channels = append(channels, sms.NewFromConfig(awsCfg, c))

		case channel.MobilePush:
			var c mobilepush.Config
			if err := config.Load(&c); err != nil {
				return nil, nil, fmt.Errorf("mobile push config: %w", err)
			}
			ch := mobilepush.NewFromConfig(awsCfg, c,
				mobilepush.WithOnDisabled(onDisabled),
				mobilepush.WithLogger(log),
			)
			channels = append(channels, ch)
			registrar = ch

		case channel.WebPush:
			var c webpush.Config
			if err := config.Load(&c); err != nil {
				return nil, nil, fmt.Errorf("web push config: %w", err)
			}
			ch, err := webpush.New(c)
			if err != nil {
				return nil, nil, err
			}
			channels = append(channels, ch)

		case channel.InApp:
			channels = append(channels, inbox)
		}
	}

	reg, err := channel.NewRegistry(channels...)
	if err != nil {
		return nil, nil, err
	}
	return reg, registrar, nil
}
