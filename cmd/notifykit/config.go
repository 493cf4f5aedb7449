package main

import (
	"fmt"
	"slices"

	"github.com/dmitrymomot/notifykit/pkg/awsconfig"
	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/imageformat"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/pg"
	"github.com/dmitrymomot/notifykit/pkg/redis"
	"github.com/dmitrymomot/notifykit/pkg/scheduler"
)

// Integration stores selectable with INTEGRATION_STORE.
const (
	integrationStoreRedis    = "redis"
	integrationStorePostgres = "postgres"
)

type Config struct {
	Logger    logger.Config
	HTTP      httpserver.Config
	Redis     redis.Config
	Postgres  pg.Config
	AWS       awsconfig.Config
	Images    imageformat.Config
	Scheduler scheduler.Config

	TemplatesFile     string `env:"TEMPLATES_FILE" envDefault:"templates.yaml"`
	TemplateCacheSize int    `env:"TEMPLATE_CACHE_SIZE" envDefault:"256"`

	// Channels lists the enabled transports. Transport settings are loaded
	// only for the channels listed here.
	Channels []string `env:"CHANNELS" envDefault:"email,in_app"`
	// GateIntegrations maps a channel to the integration that must be
	// verified for the app before the channel sends, e.g. "email:ses".
	GateIntegrations map[string]string `env:"GATE_INTEGRATIONS"`

	IntegrationStore string `env:"INTEGRATION_STORE" envDefault:"redis"`
	FailureLogSize   int64  `env:"FAILURE_LOG_SIZE" envDefault:"10000"`

	UsersMigrationsTable string `env:"PG_USERS_MIGRATIONS_TABLE" envDefault:"users_schema_migrations"`
	AppsMigrationsTable  string `env:"PG_APPS_MIGRATIONS_TABLE" envDefault:"apps_schema_migrations"`
}

var knownChannels = []string{channel.Email, channel.SMS, channel.MobilePush, channel.WebPush, channel.InApp}

func (c Config) validate() error {
	for _, id := range c.Channels {
		if !slices.Contains(knownChannels, id) {
			return fmt.Errorf("unknown channel %q", id)
		}
	}
	for id := range c.GateIntegrations {
		if !slices.Contains(c.Channels, id) {
			return fmt.Errorf("gate integration for disabled channel %q", id)
		}
	}
	switch c.IntegrationStore {
	case integrationStoreRedis, integrationStorePostgres:
	default:
		return fmt.Errorf("unknown integration store %q", c.IntegrationStore)
	}
	return nil
}
