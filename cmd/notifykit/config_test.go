package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/config"
)

func load(t *testing.T, environ map[string]string) Config {
	t.Helper()
	environ["PG_CONN_URL"] = "postgres://localhost/notifykit"
	var cfg Config
	require.NoError(t, config.Load(&cfg, config.WithEnviron(environ)))
	return cfg
}

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()
	cfg := load(t, map[string]string{})

	require.NoError(t, cfg.validate())
	assert.Equal(t, []string{channel.Email, channel.InApp}, cfg.Channels)
	assert.Equal(t, integrationStoreRedis, cfg.IntegrationStore)
	assert.NotEqual(t, cfg.UsersMigrationsTable, cfg.AppsMigrationsTable)
}

func TestConfig_GateIntegrations(t *testing.T) {
	t.Parallel()
	cfg := load(t, map[string]string{
		"CHANNELS":          "email,sms",
		"GATE_INTEGRATIONS": "email:ses,sms:sns",
	})

	require.NoError(t, cfg.validate())
	assert.Equal(t, map[string]string{channel.Email: "ses", channel.SMS: "sns"}, cfg.GateIntegrations)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		environ map[string]string
	}{
		{"unknown channel", map[string]string{"CHANNELS": "email,fax"}},
		{"gate for disabled channel", map[string]string{"CHANNELS": "email", "GATE_INTEGRATIONS": "sms:sns"}},
		{"unknown integration store", map[string]string{"INTEGRATION_STORE": "etcd"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := load(t, tt.environ)
			assert.Error(t, cfg.validate())
		})
	}
}
