package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/config"
)

type sampleConfig struct {
	Name    string        `env:"NAME" envDefault:"default"`
	Delay   time.Duration `env:"DELAY" envDefault:"5s"`
	Retries int           `env:"RETRIES" envDefault:"3"`
}

type requiredConfig struct {
	Token string `env:"TOKEN,required"`
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		var cfg sampleConfig
		require.NoError(t, config.Load(&cfg, config.WithEnviron(map[string]string{})))
		assert.Equal(t, "default", cfg.Name)
		assert.Equal(t, 5*time.Second, cfg.Delay)
		assert.Equal(t, 3, cfg.Retries)
	})

	t.Run("prefix", func(t *testing.T) {
		t.Parallel()
		var cfg sampleConfig
		err := config.Load(&cfg,
			config.WithPrefix("EMAIL_"),
			config.WithEnviron(map[string]string{"EMAIL_NAME": "mail", "EMAIL_DELAY": "1m", "NAME": "ignored"}),
		)
		require.NoError(t, err)
		assert.Equal(t, "mail", cfg.Name)
		assert.Equal(t, time.Minute, cfg.Delay)
	})

	t.Run("required missing", func(t *testing.T) {
		t.Parallel()
		var cfg requiredConfig
		err := config.Load(&cfg, config.WithEnviron(map[string]string{}))
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, config.Load[sampleConfig](nil), config.ErrNilPointer)
	})

	t.Run("missing env file", func(t *testing.T) {
		t.Parallel()
		var cfg sampleConfig
		err := config.Load(&cfg, config.WithEnvFiles(filepath.Join(t.TempDir(), "nope.env")))
		assert.ErrorIs(t, err, config.ErrEnvFile)
	})
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CFGTEST_TOKEN=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CFGTEST_TOKEN") })

	var cfg requiredConfig
	require.NoError(t, config.Load(&cfg, config.WithEnvFiles(path), config.WithPrefix("CFGTEST_")))
	assert.Equal(t, "from-file", cfg.Token)
}

func TestMustLoad(t *testing.T) {
	t.Parallel()
	var cfg requiredConfig
	assert.Panics(t, func() { config.MustLoad(&cfg, config.WithEnviron(map[string]string{})) })
}
