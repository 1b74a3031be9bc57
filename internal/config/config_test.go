package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftlog/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ".shiftlog/shiftlog.db", cfg.Database.Path)
	assert.Equal(t, "/v0", cfg.Server.BasePath)
	assert.False(t, cfg.Telegram.Enabled)
	assert.Equal(t, 10*time.Second, cfg.Telegram.Timeout)
	assert.Equal(t, 3, cfg.Telegram.Retry.Attempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Telegram.Retry.InitialDelay)
	assert.Equal(t, 4, cfg.Notifications.Concurrency)
	assert.Empty(t, cfg.Webhooks)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default().Server.Addr, cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Telegram.Retry.MaxDelay)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.FileName)
	doc := `server:
  addr: 0.0.0.0:9090
telegram:
  enabled: true
  timeout: 3s
  retry:
    attempts: 5
webhooks:
  - url: https://hooks.example.com/shiftlog
    events: [feature.status_changed]
    timeout: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	t.Setenv("SHIFTLOG_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("SHIFTLOG_LOGGING_LEVEL", "debug")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr)
	assert.Equal(t, "/v0", cfg.Server.BasePath)
	assert.True(t, cfg.Telegram.Enabled)
	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, 3*time.Second, cfg.Telegram.Timeout)
	assert.Equal(t, 5, cfg.Telegram.Retry.Attempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Telegram.Retry.InitialDelay)
	assert.Equal(t, "debug", cfg.Logging.Level)
	require.Len(t, cfg.Webhooks, 1)
	assert.Equal(t, []string{"feature.status_changed"}, cfg.Webhooks[0].Events)
	assert.Equal(t, 2*time.Second, cfg.Webhooks[0].Timeout)
}

func TestLoadRejectsEnabledTelegramWithoutToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.FileName)
	require.NoError(t, os.WriteFile(path, []byte("telegram:\n  enabled: true\n"), 0o644))
	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram.token")
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*config.Config){
		"empty database path":  func(c *config.Config) { c.Database.Path = " " },
		"relative base path":   func(c *config.Config) { c.Server.BasePath = "v0" },
		"zero attempts":        func(c *config.Config) { c.Telegram.Retry.Attempts = 0 },
		"shrinking multiplier": func(c *config.Config) { c.Telegram.Retry.Multiplier = 0.5 },
		"delay above max":      func(c *config.Config) { c.Telegram.Retry.InitialDelay = time.Minute },
		"no concurrency":       func(c *config.Config) { c.Notifications.Concurrency = 0 },
		"unknown log format":   func(c *config.Config) { c.Logging.Format = "xml" },
		"bad webhook url":      func(c *config.Config) { c.Webhooks = []config.WebhookConfig{{URL: "not a url"}} },
		"blank webhook event": func(c *config.Config) {
			c.Webhooks = []config.WebhookConfig{{URL: "http://localhost/hook", Events: []string{" "}}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestFromYAML(t *testing.T) {
	cfg, err := config.FromYAML([]byte(config.GenerateDefault()))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, err = config.FromYAML([]byte("notifications:\n  concurrency: 0\n"))
	require.Error(t, err)
}
