package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	FileName  = "shiftlog.yml"
	EnvPrefix = "SHIFTLOG"
)

// Config models shiftlog.yml.
type Config struct {
	Database      DatabaseConfig      `yaml:"database" mapstructure:"database"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Auth          AuthConfig          `yaml:"auth" mapstructure:"auth"`
	Telegram      TelegramConfig      `yaml:"telegram" mapstructure:"telegram"`
	Notifications NotificationsConfig `yaml:"notifications" mapstructure:"notifications"`
	Logging       LoggingConfig       `yaml:"logging" mapstructure:"logging"`
	Webhooks      []WebhookConfig     `yaml:"webhooks" mapstructure:"webhooks"`
}

type DatabaseConfig struct {
	// Path is relative to the workspace unless absolute.
	Path string `yaml:"path" mapstructure:"path"`
}

type ServerConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	BasePath string `yaml:"base_path" mapstructure:"base_path"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	// AllowHeaderIdentity accepts X-Employee-Id without a token. Local use only.
	AllowHeaderIdentity bool `yaml:"allow_header_identity" mapstructure:"allow_header_identity"`
}

type TelegramConfig struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	Token       string        `yaml:"token" mapstructure:"token"`
	APIEndpoint string        `yaml:"api_endpoint" mapstructure:"api_endpoint"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Retry       RetryConfig   `yaml:"retry" mapstructure:"retry"`
}

type RetryConfig struct {
	Attempts     int           `yaml:"attempts" mapstructure:"attempts"`
	InitialDelay time.Duration `yaml:"initial_delay" mapstructure:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" mapstructure:"multiplier"`
}

type NotificationsConfig struct {
	// Concurrency bounds parallel Telegram deliveries per fan-out.
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Format     string `yaml:"format" mapstructure:"format"`
	File       string `yaml:"file" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
}

// WebhookConfig forwards activity entries to an HTTP endpoint. Events are
// "<entity_type>.<action>" keys such as "feature.status_changed"; empty
// means all.
type WebhookConfig struct {
	URL     string        `yaml:"url" mapstructure:"url"`
	Events  []string      `yaml:"events,omitempty" mapstructure:"events"`
	Secret  string        `yaml:"secret,omitempty" mapstructure:"secret"`
	Enabled *bool         `yaml:"enabled,omitempty" mapstructure:"enabled"`
	Timeout time.Duration `yaml:"timeout,omitempty" mapstructure:"timeout"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("config.database.path is required")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	if c.Telegram.Enabled && strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("config.telegram.token is required when telegram is enabled")
	}
	if c.Telegram.Timeout < 0 {
		return fmt.Errorf("config.telegram.timeout must not be negative")
	}
	r := c.Telegram.Retry
	if r.Attempts < 1 {
		return fmt.Errorf("config.telegram.retry.attempts must be at least 1")
	}
	if r.Multiplier != 0 && r.Multiplier < 1 {
		return fmt.Errorf("config.telegram.retry.multiplier must be >= 1")
	}
	if r.MaxDelay > 0 && r.InitialDelay > r.MaxDelay {
		return fmt.Errorf("config.telegram.retry.initial_delay exceeds max_delay")
	}
	if c.Notifications.Concurrency < 1 {
		return fmt.Errorf("config.notifications.concurrency must be at least 1")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("config.logging.format must be console or json")
	}
	for i, hook := range c.Webhooks {
		u, err := url.Parse(hook.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config.webhooks[%d].url is invalid", i)
		}
		for _, evt := range hook.Events {
			if strings.TrimSpace(evt) == "" {
				return fmt.Errorf("config.webhooks[%d] has empty event", i)
			}
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// GenerateDefault returns the commented default config file.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates a config document.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads path (when it exists) over the defaults and applies SHIFTLOG_*
// environment overrides, e.g. SHIFTLOG_TELEGRAM_TOKEN.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// newViper registers every key with its default so env overrides apply even
// when the file omits the key.
func newViper() *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.base_path", d.Server.BasePath)
	v.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)
	v.SetDefault("auth.allow_header_identity", d.Auth.AllowHeaderIdentity)
	v.SetDefault("telegram.enabled", d.Telegram.Enabled)
	v.SetDefault("telegram.token", d.Telegram.Token)
	v.SetDefault("telegram.api_endpoint", d.Telegram.APIEndpoint)
	v.SetDefault("telegram.timeout", d.Telegram.Timeout)
	v.SetDefault("telegram.retry.attempts", d.Telegram.Retry.Attempts)
	v.SetDefault("telegram.retry.initial_delay", d.Telegram.Retry.InitialDelay)
	v.SetDefault("telegram.retry.max_delay", d.Telegram.Retry.MaxDelay)
	v.SetDefault("telegram.retry.multiplier", d.Telegram.Retry.Multiplier)
	v.SetDefault("notifications.concurrency", d.Notifications.Concurrency)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

const defaultTemplate = `database:
  # Relative to the workspace directory.
  path: .shiftlog/shiftlog.db

server:
  addr: 127.0.0.1:8080
  base_path: /v0

auth:
  # HS256 secret for bearer tokens (sub = employee id). Empty disables tokens.
  jwt_secret: ""
  # Accept X-Employee-Id without a token. Keep off outside local setups.
  allow_header_identity: false

telegram:
  enabled: false
  token: ""
  # Bot API URL template with two %s for token and method, e.g.
  # https://api.telegram.org/bot%s/%s. Empty uses the public Bot API.
  api_endpoint: ""
  timeout: 10s
  retry:
    attempts: 3
    initial_delay: 500ms
    max_delay: 5s
    multiplier: 2

notifications:
  concurrency: 4

logging:
  level: info
  # console or json
  format: console
  # Optional rotating log file.
  file: ""
  max_size_mb: 10
  max_backups: 3
  max_age_days: 28

webhooks: []
`
