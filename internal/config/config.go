package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override: api.key is NOTIFOX_API_KEY.
const EnvPrefix = "NOTIFOX"

// Config holds all notifox configuration.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Server   ServerConfig   `mapstructure:"server"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
}

// APIConfig defines how the Notifox API is reached.
type APIConfig struct {
	Key        string `mapstructure:"key"`
	BaseURL    string `mapstructure:"base_url"`
	Timeout    string `mapstructure:"timeout"`
	MaxRetries int    `mapstructure:"max_retries"`
	Backoff    string `mapstructure:"backoff"` // first retry wait, doubled per attempt
}

// PricingConfig selects the rate plan used for local estimates.
type PricingConfig struct {
	Plan      string `mapstructure:"plan"`
	UnitPrice string `mapstructure:"unit_price"`
	Currency  string `mapstructure:"currency"`
	File      string `mapstructure:"file"` // optional YAML plans file
}

// StorageConfig defines database settings.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig defines the HTTP API and alert relay settings.
type ServerConfig struct {
	Listen         string `mapstructure:"listen"`
	ReadTimeout    string `mapstructure:"read_timeout"`
	WriteTimeout   string `mapstructure:"write_timeout"`
	MaxBodySize    int64  `mapstructure:"max_body_size"`
	DenyOnExceed   bool   `mapstructure:"deny_on_exceed"`
	AddCostHeaders bool   `mapstructure:"add_cost_headers"`
}

// AlertsConfig defines budget alerting integrations.
type AlertsConfig struct {
	Slack   SlackConfig   `mapstructure:"slack"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Notifox NotifoxConfig `mapstructure:"notifox"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// NotifoxConfig sends budget alerts through Notifox itself.
type NotifoxConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Audience string `mapstructure:"audience"`
	Channel  string `mapstructure:"channel"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultsConfig defines default values.
type DefaultsConfig struct {
	Audience string `mapstructure:"audience"`
	Channel  string `mapstructure:"channel"`
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("find home directory: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(filepath.Join(home, ".notifox"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Every key needs a default so AutomaticEnv can fill it during Unmarshal.
	v.SetDefault("api.key", "")
	v.SetDefault("api.base_url", "https://api.notifox.com")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.max_retries", 3)
	v.SetDefault("api.backoff", "500ms")
	v.SetDefault("pricing.plan", "default")
	v.SetDefault("pricing.unit_price", "0.025")
	v.SetDefault("pricing.currency", "USD")
	v.SetDefault("pricing.file", "")
	v.SetDefault("storage.path", filepath.Join(home, ".notifox", "notifox.db"))
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.max_body_size", 1<<20) // 1 MB
	v.SetDefault("server.deny_on_exceed", false)
	v.SetDefault("server.add_cost_headers", true)
	v.SetDefault("alerts.slack.enabled", false)
	v.SetDefault("alerts.slack.webhook_url", "")
	v.SetDefault("alerts.slack.channel", "#sms-costs")
	v.SetDefault("alerts.webhook.enabled", false)
	v.SetDefault("alerts.webhook.url", "")
	v.SetDefault("alerts.webhook.secret", "")
	v.SetDefault("alerts.notifox.enabled", false)
	v.SetDefault("alerts.notifox.audience", "")
	v.SetDefault("alerts.notifox.channel", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("defaults.audience", "")
	v.SetDefault("defaults.channel", "")

	// Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Duration parses s, falling back to def when s is empty or invalid.
func Duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
