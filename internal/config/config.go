package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

const (
	// PathEnv names the variable holding the YAML config path.
	PathEnv = "ARCHIMEDES_CONFIG"

	// DriverMemory keeps records in process memory only.
	DriverMemory = "memory"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Database   DatabaseConfig   `yaml:"database"`
	Slack      SlackConfig      `yaml:"slack"`
	Newsletter NewsletterConfig `yaml:"newsletter"`
	Publish    PublishConfig    `yaml:"publish"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// DatabaseConfig describes the record store connection.
type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"DATABASE_DRIVER"`
	DSN    string `yaml:"dsn" env:"DATABASE_DSN"`
}

// SlackConfig wires the chat platform client and its channels.
type SlackConfig struct {
	BotToken            string        `yaml:"botToken" env:"SLACK_BOT_TOKEN"`
	APIURL              string        `yaml:"apiUrl" env:"SLACK_API_URL"`
	AnnouncementChannel string        `yaml:"announcementChannel" env:"HAPPENINGS_CHANNEL_ID"`
	ApprovalsChannel    string        `yaml:"approvalsChannel" env:"APPROVALS_CHANNEL_ID"`
	Timeout             time.Duration `yaml:"timeout" env:"SLACK_TIMEOUT"`
}

// NewsletterConfig describes the email campaign service.
type NewsletterConfig struct {
	Endpoint   string        `yaml:"endpoint" env:"PLUNK_API_URL"`
	APIKey     string        `yaml:"apiKey" env:"PLUNK_API_KEY"`
	Recipients []string      `yaml:"recipients" env:"NEWSLETTER_RECIPIENTS" envSeparator:","`
	Timeout    time.Duration `yaml:"timeout" env:"PLUNK_TIMEOUT"`
}

// PublishConfig tunes the publish run.
type PublishConfig struct {
	CommitPolicy       string   `yaml:"commitPolicy" env:"PUBLISH_COMMIT_POLICY"`
	Passes             []string `yaml:"passes" env:"PUBLISH_PASSES" envSeparator:","`
	ResolveConcurrency int      `yaml:"resolveConcurrency" env:"RESOLVE_CONCURRENCY"`
}

// TracingConfig enables OTLP span export when Endpoint is set.
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"`
	ServiceName string `yaml:"serviceName" env:"OTEL_SERVICE_NAME"`
}

// Load builds the configuration: defaults, then the YAML file at path (or
// at $ARCHIMEDES_CONFIG when path is empty), then environment overrides.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("apply env overrides: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings every command depends on. Credentials are
// checked where the adapter is built, so offline commands work without them.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Logging),
		validation.Field(&c.Database),
		validation.Field(&c.Publish),
	)
}

// Validate implements validation.Validatable.
func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "warning", "error")),
		validation.Field(&l.Format, validation.In("text", "json")),
	)
}

// Validate implements validation.Validatable.
func (d DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Driver, validation.Required, validation.In("sqlite", "postgres", DriverMemory)),
		validation.Field(&d.DSN, validation.When(d.Driver != DriverMemory, validation.Required)),
	)
}

// Validate implements validation.Validatable.
func (p PublishConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.CommitPolicy, validation.Required, validation.In("always", "any-success")),
		validation.Field(&p.ResolveConcurrency, validation.Min(1)),
	)
}

func (c *Config) normalize() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Publish.CommitPolicy = strings.ToLower(strings.TrimSpace(c.Publish.CommitPolicy))

	recipients := c.Newsletter.Recipients[:0]
	for _, r := range c.Newsletter.Recipients {
		if r = strings.TrimSpace(r); r != "" {
			recipients = append(recipients, r)
		}
	}
	c.Newsletter.Recipients = recipients
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Slack.BotToken != "" {
		base.Slack.BotToken = override.Slack.BotToken
	}
	if override.Slack.APIURL != "" {
		base.Slack.APIURL = override.Slack.APIURL
	}
	if override.Slack.AnnouncementChannel != "" {
		base.Slack.AnnouncementChannel = override.Slack.AnnouncementChannel
	}
	if override.Slack.ApprovalsChannel != "" {
		base.Slack.ApprovalsChannel = override.Slack.ApprovalsChannel
	}
	if override.Slack.Timeout > 0 {
		base.Slack.Timeout = override.Slack.Timeout
	}

	if override.Newsletter.Endpoint != "" {
		base.Newsletter.Endpoint = override.Newsletter.Endpoint
	}
	if override.Newsletter.APIKey != "" {
		base.Newsletter.APIKey = override.Newsletter.APIKey
	}
	if len(override.Newsletter.Recipients) > 0 {
		base.Newsletter.Recipients = override.Newsletter.Recipients
	}
	if override.Newsletter.Timeout > 0 {
		base.Newsletter.Timeout = override.Newsletter.Timeout
	}

	if override.Publish.CommitPolicy != "" {
		base.Publish.CommitPolicy = override.Publish.CommitPolicy
	}
	if len(override.Publish.Passes) > 0 {
		base.Publish.Passes = override.Publish.Passes
	}
	if override.Publish.ResolveConcurrency > 0 {
		base.Publish.ResolveConcurrency = override.Publish.ResolveConcurrency
	}

	if override.Tracing.Endpoint != "" {
		base.Tracing.Endpoint = override.Tracing.Endpoint
	}
	if override.Tracing.ServiceName != "" {
		base.Tracing.ServiceName = override.Tracing.ServiceName
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "archimedes.db"},
		Slack: SlackConfig{
			Timeout: 10 * time.Second,
		},
		Newsletter: NewsletterConfig{
			Endpoint: "https://api.useplunk.com/v1",
			Timeout:  15 * time.Second,
		},
		Publish: PublishConfig{
			CommitPolicy:       "always",
			Passes:             []string{"mentions", "channels"},
			ResolveConcurrency: 4,
		},
		Tracing: TracingConfig{ServiceName: "archimedes"},
	}
}
