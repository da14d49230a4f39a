package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	EnvironmentProduction  = "production"
	EnvironmentDevelopment = "development"
	EnvironmentTest        = "test"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type WebhookConfig struct {
	Secret string `koanf:"secret" mapstructure:"secret"`
	// SkipVerification disables signature checks for local development.
	// Validate rejects it outside non-production environments.
	SkipVerification bool `koanf:"skip_verification" mapstructure:"skip_verification"`
}

type NotifierConfig struct {
	URL            string `koanf:"url" mapstructure:"url"`
	TimeoutSeconds int    `koanf:"timeout_seconds" mapstructure:"timeout_seconds"`
}

type StorageConfig struct {
	Driver string `koanf:"driver" mapstructure:"driver"`
	DSN    string `koanf:"dsn" mapstructure:"dsn"`
}

type PhoneConfig struct {
	// DefaultCountryCode is prefixed onto bare national numbers by the
	// normalizer heuristic.
	DefaultCountryCode string `koanf:"default_country_code" mapstructure:"default_country_code"`
}

type RetentionConfig struct {
	// Days bounds how long terminal verification records are kept before
	// the maintenance worker may prune them. Zero disables pruning.
	Days int `koanf:"days" mapstructure:"days"`
}

type Config struct {
	ServiceName string          `koanf:"service_name" mapstructure:"service_name"`
	Environment string          `koanf:"environment" mapstructure:"environment"`
	ListenAddr  string          `koanf:"listen_addr" mapstructure:"listen_addr"`
	Webhook     WebhookConfig   `koanf:"webhook" mapstructure:"webhook"`
	Notifier    NotifierConfig  `koanf:"notifier" mapstructure:"notifier"`
	Storage     StorageConfig   `koanf:"storage" mapstructure:"storage"`
	Phone       PhoneConfig     `koanf:"phone" mapstructure:"phone"`
	Retention   RetentionConfig `koanf:"retention" mapstructure:"retention"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "orderverify",
		Environment: EnvironmentDevelopment,
		ListenAddr:  ":8080",
		Notifier: NotifierConfig{
			TimeoutSeconds: 10,
		},
		Storage: StorageConfig{
			Driver: DriverSQLite,
			DSN:    "file:orderverify.db?_foreign_keys=on",
		},
		Phone: PhoneConfig{
			DefaultCountryCode: "91",
		},
		Retention: RetentionConfig{
			Days: 90,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("core: listen_addr is required")
	}
	environment := strings.TrimSpace(strings.ToLower(c.Environment))
	switch environment {
	case EnvironmentProduction, EnvironmentDevelopment, EnvironmentTest:
	default:
		return fmt.Errorf("core: unknown environment %q", c.Environment)
	}
	if c.Webhook.SkipVerification && environment == EnvironmentProduction {
		return fmt.Errorf("core: webhook.skip_verification must not be set in production")
	}
	if !c.Webhook.SkipVerification && strings.TrimSpace(c.Webhook.Secret) == "" {
		return fmt.Errorf("core: webhook.secret is required")
	}
	if strings.TrimSpace(c.Notifier.URL) == "" {
		return fmt.Errorf("core: notifier.url is required")
	}
	if c.Notifier.TimeoutSeconds <= 0 {
		return fmt.Errorf("core: notifier.timeout_seconds must be positive")
	}
	switch strings.TrimSpace(c.Storage.Driver) {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("core: unsupported storage driver %q", c.Storage.Driver)
	}
	if strings.TrimSpace(c.Storage.DSN) == "" {
		return fmt.Errorf("core: storage.dsn is required")
	}
	if strings.TrimSpace(c.Phone.DefaultCountryCode) == "" {
		return fmt.Errorf("core: phone.default_country_code is required")
	}
	if c.Retention.Days < 0 {
		return fmt.Errorf("core: retention.days must not be negative")
	}
	return nil
}

// IsProduction reports whether the resolved environment is production.
func (c Config) IsProduction() bool {
	return strings.TrimSpace(strings.ToLower(c.Environment)) == EnvironmentProduction
}

// NotifierTimeout returns the dispatch timeout as a duration.
func (c Config) NotifierTimeout() time.Duration {
	if c.Notifier.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Notifier.TimeoutSeconds) * time.Second
}

// RetentionWindow returns the prune window as a duration. Zero means
// pruning is disabled.
func (c Config) RetentionWindow() time.Duration {
	if c.Retention.Days <= 0 {
		return 0
	}
	return time.Duration(c.Retention.Days) * 24 * time.Hour
}
