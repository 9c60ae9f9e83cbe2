// Package config loads the interview engine configuration from a YAML file
// and INTERVIEW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/interview-engine/internal/bias"
	"github.com/jonathan/interview-engine/internal/types"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// INTERVIEW_STORE_DRIVER or INTERVIEW_ENGINE_SESSION_MAX_QUESTIONS.
const EnvPrefix = "INTERVIEW"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Bank sources.
const (
	BankFile     = "file"
	BankPostgres = "postgres"
)

// Config is the full service configuration.
type Config struct {
	DatabaseURL string          `mapstructure:"database-url"`
	Server      ServerConfig    `mapstructure:"server"`
	Store       StoreConfig     `mapstructure:"store"`
	Bank        BankConfig      `mapstructure:"bank"`
	Engine      EngineConfig    `mapstructure:"engine"`
	Bias        bias.Config     `mapstructure:"bias"`
	Notify      NotifyConfig    `mapstructure:"notify"`
	Log         LogConfig       `mapstructure:"log"`
	RateLimit   RateLimitConfig `mapstructure:"rate-limit"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read-timeout"`
	WriteTimeout    time.Duration `mapstructure:"write-timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`

	// AuthRequired turns on bearer token checks; the secret comes from JWT_SECRET.
	AuthRequired bool `mapstructure:"auth-required"`
}

// StoreConfig selects the session store.
type StoreConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite-path"`

	// Retention keeps terminal sessions readable; zero keeps them forever.
	Retention time.Duration `mapstructure:"retention"`
}

// BankConfig selects the question bank.
type BankConfig struct {
	Source   string        `mapstructure:"source"`
	Path     string        `mapstructure:"path"`
	CacheTTL time.Duration `mapstructure:"cache-ttl"`
}

// EngineConfig tunes the session engine.
type EngineConfig struct {
	Session           types.SessionConfig `mapstructure:"session"`
	MaxCommitAttempts int                 `mapstructure:"max-commit-attempts"`
	Timers            bool                `mapstructure:"timers"`
	SweepInterval     time.Duration       `mapstructure:"sweep-interval"`
	SweepBatch        int                 `mapstructure:"sweep-batch"`
	SweepConcurrency  int                 `mapstructure:"sweep-concurrency"`
}

// NotifyConfig configures event delivery.
type NotifyConfig struct {
	QueueSize      int               `mapstructure:"queue-size"`
	Timeout        time.Duration     `mapstructure:"timeout"`
	LogEvents      bool              `mapstructure:"log-events"`
	WebhookURL     string            `mapstructure:"webhook-url"`
	WebhookHeaders map[string]string `mapstructure:"webhook-headers"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

// RateLimitConfig configures per-client request limits.
type RateLimitConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	DefaultLimit    int           `mapstructure:"default-limit"`
	DefaultWindow   time.Duration `mapstructure:"default-window"`
	CleanupInterval time.Duration `mapstructure:"cleanup-interval"`
	Whitelist       []string      `mapstructure:"whitelist"`
	Blacklist       []string      `mapstructure:"blacklist"`
}

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: '%s' %s", e.Field, e.Message)
}

// defaults lists every key with its default value. Registering each key lets
// AutomaticEnv resolve overrides for nested fields during Unmarshal.
func defaults() map[string]any {
	return map[string]any{
		"database-url": "",

		"server.addr":             ":8080",
		"server.read-timeout":     "15s",
		"server.write-timeout":    "30s",
		"server.shutdown-timeout": "30s",
		"server.auth-required":    false,

		"store.driver":      DriverMemory,
		"store.sqlite-path": "interview.db",
		"store.retention":   "720h",

		"bank.source":    BankFile,
		"bank.path":      "",
		"bank.cache-ttl": "5m",

		"engine.session.min-questions":          5,
		"engine.session.max-questions":          20,
		"engine.session.precision-threshold":    0.3,
		"engine.session.difficulty-band.min":    0.0,
		"engine.session.difficulty-band.max":    0.0,
		"engine.session.time-budget":            "0s",
		"engine.session.inactivity-timeout":     "72h",
		"engine.session.initial-theta":          types.DefaultInitialTheta,
		"engine.session.initial-standard-error": types.DefaultInitialSE,
		"engine.max-commit-attempts":            3,
		"engine.timers":                         true,
		"engine.sweep-interval":                 "1m",
		"engine.sweep-batch":                    100,
		"engine.sweep-concurrency":              4,

		"bias.threshold":           bias.DefaultConfig().Threshold,
		"bias.deviation-threshold": bias.DefaultConfig().DeviationThreshold,
		"bias.deviation-weight":    bias.DefaultConfig().DeviationWeight,
		"bias.demographic-weight":  bias.DefaultConfig().DemographicWeight,

		"notify.queue-size":  256,
		"notify.timeout":     "5s",
		"notify.log-events":  true,
		"notify.webhook-url": "",

		"log.json":  false,
		"log.debug": false,

		"rate-limit.enabled":          true,
		"rate-limit.default-limit":    600,
		"rate-limit.default-window":   "1m",
		"rate-limit.cleanup-interval": "5m",
		"rate-limit.whitelist":        []string{},
		"rate-limit.blacklist":        []string{},
	}
}

// Load reads path (optional) and the environment into a validated Config.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("database-url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind DATABASE_URL: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints viper cannot express.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return &ConfigError{Field: "store.sqlite-path", Message: "is required for the sqlite driver"}
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return &ConfigError{Field: "database-url", Message: "is required for the postgres driver"}
		}
	default:
		return &ConfigError{Field: "store.driver", Message: fmt.Sprintf("must be one of memory, sqlite, postgres; got %q", c.Store.Driver)}
	}
	if c.Store.Retention < 0 {
		return &ConfigError{Field: "store.retention", Message: "must be non-negative"}
	}

	switch c.Bank.Source {
	case BankFile:
		if c.Bank.Path == "" {
			return &ConfigError{Field: "bank.path", Message: "is required for a file bank"}
		}
	case BankPostgres:
		if c.DatabaseURL == "" {
			return &ConfigError{Field: "database-url", Message: "is required for a postgres bank"}
		}
	default:
		return &ConfigError{Field: "bank.source", Message: fmt.Sprintf("must be file or postgres; got %q", c.Bank.Source)}
	}
	if c.Bank.CacheTTL < 0 {
		return &ConfigError{Field: "bank.cache-ttl", Message: "must be non-negative"}
	}

	if err := c.Engine.Session.Validate(); err != nil {
		return &ConfigError{Field: "engine.session", Message: err.Error()}
	}
	if c.Engine.MaxCommitAttempts < 1 {
		return &ConfigError{Field: "engine.max-commit-attempts", Message: "must be at least 1"}
	}
	if c.Engine.SweepInterval <= 0 {
		return &ConfigError{Field: "engine.sweep-interval", Message: "must be positive"}
	}
	if err := c.Bias.Validate(); err != nil {
		return &ConfigError{Field: "bias", Message: err.Error()}
	}
	if c.Notify.QueueSize < 1 {
		return &ConfigError{Field: "notify.queue-size", Message: "must be at least 1"}
	}
	if c.RateLimit.Enabled && (c.RateLimit.DefaultLimit < 1 || c.RateLimit.DefaultWindow <= 0) {
		return &ConfigError{Field: "rate-limit", Message: "default-limit and default-window must be positive when enabled"}
	}
	return nil
}

// IsConfigError reports whether err is a *ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}
