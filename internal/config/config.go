// Package config loads and validates the engine configuration from
// ~/.betterui/betterui.json, with BETTERUI_ environment overrides and
// optional hot reload.
package config

import (
	"fmt"

	"github.com/lantos1618/better-ui-sub002/internal/logger"
)

// Config is the root engine configuration.
type Config struct {
	// Data directory, defaults to ~/.betterui.
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	Server    ServerConfig     `json:"server" mapstructure:"server"`
	Logging   LoggingConfig    `json:"logging" mapstructure:"logging"`
	Audit     AuditConfig      `json:"audit" mapstructure:"audit"`
	Builtins  BuiltinsConfig   `json:"builtins" mapstructure:"builtins"`
	Schedules []ScheduleConfig `json:"schedules" mapstructure:"schedules"`
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Enabled            bool   `json:"enabled" mapstructure:"enabled"`
	Host               string `json:"host" mapstructure:"host"`
	Port               int    `json:"port" mapstructure:"port"`
	RateLimitPerMinute int    `json:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level"`
	File       string `json:"file" mapstructure:"file"`
	Console    bool   `json:"console" mapstructure:"console"`
	Pretty     bool   `json:"pretty" mapstructure:"pretty"`
	Redaction  bool   `json:"redaction" mapstructure:"redaction"`
	MaxSizeMB  int    `json:"max_size_mb" mapstructure:"max_size_mb"`
	MaxAgeDays int    `json:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `json:"compress" mapstructure:"compress"`
}

// AuditConfig configures the execution audit trail.
type AuditConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	DBPath  string `json:"db_path" mapstructure:"db_path"`
}

// BuiltinsConfig configures the built-in capability set.
type BuiltinsConfig struct {
	Enabled    bool `json:"enabled" mapstructure:"enabled"`
	AllowFetch bool `json:"allow_fetch" mapstructure:"allow_fetch"`
}

// ScheduleConfig declares a cron-driven capability run.
type ScheduleConfig struct {
	Name  string                 `json:"name" mapstructure:"name"`
	Spec  string                 `json:"spec" mapstructure:"spec"`
	Input map[string]interface{} `json:"input" mapstructure:"input"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Enabled:            true,
			Host:               "0.0.0.0",
			Port:               3001,
			RateLimitPerMinute: 100,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Console:    true,
			Pretty:     true,
			Redaction:  true,
			MaxSizeMB:  100,
			MaxAgeDays: 7,
			Compress:   true,
		},
		Audit:    AuditConfig{Enabled: true},
		Builtins: BuiltinsConfig{Enabled: true},
	}
}

// Validate checks invariants the loader cannot express.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("rate limit cannot be negative")
	}

	switch c.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}

	seen := make(map[string]bool)
	for _, s := range c.Schedules {
		if s.Name == "" {
			return fmt.Errorf("schedule is missing a capability name")
		}
		if s.Spec == "" {
			return fmt.Errorf("schedule for %q is missing a cron spec", s.Name)
		}
		key := s.Name + "|" + s.Spec
		if seen[key] {
			return fmt.Errorf("duplicate schedule for %q with spec %q", s.Name, s.Spec)
		}
		seen[key] = true
	}

	return nil
}

// LoggerConfig maps the logging section onto the logger package config.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:      c.Logging.Level,
		File:       c.Logging.File,
		Console:    c.Logging.Console,
		Pretty:     c.Logging.Pretty,
		Redaction:  c.Logging.Redaction,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxAgeDays: c.Logging.MaxAgeDays,
		Compress:   c.Logging.Compress,
	}
}
