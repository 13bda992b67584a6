package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Session  SessionConfig
	Autosave AutosaveConfig
	Logging  LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8800"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// StoreConfig holds durable store configuration.
type StoreConfig struct {
	Path      string `envconfig:"STORE_PATH" default:"termsession.db"`
	Workspace string `envconfig:"WORKSPACE_ID" default:"default"`
}

// SessionConfig holds session persistence configuration.
type SessionConfig struct {
	Enabled           bool          `envconfig:"SESSION_ENABLED" default:"true"`
	ScrollbackLines   int           `envconfig:"SESSION_SCROLLBACK_LINES" default:"1000"`
	StorageLimitMB    int           `envconfig:"SESSION_STORAGE_LIMIT_MB" default:"20"`
	ExpiryDays        int           `envconfig:"SESSION_EXPIRY_DAYS" default:"7"`
	RevivePolicy      string        `envconfig:"SESSION_REVIVE_POLICY" default:"onExitAndWindowClose"`
	ExtractionTimeout time.Duration `envconfig:"SESSION_EXTRACTION_TIMEOUT" default:"2s"`
	ReadinessTimeout  time.Duration `envconfig:"SESSION_READINESS_TIMEOUT" default:"3s"`
	RestoreGrace      time.Duration `envconfig:"SESSION_RESTORE_GRACE" default:"5s"`
}

// AutosaveConfig holds auto-save trigger configuration.
type AutosaveConfig struct {
	PeriodicInterval time.Duration `envconfig:"AUTOSAVE_INTERVAL" default:"5m"`
	DebounceInterval time.Duration `envconfig:"AUTOSAVE_DEBOUNCE" default:"2s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8800",
			Host: "127.0.0.1",
		},
		Store: StoreConfig{
			Path:      "termsession.db",
			Workspace: "default",
		},
		Session: SessionConfig{
			Enabled:           true,
			ScrollbackLines:   1000,
			StorageLimitMB:    20,
			ExpiryDays:        7,
			RevivePolicy:      "onExitAndWindowClose",
			ExtractionTimeout: 2 * time.Second,
			ReadinessTimeout:  3 * time.Second,
			RestoreGrace:      5 * time.Second,
		},
		Autosave: AutosaveConfig{
			PeriodicInterval: 5 * time.Minute,
			DebounceInterval: 2 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}
