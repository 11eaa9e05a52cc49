package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Mode selects runtime behavior that differs between local development and
// production. It is resolved once at startup and passed explicitly; no code
// re-derives it from request data.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// devEncryptionKey is a fixed key used only when Mode is development and no
// key is configured. Production refuses to start without an explicit key.
const devEncryptionKey = "6368616e676520746869732064657620656e6372797074696f6e206b65792121"

// Config holds the configuration for the standup service.
// Environment variables are parsed from the STANDUP_ prefix.
type Config struct {
	Mode Mode `envconfig:"MODE" default:"development"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Storage: memory, sqlite, postgres, or auto (derived from DSN/path)
	DBDriver    string `envconfig:"DB_DRIVER" default:"auto"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:""`

	// Credential encryption (hex-encoded 32-byte key)
	EncryptionKey string `envconfig:"ENCRYPTION_KEY" default:""`

	// Service API key accepted by the HTTP layer
	APIKey string `envconfig:"API_KEY" default:""`

	// Source-control provider
	GitHubBaseURL      string        `envconfig:"GITHUB_BASE_URL" default:"https://api.github.com"`
	FetchTimeout       time.Duration `envconfig:"FETCH_TIMEOUT" default:"15s"`
	FetchMaxConcurrent int           `envconfig:"FETCH_MAX_CONCURRENT" default:"4"`

	// LLM. An empty API key means no LLM is configured and generation always
	// uses the deterministic template.
	LLMAPIKey      string        `envconfig:"LLM_API_KEY" default:""`
	LLMBaseURL     string        `envconfig:"LLM_BASE_URL" default:"https://api.openai.com/v1"`
	LLMModel       string        `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
	LLMTimeout     time.Duration `envconfig:"LLM_TIMEOUT" default:"30s"`
	LLMTemperature float64       `envconfig:"LLM_TEMPERATURE" default:"0.7"`
	// USD per 1000 tokens for the configured model
	LLMUnitCost float64 `envconfig:"LLM_UNIT_COST" default:"0.0006"`
}

// ResolveDefaults validates Mode, derives DBDriver when set to "auto" and
// fills the development encryption key. It must be called after parsing.
func (c *Config) ResolveDefaults() error {
	switch c.Mode {
	case ModeDevelopment, ModeProduction:
	default:
		return fmt.Errorf("unsupported STANDUP_MODE: %s", c.Mode)
	}

	if c.DBDriver == "" || c.DBDriver == "auto" {
		switch {
		case c.PostgresDSN != "":
			c.DBDriver = "postgres"
		case c.SQLitePath != "":
			c.DBDriver = "sqlite"
		default:
			c.DBDriver = "memory"
		}
	}
	allowed := map[string]bool{"memory": true, "sqlite": true, "postgres": true}
	if !allowed[c.DBDriver] {
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	if c.DBDriver == "memory" && c.Mode == ModeProduction {
		return fmt.Errorf("in-memory store is not allowed in production")
	}

	if c.EncryptionKey == "" {
		if c.Mode == ModeProduction {
			return fmt.Errorf("STANDUP_ENCRYPTION_KEY is required in production")
		}
		log.Warn().Msg("using built-in development encryption key")
		c.EncryptionKey = devEncryptionKey
	}
	return nil
}

// LLMConfigured reports whether an LLM backend is available.
func (c *Config) LLMConfigured() bool { return c.LLMAPIKey != "" }

// New creates a new Config by parsing environment variables.
// Variables are prefixed with STANDUP_, e.g. STANDUP_HTTP_PORT.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("STANDUP", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("mode", string(cfg.Mode)).
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Bool("llm_configured", cfg.LLMConfigured()).
		Str("llm_model", cfg.LLMModel).
		Msg("Configuration loaded")

	return &cfg, nil
}
