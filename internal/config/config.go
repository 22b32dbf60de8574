// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Dialogue transports.
const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

// Runner backends.
const (
	BackendRemote  = "remote"
	BackendSandbox = "sandbox"
)

// Config holds all application configuration.
type Config struct {
	Port        string        `env:"PORT" envDefault:"8080"`
	FrontendURL string        `env:"FRONTEND_URL"`
	DBPath      string        `env:"DB_PATH" envDefault:"./data/interviewer.db"`
	LogLevel    slog.Level    `env:"LOG_LEVEL" envDefault:"INFO"`
	SessionTTL  time.Duration `env:"SESSION_TTL" envDefault:"60m"`
	CatalogPath string        `env:"CATALOG_PATH"`

	WarningDuration time.Duration `env:"WARNING_DURATION" envDefault:"4s"`
	CallTimeout     time.Duration `env:"CALL_TIMEOUT" envDefault:"90s"`
	ResetTimeout    time.Duration `env:"RESET_TIMEOUT" envDefault:"5s"`

	Dialogue DialogueConfig
	Runner   RunnerConfig
}

// DialogueConfig selects and tunes the remote dialogue client.
type DialogueConfig struct {
	Transport string  `env:"DIALOGUE_TRANSPORT" envDefault:"http"`
	URL       string  `env:"DIALOGUE_URL" envDefault:"http://localhost:8000"`
	GrpcAddr  string  `env:"DIALOGUE_GRPC_ADDR"`
	Mode      string  `env:"DIALOGUE_MODE" envDefault:"TECH"`
	RateLimit float64 `env:"DIALOGUE_RATE_LIMIT" envDefault:"2"`
	RateBurst int     `env:"DIALOGUE_RATE_BURST" envDefault:"4"`
}

// RunnerConfig selects the code runner.
type RunnerConfig struct {
	Backend     string        `env:"RUNNER_BACKEND" envDefault:"remote"`
	URL         string        `env:"RUNNER_URL" envDefault:"http://localhost:8000"`
	Image       string        `env:"SANDBOX_IMAGE" envDefault:"python:3.12-alpine"`
	Runtime     string        `env:"SANDBOX_RUNTIME"` // "" = default (runc), "runsc" = gVisor
	TestTimeout time.Duration `env:"SANDBOX_TEST_TIMEOUT" envDefault:"5s"`
	Review      bool          `env:"SANDBOX_REVIEW" envDefault:"true"`
	MaxAge      time.Duration `env:"SANDBOX_MAX_AGE" envDefault:"10m"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.WarningDuration <= 0 {
		return fmt.Errorf("WARNING_DURATION must be > 0")
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("CALL_TIMEOUT must be > 0")
	}

	switch c.Dialogue.Transport {
	case TransportHTTP:
		if c.Dialogue.URL == "" {
			return fmt.Errorf("DIALOGUE_URL cannot be empty for the http transport")
		}
	case TransportGRPC:
		if c.Dialogue.GrpcAddr == "" {
			return fmt.Errorf("DIALOGUE_GRPC_ADDR cannot be empty for the grpc transport")
		}
	default:
		return fmt.Errorf("DIALOGUE_TRANSPORT must be %q or %q, got %q", TransportHTTP, TransportGRPC, c.Dialogue.Transport)
	}

	switch c.Runner.Backend {
	case BackendRemote:
		if c.Runner.URL == "" {
			return fmt.Errorf("RUNNER_URL cannot be empty for the remote backend")
		}
	case BackendSandbox:
		if c.Runner.Image == "" {
			return fmt.Errorf("SANDBOX_IMAGE cannot be empty for the sandbox backend")
		}
		if c.Runner.TestTimeout <= 0 {
			return fmt.Errorf("SANDBOX_TEST_TIMEOUT must be > 0")
		}
	default:
		return fmt.Errorf("RUNNER_BACKEND must be %q or %q, got %q", BackendRemote, BackendSandbox, c.Runner.Backend)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// IsContainer returns true if running inside a Docker container.
func IsContainer() bool {
	if os.Getenv("CONTAINER") == "true" {
		return true
	}
	// Check for .dockerenv file
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}
