package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"

	"github.com/wtask/relay/internal/relay/limit"
)

type Config struct {
	Addr         string        `env:"RELAY_ADDR" default:"0.0.0.0:8080" usage:"TCP address to accept relay clients on"`
	Capacity     int           `env:"RELAY_CAPACITY" default:"10" usage:"messages retained for slow clients before they lag"`
	WriteTimeout time.Duration `env:"RELAY_WRITE_TIMEOUT" default:"30s" usage:"disconnect a client that does not accept a line in time"`
	IdleTimeout  time.Duration `env:"RELAY_IDLE_TIMEOUT" default:"0s" usage:"disconnect a silent client, 0 disables"`
	MaxLineBytes int           `env:"RELAY_MAX_LINE_BYTES" default:"65536" usage:"longest accepted line, terminator included"`

	MaxConnections      int     `env:"RELAY_MAX_CONNECTIONS" default:"0" usage:"concurrent clients, 0 is unlimited"`
	MaxConnectionsPerIP int     `env:"RELAY_MAX_CONNECTIONS_PER_IP" default:"0" usage:"concurrent clients per IP, 0 is unlimited"`
	AcceptRate          float64 `env:"RELAY_ACCEPT_RATE" default:"0" usage:"accepted connections per second, 0 is unlimited"`
	AcceptBurst         int     `env:"RELAY_ACCEPT_BURST" default:"10" usage:"connections accepted at once above the rate"`

	ShutdownTimeout time.Duration `env:"RELAY_SHUTDOWN_TIMEOUT" default:"10s" usage:"time to wait for sessions on shutdown"`
	AdminAddr       string        `env:"RELAY_ADMIN_ADDR" usage:"HTTP address for health, metrics and version, empty disables"`

	LogLevel  string `env:"LOG_LEVEL" default:"info" usage:"debug, info, warn or error"`
	LogFormat string `env:"LOG_FORMAT" default:"text" usage:"text or json"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Usage writes the list of supported variables with their defaults.
func Usage(w io.Writer) {
	env.Usage(&Config{}, w, nil)
}

// Limits returns admission settings of relay listener.
func (c *Config) Limits() limit.Config {
	return limit.Config{
		MaxConnections:      c.MaxConnections,
		MaxConnectionsPerIP: c.MaxConnectionsPerIP,
		AcceptRate:          c.AcceptRate,
		AcceptBurst:         c.AcceptBurst,
	}
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return errors.New("RELAY_ADDR is required")
	}
	if cfg.Capacity <= 0 {
		return fmt.Errorf("RELAY_CAPACITY must be positive, got %d", cfg.Capacity)
	}
	if cfg.WriteTimeout <= 0 {
		return fmt.Errorf("RELAY_WRITE_TIMEOUT must be positive, got %s", cfg.WriteTimeout)
	}
	if cfg.IdleTimeout < 0 {
		return fmt.Errorf("RELAY_IDLE_TIMEOUT must not be negative, got %s", cfg.IdleTimeout)
	}
	if cfg.MaxLineBytes <= 0 {
		return fmt.Errorf("RELAY_MAX_LINE_BYTES must be positive, got %d", cfg.MaxLineBytes)
	}

	nonNegative := map[string]int{
		"RELAY_MAX_CONNECTIONS":        cfg.MaxConnections,
		"RELAY_MAX_CONNECTIONS_PER_IP": cfg.MaxConnectionsPerIP,
	}
	for name, value := range nonNegative {
		if value < 0 {
			return fmt.Errorf("%s must not be negative, got %d", name, value)
		}
	}
	if cfg.AcceptRate < 0 {
		return fmt.Errorf("RELAY_ACCEPT_RATE must not be negative, got %g", cfg.AcceptRate)
	}
	if cfg.AcceptRate > 0 && cfg.AcceptBurst < 1 {
		return fmt.Errorf("RELAY_ACCEPT_BURST must be at least 1 when RELAY_ACCEPT_RATE is set, got %d", cfg.AcceptBurst)
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("RELAY_SHUTDOWN_TIMEOUT must be positive, got %s", cfg.ShutdownTimeout)
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	return nil
}
