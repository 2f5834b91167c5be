package ratelimit

import (
	"fmt"
	"net/http"
	"time"

	"github.com/caarlos0/env/v11"
)

// EndpointConfig is the limit applied to one route.
type EndpointConfig struct {
	Path   string // exact path, or a prefix when it ends in "/"
	Method string
	Limit  int // requests per Window; zero or less means unlimited
	Window time.Duration
	Burst  int // defaults to Limit
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	DefaultLimit    int           `env:"RATE_LIMIT_DEFAULT_LIMIT" envDefault:"600"`
	DefaultWindow   time.Duration `env:"RATE_LIMIT_DEFAULT_WINDOW" envDefault:"1m"`
	CleanupInterval time.Duration `env:"RATE_LIMIT_CLEANUP_INTERVAL" envDefault:"5m"`
	// IdleTTL is how long an unused client bucket is kept.
	IdleTTL   time.Duration `env:"RATE_LIMIT_IDLE_TTL" envDefault:"1h"`
	Whitelist []string      `env:"RATE_LIMIT_WHITELIST" envSeparator:","`
	Blacklist []string      `env:"RATE_LIMIT_BLACKLIST" envSeparator:","`

	EndpointConfigs []EndpointConfig `env:"-"`
}

// LoadConfig reads RATE_LIMIT_* variables and attaches the default endpoint limits.
func LoadConfig() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse rate limit config: %w", err)
	}
	if cfg.Enabled && (cfg.DefaultLimit <= 0 || cfg.DefaultWindow <= 0) {
		return nil, fmt.Errorf("RATE_LIMIT_DEFAULT_LIMIT and RATE_LIMIT_DEFAULT_WINDOW must be positive")
	}
	cfg.EndpointConfigs = DefaultEndpointConfigs()
	return &cfg, nil
}

// DefaultConfig returns the limits used when no environment is configured.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    600,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         time.Hour,
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the per-route limits.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// credential checks
		{Path: "/auth/login", Method: http.MethodPost, Limit: 10, Window: time.Minute, Burst: 5},
		{Path: "/auth/register", Method: http.MethodPost, Limit: 5, Window: time.Minute, Burst: 3},

		// intake may fetch pages, launch a browser and call the model
		{Path: "/workspace/jobs/intake", Method: http.MethodPost, Limit: 30, Window: time.Hour, Burst: 5},

		{Path: "/workspace/actions", Method: http.MethodPost, Limit: 120, Window: time.Minute, Burst: 20},
	}
}
