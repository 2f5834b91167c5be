// Package config loads pallybot configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/jonathan/pallybot/internal/llm"
	"github.com/joho/godotenv"
)

// Config is the process configuration. Every field is read from the environment after
// any .env files have been loaded.
type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL"` // empty selects the in-memory user store

	GeminiAPIKey     string `env:"GEMINI_API_KEY"`
	IntakeUseBrowser bool   `env:"INTAKE_USE_BROWSER" envDefault:"false"`
	// IntakeModelTier is the llm tier keyword extraction runs on; GeminiModel overrides its model.
	IntakeModelTier string `env:"INTAKE_MODEL_TIER" envDefault:"lite"`
	GeminiModel     string `env:"GEMINI_MODEL"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`

	// LoginTimeout bounds how long a login waits for the session to settle.
	LoginTimeout  time.Duration `env:"LOGIN_TIMEOUT" envDefault:"10s"`
	LogoutTimeout time.Duration `env:"LOGOUT_TIMEOUT" envDefault:"10s"`

	JWT      JWTConfig
	Password PasswordConfig
}

// DefaultEnvFiles are the dotenv files Load reads when none are given.
var DefaultEnvFiles = []string{".env", ".env.local"}

// LoadEnv loads the dotenv files that exist and returns how many were loaded.
// Variables already set in the environment win.
func LoadEnv(files []string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return 0, fmt.Errorf("failed to load env files: %w", err)
	}
	return len(existing), nil
}

// Load reads dotenv files (DefaultEnvFiles when none are given) and parses the environment.
func Load(files ...string) (*Config, error) {
	return load(files, false)
}

// LoadLocal is Load for the single-process terminal workspace. Tokens never leave the process
// there, so a missing JWT_SECRET is replaced by a random one.
func LoadLocal(files ...string) (*Config, error) {
	return load(files, true)
}

func load(files []string, local bool) (*Config, error) {
	if len(files) == 0 {
		files = DefaultEnvFiles
	}
	if _, err := LoadEnv(files); err != nil {
		return nil, err
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if local && cfg.JWT.Secret == "" {
		cfg.JWT.Secret = uuid.NewString()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration, including the JWT and password sub-configs.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: PORT out of range: %d", c.Port)
	}

	switch strings.ToLower(c.LogLevel) {
	case "error", "warn", "info", "debug":
	default:
		return fmt.Errorf("config error: LOG_LEVEL must be one of error, warn, info, debug, got %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("config error: LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}

	if _, err := llm.ParseTier(c.IntakeModelTier); err != nil {
		return fmt.Errorf("config error: INTAKE_MODEL_TIER: %w", err)
	}

	if c.LoginTimeout <= 0 {
		return fmt.Errorf("config error: LOGIN_TIMEOUT must be positive")
	}
	if c.LogoutTimeout <= 0 {
		return fmt.Errorf("config error: LOGOUT_TIMEOUT must be positive")
	}

	if err := c.JWT.normalize(); err != nil {
		return err
	}
	return c.Password.normalize()
}

// UseDatabase reports whether accounts are stored in PostgreSQL.
func (c *Config) UseDatabase() bool {
	return c.DatabaseURL != ""
}
