// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration, for both the chat client and
// the demo server binary.
type Config struct {
	// Port the demo server listens on.
	Port string
	// AllowedOrigin restricts websocket upgrades in production; "*" allows
	// any origin.
	AllowedOrigin string

	// ServerURL is the websocket endpoint the client dials.
	ServerURL string
	// DBPath locates the client's local draft database.
	DBPath string
	// PlaceholderTimeout bounds how long the "thinking" placeholder may
	// wait for a response. Zero disables the timeout, matching the original
	// client's behavior.
	PlaceholderTimeout time.Duration

	Reconnect ReconnectConfig
}

// ReconnectConfig controls the channel's redial behavior.
type ReconnectConfig struct {
	Attempts int
	Delay    time.Duration
	DelayMax time.Duration
	// DialTimeout bounds each individual dial attempt.
	DialTimeout time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		AllowedOrigin:      getEnv("ALLOWED_ORIGIN", "*"),
		ServerURL:          getEnv("SERVER_URL", "ws://localhost:8080/ws"),
		DBPath:             getEnv("DB_PATH", "./data/supportchat.db"),
		PlaceholderTimeout: getEnvDuration("PLACEHOLDER_TIMEOUT", 0),
		Reconnect: ReconnectConfig{
			Attempts:    getEnvInt("RECONNECT_ATTEMPTS", 10),
			Delay:       getEnvDuration("RECONNECT_DELAY", 500*time.Millisecond),
			DelayMax:    getEnvDuration("RECONNECT_DELAY_MAX", 2*time.Second),
			DialTimeout: getEnvDuration("DIAL_TIMEOUT", 20*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.ServerURL == "" {
		return fmt.Errorf("SERVER_URL cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Reconnect.Attempts <= 0 {
		return fmt.Errorf("RECONNECT_ATTEMPTS must be > 0")
	}
	if c.Reconnect.Delay <= 0 || c.Reconnect.DelayMax < c.Reconnect.Delay {
		return fmt.Errorf("RECONNECT_DELAY must be > 0 and <= RECONNECT_DELAY_MAX")
	}
	if c.PlaceholderTimeout < 0 {
		return fmt.Errorf("PLACEHOLDER_TIMEOUT cannot be negative")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env == "development"
	}
	return c.AllowedOrigin == "*" ||
		strings.Contains(c.AllowedOrigin, "localhost") ||
		strings.Contains(c.AllowedOrigin, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
