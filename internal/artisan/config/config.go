// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ListenAddr   string
	DBPath       string
	APIBaseURL   string
	APIRateLimit time.Duration
	SyncMaxPages int
	LookbackDays int
	LogLevel     string
}

// Load reads configuration from a .env file (if present) and environment
// variables, applying defaults for anything unset.
func Load() (*Config, error) {
	// Load .env if it exists; real environment variables are fine too.
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		DBPath:     getEnv("DB_PATH", "data/artisan_toolbox.db"),
		APIBaseURL: getEnv("API_BASE_URL", "https://api.ashescodex.com"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
	}

	rateMs, err := getEnvInt("API_RATE_LIMIT_MS", 1500)
	if err != nil {
		return nil, err
	}
	cfg.APIRateLimit = time.Duration(rateMs) * time.Millisecond

	cfg.SyncMaxPages, err = getEnvInt("SYNC_MAX_PAGES", 200)
	if err != nil {
		return nil, err
	}

	cfg.LookbackDays, err = getEnvInt("PRICE_LOOKBACK_DAYS", 7)
	if err != nil {
		return nil, err
	}
	if cfg.LookbackDays < 1 {
		return nil, fmt.Errorf("PRICE_LOOKBACK_DAYS must be at least 1, got %d", cfg.LookbackDays)
	}

	return cfg, nil
}

// SlogLevel converts the configured log level to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return n, nil
}
