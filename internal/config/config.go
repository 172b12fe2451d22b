// Package config centralizes environment-driven configuration with
// documented defaults, so every command wires the pipeline the same way.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings for the pipeline and its surfaces.
type Config struct {
	// BaseURL is the EIDOS species API root (EIDOS_BASE_URL).
	BaseURL string

	// RatePerSecond caps outbound registry calls (EIDOS_RATE, default 4).
	RatePerSecond float64

	// RequestTimeout bounds each registry call (EIDOS_TIMEOUT, default 30s).
	RequestTimeout time.Duration

	// Workers is the resolution pool size (EIDOS_WORKERS, default 4).
	Workers int

	// FuzzyThreshold is the 0-100 similarity cutoff
	// (EIDOS_FUZZY_THRESHOLD, default 85).
	FuzzyThreshold int

	// ChecklistTTL is how long the cached checklist stays valid
	// (EIDOS_CHECKLIST_TTL, default 24h).
	ChecklistTTL time.Duration

	// DatabaseURL enables the Postgres checklist warm copy when set
	// (DATABASE_URL, optional).
	DatabaseURL string

	// Port is the serve command's listen port (PORT, default 8080).
	Port string
}

// Load reads configuration from the environment, loading a .env file first
// when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		BaseURL:        envString("EIDOS_BASE_URL", ""),
		DatabaseURL:    envString("DATABASE_URL", ""),
		Port:           envString("PORT", "8080"),
		Workers:        4,
		FuzzyThreshold: 85,
		RatePerSecond:  4,
		RequestTimeout: 30 * time.Second,
		ChecklistTTL:   24 * time.Hour,
	}

	var err error
	if cfg.Workers, err = envInt("EIDOS_WORKERS", cfg.Workers); err != nil {
		return nil, err
	}
	if cfg.FuzzyThreshold, err = envInt("EIDOS_FUZZY_THRESHOLD", cfg.FuzzyThreshold); err != nil {
		return nil, err
	}
	if cfg.RatePerSecond, err = envFloat("EIDOS_RATE", cfg.RatePerSecond); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = envDuration("EIDOS_TIMEOUT", cfg.RequestTimeout); err != nil {
		return nil, err
	}
	if cfg.ChecklistTTL, err = envDuration("EIDOS_CHECKLIST_TTL", cfg.ChecklistTTL); err != nil {
		return nil, err
	}

	if cfg.Workers < 1 {
		return nil, fmt.Errorf("config validation: EIDOS_WORKERS must be at least 1")
	}
	if cfg.FuzzyThreshold < 1 || cfg.FuzzyThreshold > 100 {
		return nil, fmt.Errorf("config validation: EIDOS_FUZZY_THRESHOLD must be 1-100")
	}

	return cfg, nil
}

// RateInterval converts the requests-per-second cap to the minimum interval
// between calls. Zero or negative rates disable throttling.
func (c *Config) RateInterval() time.Duration {
	if c.RatePerSecond <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / c.RatePerSecond)
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config load: %s must be an integer: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config load: %s must be a number: %w", key, err)
	}
	return f, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config load: %s must be a duration: %w", key, err)
	}
	return d, nil
}
