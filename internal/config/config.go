// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Provider   ProviderConfig
	Summarizer SummarizerConfig
	Store      StoreConfig
	Limits     LimitsConfig
	Engine     EngineConfig
}

type AppConfig struct {
	ListenAddr  string
	MetricsPort int // 0 disables the standalone metrics server
	LogLevel    string
}

// ProviderConfig holds the SEO data provider credentials.
type ProviderConfig struct {
	BaseURL  string
	Login    string
	Password string
	Timeout  time.Duration
}

// SummarizerConfig holds the LLM backend settings. An empty endpoint
// disables deep research summaries.
type SummarizerConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// StoreConfig selects the persistence backend: memory, sqlite, or postgres.
type StoreConfig struct {
	Backend string
	DSN     string
}

type LimitsConfig struct {
	PerMinute int
	PerHour   int
}

type EngineConfig struct {
	SweepInterval time.Duration
	Retention     time.Duration
	MaxConcurrent int
}

// Load reads the environment, preferring an adjacent .env file when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file, using system environment")
	}

	return &Config{
		App: AppConfig{
			ListenAddr:  getEnv("RANKSCOUT_LISTEN_ADDR", ":8080"),
			MetricsPort: getEnvAsInt("RANKSCOUT_METRICS_PORT", 0),
			LogLevel:    getEnv("RANKSCOUT_LOG_LEVEL", "info"),
		},
		Provider: ProviderConfig{
			BaseURL:  getEnv("PROVIDER_BASE_URL", "https://api.dataforseo.com/v3"),
			Login:    getEnv("PROVIDER_LOGIN", ""),
			Password: getEnv("PROVIDER_PASSWORD", ""),
			Timeout:  getEnvAsDuration("PROVIDER_TIMEOUT", 30*time.Second),
		},
		Summarizer: SummarizerConfig{
			Endpoint: getEnv("SUMMARIZER_ENDPOINT", ""),
			APIKey:   getEnv("SUMMARIZER_API_KEY", ""),
			Model:    getEnv("SUMMARIZER_MODEL", "gpt-4o-mini"),
			Timeout:  getEnvAsDuration("SUMMARIZER_TIMEOUT", 60*time.Second),
		},
		Store: StoreConfig{
			Backend: getEnv("STORE_BACKEND", "memory"),
			DSN:     getEnv("STORE_DSN", ""),
		},
		Limits: LimitsConfig{
			PerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 30),
			PerHour:   getEnvAsInt("RATE_LIMIT_PER_HOUR", 1500),
		},
		Engine: EngineConfig{
			SweepInterval: getEnvAsDuration("ENGINE_SWEEP_INTERVAL", 30*time.Second),
			Retention:     getEnvAsDuration("ENGINE_RETENTION", time.Hour),
			MaxConcurrent: getEnvAsInt("ENGINE_MAX_CONCURRENT", 8),
		},
	}
}

// SlogLevel maps the configured log level onto slog's levels.
func (a AppConfig) SlogLevel() slog.Level {
	switch a.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
