// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr      string        `env:"APP_ADDR" envDefault:":8080"`
	DBDSN     string        `env:"DB_DSN,required"`
	DBTimeout time.Duration `env:"DB_TIMEOUT" envDefault:"3s"`
	JWTSecret string        `env:"JWT_SECRET,required"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`
	LogLevel  string        `env:"LOG_LEVEL" envDefault:"info"`
	// EnableHSTS adds Strict-Transport-Security; only set behind TLS.
	EnableHSTS bool `env:"ENABLE_HSTS" envDefault:"false"`

	Cache      CacheConfig
	Upstream   UpstreamConfig
	Hub        HubConfig
	HTTPLimits HTTPLimitsConfig
}

type CacheConfig struct {
	TTL           time.Duration `env:"CACHE_TTL" envDefault:"10m"`
	MaxEntries    int           `env:"CACHE_MAX_ENTRIES" envDefault:"10000"`
	SweepInterval time.Duration `env:"CACHE_SWEEP_INTERVAL" envDefault:"1m"`
}

type UpstreamConfig struct {
	Timeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"5s"`

	OpenLibraryBaseURL    string `env:"OPENLIBRARY_BASE_URL" envDefault:"https://openlibrary.org"`
	OpenLibraryUserAgent  string `env:"OPENLIBRARY_USER_AGENT" envDefault:"bookstore/1.0"`
	OpenLibraryRPS        int    `env:"OPENLIBRARY_RPS" envDefault:"5"`
	OpenLibraryMaxRetries int    `env:"OPENLIBRARY_MAX_RETRIES" envDefault:"2"`

	ExchangeRateBaseURL    string `env:"EXCHANGE_RATE_BASE_URL,required"`
	ExchangeRateAccessKey  string `env:"EXCHANGE_RATE_ACCESS_KEY"`
	ExchangeRateRPS        int    `env:"EXCHANGE_RATE_RPS" envDefault:"5"`
	ExchangeRateMaxRetries int    `env:"EXCHANGE_RATE_MAX_RETRIES" envDefault:"2"`
}

type HubConfig struct {
	QueueSize      int           `env:"HUB_QUEUE_SIZE" envDefault:"16"`
	WriteTimeout   time.Duration `env:"HUB_WRITE_TIMEOUT" envDefault:"10s"`
	AllowedOrigins []string      `env:"WS_ALLOWED_ORIGINS" envSeparator:","`
}

type HTTPLimitsConfig struct {
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`
}

// Load reads .env and .env.local, which never override variables already
// set, and parses the environment into a Config.
func Load() (Config, error) {
	loadEnvFiles()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Cache.TTL <= 0 {
		return Config{}, fmt.Errorf("parse config: CACHE_TTL must be positive, got %s", cfg.Cache.TTL)
	}
	if cfg.JWTTTL <= 0 {
		return Config{}, fmt.Errorf("parse config: JWT_TTL must be positive, got %s", cfg.JWTTTL)
	}
	return cfg, nil
}

func loadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// SlogLevel maps LOG_LEVEL to a slog level. Unknown values mean info.
func (c Config) SlogLevel() slog.Level {
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
