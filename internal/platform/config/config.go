// Package config loads application configuration from environment variables.
// All variables use the SENSEI_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Engine   EngineConfig
	Log      LogConfig
	SeedDir  string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL runs
// the service on in-memory stores, which is the local-development default.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis connection settings. An empty URL disables the
// dashboard cache.
type CacheConfig struct {
	URL          string
	DashboardTTL int // seconds
}

// EngineConfig holds tunables for the curriculum selector.
type EngineConfig struct {
	Ranker string // "order-difficulty" or "catalog-order"
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with SENSEI_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("SENSEI_SERVER_PORT", 8080),
			Host: envStr("SENSEI_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("SENSEI_DATABASE_URL", ""),
			MaxConns: envInt("SENSEI_DATABASE_MAX_CONNS", 25),
			MinConns: envInt("SENSEI_DATABASE_MIN_CONNS", 5),
		},
		Cache: CacheConfig{
			URL:          envStr("SENSEI_CACHE_URL", ""),
			DashboardTTL: envInt("SENSEI_CACHE_DASHBOARD_TTL", 60),
		},
		Engine: EngineConfig{
			Ranker: envStr("SENSEI_ENGINE_RANKER", "order-difficulty"),
		},
		Log: LogConfig{
			Level:  envStr("SENSEI_LOG_LEVEL", "info"),
			Format: envStr("SENSEI_LOG_FORMAT", "json"),
		},
		SeedDir: envStr("SENSEI_SEED_DIR", "./seeds"),
	}

	return cfg, nil
}

// Validate checks that configuration values are coherent.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SENSEI_SERVER_PORT must be in (0, 65535], got %d", c.Server.Port)
	}
	if c.Engine.Ranker != "order-difficulty" && c.Engine.Ranker != "catalog-order" {
		return fmt.Errorf("SENSEI_ENGINE_RANKER must be 'order-difficulty' or 'catalog-order', got %q", c.Engine.Ranker)
	}
	if c.Cache.DashboardTTL < 0 {
		return fmt.Errorf("SENSEI_CACHE_DASHBOARD_TTL must not be negative, got %d", c.Cache.DashboardTTL)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
