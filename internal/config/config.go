// Package config loads process configuration from a .env file, environment
// variables, and defaults, in that order of increasing precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds everything the daemon needs at startup.
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Market  MarketConfig  `mapstructure:"market"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type StoreConfig struct {
	Backend       string `mapstructure:"backend"` // "memory" or "redis"
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

type MarketConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	Heartbeat    time.Duration `mapstructure:"heartbeat"`
	LeaseTTL     time.Duration `mapstructure:"lease_ttl"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the scrape endpoint
}

// Load reads configuration. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)

	v.SetDefault("market.tick_interval", 5*time.Second)
	v.SetDefault("market.heartbeat", 3*time.Second)
	v.SetDefault("market.lease_ttl", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "logs/exchanged.log")

	v.SetDefault("metrics.addr", ":9090")

	v.SetEnvPrefix("exchange")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	switch cfg.Store.Backend {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if cfg.Market.TickInterval <= 0 {
		return nil, fmt.Errorf("tick interval must be positive, got %v", cfg.Market.TickInterval)
	}
	if cfg.Market.LeaseTTL <= cfg.Market.Heartbeat {
		return nil, fmt.Errorf("lease ttl %v must exceed heartbeat %v", cfg.Market.LeaseTTL, cfg.Market.Heartbeat)
	}
	return &cfg, nil
}
