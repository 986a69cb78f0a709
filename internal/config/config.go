// Package config handles configuration loading from files and environment
// variables, with environment taking precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values for the application.
type Config struct {
	// Database connection string
	DatabaseURL string `mapstructure:"database_url"`

	// HTTP server port for the admin API
	HTTPPort int `mapstructure:"http_port"`

	// How many triggers one tick may evaluate in parallel
	SchedulerConcurrency int `mapstructure:"scheduler_concurrency"`

	// Base interval between scheduler polls
	SchedulerPollInterval time.Duration `mapstructure:"scheduler_poll_interval"`

	// Maximum backoff between polls when nothing is due
	SchedulerMaxBackoff time.Duration `mapstructure:"scheduler_max_backoff"`

	// Maximum triggers claimed per poll
	SchedulerBatchSize int `mapstructure:"scheduler_batch_size"`

	// Default tenant used when flows carry no tenant of their own
	DefaultTenant string `mapstructure:"default_tenant"`

	// Requests per second allowed on the admin API, 0 disables limiting
	APIRateLimit float64 `mapstructure:"api_rate_limit"`

	// Burst size for the admin API rate limiter
	APIRateLimitBurst int `mapstructure:"api_rate_limit_burst"`

	// OTLP endpoint for traces
	OTELEndpoint string `mapstructure:"otel_exporter_otlp_endpoint"`
}

// Load reads configuration from an optional YAML file and the environment.
// Environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("http_port", 6161)
	v.SetDefault("scheduler_concurrency", 4)
	v.SetDefault("scheduler_poll_interval", 1*time.Second)
	v.SetDefault("scheduler_max_backoff", 30*time.Second)
	v.SetDefault("scheduler_batch_size", 50)
	v.SetDefault("default_tenant", "main")
	v.SetDefault("api_rate_limit", float64(0))
	v.SetDefault("api_rate_limit_burst", 10)
	v.SetDefault("otel_exporter_otlp_endpoint", "localhost:4317")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// legacy env names kept for compatibility
	v.BindEnv("database_url", "DATABASE_URL")
	v.BindEnv("http_port", "PORT")
	v.BindEnv("scheduler_concurrency", "SCHEDULER_CONCURRENCY")
	v.BindEnv("scheduler_poll_interval", "SCHEDULER_POLL_INTERVAL")
	v.BindEnv("scheduler_max_backoff", "SCHEDULER_MAX_BACKOFF")
	v.BindEnv("scheduler_batch_size", "SCHEDULER_BATCH_SIZE")
	v.BindEnv("default_tenant", "DEFAULT_TENANT")
	v.BindEnv("api_rate_limit", "API_RATE_LIMIT")
	v.BindEnv("api_rate_limit_burst", "API_RATE_LIMIT_BURST")
	v.BindEnv("otel_exporter_otlp_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database_url is required (env: DATABASE_URL)")
	}
	if cfg.SchedulerConcurrency <= 0 {
		return nil, fmt.Errorf("scheduler_concurrency must be positive")
	}
	if cfg.SchedulerBatchSize <= 0 {
		return nil, fmt.Errorf("scheduler_batch_size must be positive")
	}

	return &cfg, nil
}
