package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	ClassifierBaseURL string `env:"CLASSIFIER_BASE_URL,required=true"`
	RequestTimeoutMs  int    `env:"REQUEST_TIMEOUT_MS,default=30000"`
	MaxRetries        int    `env:"MAX_RETRIES,default=2"`
	RetryDelayMs      int    `env:"RETRY_DELAY_MS,default=1000"`
	ItemDelayMs       int    `env:"ITEM_DELAY_MS,default=100"`
	HealthTimeoutMs   int    `env:"HEALTH_TIMEOUT_MS,default=5000"`
	ConfirmThreshold  int    `env:"CONFIRM_THRESHOLD,default=50"`
	MaxBatchSize      int    `env:"MAX_BATCH_SIZE,default=100"`
	RateLimitPerSec   int    `env:"RATE_LIMIT_PER_SEC,default=10"`
	RedisURL          string `env:"REDIS_URL"`
	DatabaseDSN       string `env:"DATABASE_DSN"`
	MetricsAddr       string `env:"METRICS_ADDR"`
	LogLevel          string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	parsed, err := url.Parse(strings.TrimSpace(c.ClassifierBaseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("CLASSIFIER_BASE_URL must be an absolute url, got %q", c.ClassifierBaseURL)
	}

	positive := map[string]int{
		"REQUEST_TIMEOUT_MS": c.RequestTimeoutMs,
		"HEALTH_TIMEOUT_MS":  c.HealthTimeoutMs,
		"CONFIRM_THRESHOLD":  c.ConfirmThreshold,
		"MAX_BATCH_SIZE":     c.MaxBatchSize,
		"RATE_LIMIT_PER_SEC": c.RateLimitPerSec,
	}
	for name, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, value)
		}
	}

	nonNegative := map[string]int{
		"MAX_RETRIES":    c.MaxRetries,
		"RETRY_DELAY_MS": c.RetryDelayMs,
		"ITEM_DELAY_MS":  c.ItemDelayMs,
	}
	for name, value := range nonNegative {
		if value < 0 {
			return fmt.Errorf("%s must not be negative, got %d", name, value)
		}
	}

	return nil
}

func (c *Config) RequestTimeout() time.Duration { return millis(c.RequestTimeoutMs) }

func (c *Config) RetryDelay() time.Duration { return millis(c.RetryDelayMs) }

func (c *Config) ItemDelay() time.Duration { return millis(c.ItemDelayMs) }

func (c *Config) HealthTimeout() time.Duration { return millis(c.HealthTimeoutMs) }

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
