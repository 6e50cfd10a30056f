package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CLASSIFIER_BASE_URL", "http://localhost:8000")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.RequestTimeout() != 30*time.Second {
		t.Errorf("RequestTimeout() = %v, want 30s", cfg.RequestTimeout())
	}
	if cfg.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want 2", cfg.MaxRetries)
	}
	if cfg.RetryDelay() != time.Second {
		t.Errorf("RetryDelay() = %v, want 1s", cfg.RetryDelay())
	}
	if cfg.ItemDelay() != 100*time.Millisecond {
		t.Errorf("ItemDelay() = %v, want 100ms", cfg.ItemDelay())
	}
	if cfg.HealthTimeout() != 5*time.Second {
		t.Errorf("HealthTimeout() = %v, want 5s", cfg.HealthTimeout())
	}
	if cfg.ConfirmThreshold != 50 || cfg.MaxBatchSize != 100 {
		t.Errorf("ConfirmThreshold/MaxBatchSize = %d/%d, want 50/100", cfg.ConfirmThreshold, cfg.MaxBatchSize)
	}
	if cfg.RateLimitPerSec != 10 {
		t.Errorf("RateLimitPerSec = %d, want 10", cfg.RateLimitPerSec)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info", cfg.LogLevel)
	}
	if cfg.RedisURL != "" || cfg.DatabaseDSN != "" || cfg.MetricsAddr != "" {
		t.Errorf("optional integrations should be disabled by default: %+v", cfg)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REQUEST_TIMEOUT_MS", "1500")
	t.Setenv("MAX_RETRIES", "0")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("METRICS_ADDR", ":9100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.RequestTimeout() != 1500*time.Millisecond {
		t.Errorf("RequestTimeout() = %v, want 1.5s", cfg.RequestTimeout())
	}
	if cfg.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", cfg.MaxRetries)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" || cfg.MetricsAddr != ":9100" {
		t.Errorf("RedisURL/MetricsAddr = %q/%q", cfg.RedisURL, cfg.MetricsAddr)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("CLASSIFIER_BASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing CLASSIFIER_BASE_URL")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "relative base url", key: "CLASSIFIER_BASE_URL", value: "localhost:8000/api", wantErr: "CLASSIFIER_BASE_URL"},
		{name: "zero timeout", key: "REQUEST_TIMEOUT_MS", value: "0", wantErr: "REQUEST_TIMEOUT_MS"},
		{name: "negative retries", key: "MAX_RETRIES", value: "-1", wantErr: "MAX_RETRIES"},
		{name: "zero batch size", key: "MAX_BATCH_SIZE", value: "0", wantErr: "MAX_BATCH_SIZE"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Load() error = %v, want mention of %s", err, tc.wantErr)
			}
		})
	}
}
