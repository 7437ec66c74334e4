package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Fatalf("Port = %s, want 8080", cfg.Port)
	}
	if cfg.MaxConcurrentJobs != 2 {
		t.Fatalf("MaxConcurrentJobs = %d, want 2", cfg.MaxConcurrentJobs)
	}
	if cfg.MaxQueueSize != 50 {
		t.Fatalf("MaxQueueSize = %d, want 50", cfg.MaxQueueSize)
	}
	if cfg.RetryDelay != 5*time.Second {
		t.Fatalf("RetryDelay = %s, want 5s", cfg.RetryDelay)
	}
	if cfg.JobTimeout != 30*time.Minute {
		t.Fatalf("JobTimeout = %s, want 30m", cfg.JobTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MAX_CONCURRENT_JOBS", "7")
	t.Setenv("RETRY_DELAY_MS", "250")
	t.Setenv("MAX_QUEUE_SIZE", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxConcurrentJobs != 7 {
		t.Fatalf("MaxConcurrentJobs = %d, want 7", cfg.MaxConcurrentJobs)
	}
	if cfg.RetryDelay != 250*time.Millisecond {
		t.Fatalf("RetryDelay = %s, want 250ms", cfg.RetryDelay)
	}
	if cfg.MaxQueueSize != 3 {
		t.Fatalf("MaxQueueSize = %d, want 3", cfg.MaxQueueSize)
	}
}

func TestLoadRejectsInvalidLimits(t *testing.T) {
	t.Setenv("MAX_CONCURRENT_JOBS", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for MAX_CONCURRENT_JOBS=0")
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("MAX_RETRIES", "not-a-number")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxRetries != 3 {
		t.Fatalf("MaxRetries = %d, want default 3", cfg.MaxRetries)
	}
}

func TestValidateReleaseModeRequiresTools(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("TTS_BRIDGE_PATH", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing TTS_BRIDGE_PATH in release mode")
	}
}
