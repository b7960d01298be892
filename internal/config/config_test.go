package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.SessionExpiry != 30*time.Minute {
		t.Errorf("SessionExpiry = %v, want 30m", cfg.SessionExpiry)
	}
	if cfg.SessionWarning != 5*time.Minute {
		t.Errorf("SessionWarning = %v, want 5m", cfg.SessionWarning)
	}
	if cfg.SessionSweepInterval != time.Minute {
		t.Errorf("SessionSweepInterval = %v, want 1m", cfg.SessionSweepInterval)
	}
	if cfg.PublishFetchTimeout != 3*time.Second {
		t.Errorf("PublishFetchTimeout = %v, want 3s", cfg.PublishFetchTimeout)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_EXPIRY", "45m")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "25")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.1")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want %q", cfg.Port, "9090")
	}
	if cfg.SessionExpiry != 45*time.Minute {
		t.Errorf("SessionExpiry = %v, want 45m", cfg.SessionExpiry)
	}
	if cfg.RateLimitPerMinute != 25 {
		t.Errorf("RateLimitPerMinute = %d, want 25", cfg.RateLimitPerMinute)
	}
	if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[0] != "10.0.0.0/8" {
		t.Errorf("TrustedProxies = %v, want two entries", cfg.TrustedProxies)
	}
}

func TestInvalidEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("SESSION_EXPIRY", "not-a-duration")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "abc")

	cfg := Load()

	if cfg.SessionExpiry != 30*time.Minute {
		t.Errorf("SessionExpiry = %v, want default 30m", cfg.SessionExpiry)
	}
	if cfg.RateLimitPerMinute != 10 {
		t.Errorf("RateLimitPerMinute = %d, want default 10", cfg.RateLimitPerMinute)
	}
}
