// Package config handles loading application configuration from environment variables.
// All settings have sensible defaults for local development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application settings loaded from environment variables.
type Config struct {
	Port               string
	DatabasePath       string
	JWTSecret          string
	TokenDuration      time.Duration
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	TrustedProxies     []string

	// Session lifecycle thresholds. A session expires after SessionExpiry of
	// inactivity; the client-visible warning window opens SessionWarning
	// before that.
	SessionExpiry        time.Duration
	SessionWarning       time.Duration
	SessionSweepInterval time.Duration

	// PublishFetchTimeout bounds the canonical re-read a change notification
	// performs before fan-out.
	PublishFetchTimeout time.Duration
}

// Load reads configuration from environment variables, using defaults where not set.
func Load() *Config {
	return &Config{
		Port:                 getEnv("PORT", "8080"),
		DatabasePath:         getEnv("DATABASE_PATH", "./elira.db"),
		JWTSecret:            getEnv("JWT_SECRET", "change-me-in-production"), // #nosec G101 -- intentional dev default
		TokenDuration:        getDurationEnv("TOKEN_DURATION", 12*time.Hour),
		RateLimitPerMinute:   getIntEnv("RATE_LIMIT_PER_MINUTE", 10),
		CORSAllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		TrustedProxies:       getStringSliceEnv("TRUSTED_PROXIES"),
		SessionExpiry:        getDurationEnv("SESSION_EXPIRY", 30*time.Minute),
		SessionWarning:       getDurationEnv("SESSION_WARNING", 5*time.Minute),
		SessionSweepInterval: getDurationEnv("SESSION_SWEEP_INTERVAL", time.Minute),
		PublishFetchTimeout:  getDurationEnv("PUBLISH_FETCH_TIMEOUT", 3*time.Second),
	}
}

func getStringSliceEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var result []string
	for _, s := range strings.Split(value, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	return result
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
