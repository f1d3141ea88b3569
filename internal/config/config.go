package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Port               string
	DatabaseURL        string
	RedisURL           string
	ServiceAccountFile string
	ServiceAccountJSON string
	FCMEndpoint        string
	OAuthTokenURL      string
	MaxConcurrentSends int
	SendTimeout        time.Duration
	RecipientCacheTTL  time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		ServiceAccountFile: getEnv("SERVICE_ACCOUNT_FILE", ""),
		ServiceAccountJSON: getEnv("SERVICE_ACCOUNT_JSON", ""),
		FCMEndpoint:        getEnv("FCM_ENDPOINT", "https://fcm.googleapis.com"),
		OAuthTokenURL:      getEnv("OAUTH_TOKEN_URL", "https://oauth2.googleapis.com/token"),
		MaxConcurrentSends: getEnvInt("MAX_CONCURRENT_SENDS", 8),
		SendTimeout:        getEnvDuration("SEND_TIMEOUT", 10*time.Second),
		RecipientCacheTTL:  getEnvDuration("RECIPIENT_CACHE_TTL", 30*time.Second),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.ServiceAccountFile == "" && cfg.ServiceAccountJSON == "" {
		return nil, fmt.Errorf("SERVICE_ACCOUNT_FILE or SERVICE_ACCOUNT_JSON is required")
	}
	if cfg.MaxConcurrentSends < 1 {
		cfg.MaxConcurrentSends = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}
