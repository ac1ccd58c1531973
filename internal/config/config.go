package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DBSource string
	Port     string
	Env      string

	ProviderBaseURL string
	ProviderAPIKey  string
	ProviderTimeout time.Duration

	RetryMaxAttempts int
	RetryBaseDelay   time.Duration

	CardGatewayBaseURL string
	CardGatewayKeyID   string
	CardGatewaySecret  string
}

func Load() (*Config, error) {
	dbSource := os.Getenv("DB_SOURCE")
	if dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	providerURL := os.Getenv("PROVIDER_BASE_URL")
	if providerURL == "" {
		return nil, fmt.Errorf("PROVIDER_BASE_URL environment variable is required")
	}

	providerKey := os.Getenv("PROVIDER_API_KEY")
	if providerKey == "" {
		return nil, fmt.Errorf("PROVIDER_API_KEY environment variable is required")
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &Config{
		DBSource:           dbSource,
		Port:               port,
		Env:                env,
		ProviderBaseURL:    providerURL,
		ProviderAPIKey:     providerKey,
		ProviderTimeout:    envDuration("PROVIDER_TIMEOUT", 30*time.Second),
		RetryMaxAttempts:   envInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:     envDuration("RETRY_BASE_DELAY", time.Second),
		CardGatewayBaseURL: os.Getenv("CARD_GATEWAY_BASE_URL"),
		CardGatewayKeyID:   os.Getenv("CARD_GATEWAY_KEY_ID"),
		CardGatewaySecret:  os.Getenv("CARD_GATEWAY_SECRET"),
	}, nil
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
