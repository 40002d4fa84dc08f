package api

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the request layer configuration.
type Config struct {
	// BaseURL is the backend root, e.g. "https://api.lumenapp.io/v1".
	BaseURL string `envconfig:"BASE_URL"`

	// UserAgent sent with every request.
	UserAgent string `envconfig:"USER_AGENT" default:"lumen-api-client/0.1.0"`

	// Timeout bounds a single transport attempt.
	Timeout time.Duration `envconfig:"TIMEOUT" default:"30s"`

	// MaxAttempts is the number of retries after the initial attempt.
	// A permanently failing endpoint sees MaxAttempts+1 transport calls.
	MaxAttempts int `envconfig:"MAX_ATTEMPTS" default:"3"`

	// RetryBaseDelay is the backoff delay before the first retry.
	RetryBaseDelay time.Duration `envconfig:"RETRY_BASE_DELAY" default:"1s"`

	// OfflineWait is how long to wait for connectivity to return before
	// failing a request without touching the transport.
	OfflineWait time.Duration `envconfig:"OFFLINE_WAIT" default:"5s"`
}

// DefaultConfig returns a safe default configuration for the given backend.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		UserAgent:      "lumen-api-client/0.1.0",
		Timeout:        30 * time.Second,
		MaxAttempts:    3,
		RetryBaseDelay: 1 * time.Second,
		OfflineWait:    5 * time.Second,
	}
}

// ConfigFromEnv builds a Config from LUMEN_* environment variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("lumen", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env config: %w", err)
	}
	return cfg, nil
}
