package config

import (
	"fmt"
	"net/url"
	"slices"
)

var validLogLevels = []string{"trace", "debug", "info", "warn", "error", "fatal", "disabled"}

// Validate checks cfg and returns a *ConfigError for the first invalid field.
func Validate(cfg *Config) error {
	if err := validateClient(&cfg.Client); err != nil {
		return fmt.Errorf("client config: %w", err)
	}

	if err := validateLog(&cfg.Log); err != nil {
		return fmt.Errorf("log config: %w", err)
	}

	if err := cfg.Observability.Validate(); err != nil {
		return fmt.Errorf("observability config: %w", err)
	}

	return nil
}

func validateClient(cfg *ClientConfig) error {
	if cfg.AccessToken == "" {
		return NewMissingFieldError("client.accesstoken")
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return NewInvalidFieldError("client.baseurl", fmt.Sprintf("invalid url %q", cfg.BaseURL), []string{"http", "https"})
	}

	if cfg.Timeout <= 0 {
		return NewInvalidFieldError("client.timeout", "must be positive", nil)
	}

	if cfg.ConnectTimeout <= 0 {
		return NewInvalidFieldError("client.connecttimeout", "must be positive", nil)
	}

	if cfg.MaxRetries < 0 {
		return NewInvalidFieldError("client.maxretries", "must not be negative", nil)
	}

	if cfg.Rate.Limit < 0 {
		return NewInvalidFieldError("client.rate.limit", "must not be negative", nil)
	}
	if cfg.Rate.Limit > 0 && cfg.Rate.Burst < 1 {
		return NewInvalidFieldError("client.rate.burst", "must be at least 1 when a rate limit is set", nil)
	}

	if cfg.Payload.MaxBytes < 0 {
		return NewInvalidFieldError("client.payload.maxbytes", "must not be negative", nil)
	}

	return nil
}

func validateLog(cfg *LogConfig) error {
	if !slices.Contains(validLogLevels, cfg.Level) {
		return NewInvalidFieldError("log.level", fmt.Sprintf("invalid level %q", cfg.Level), validLogLevels)
	}
	return nil
}
