package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// ApplyEnvironment applies the environment overrides read through getenv.
func (c *Config) ApplyEnvironment(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvBaseURL)); v != "" {
		c.API.BaseURL = v
	}
}

// Validate reports every invalid setting, joined into one error.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.API.BaseURL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("api.baseURL: %w", err))
	case u.Scheme != "http" && u.Scheme != "https", u.Host == "":
		errs = append(errs, fmt.Errorf("api.baseURL: %q is not an absolute http(s) url", c.API.BaseURL))
	}

	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api.timeout must be positive"))
	}

	switch c.Storage.Type {
	case StorageBolt:
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required for bolt storage"))
		}
	case StorageValKey:
		if c.ValKey.Host.Source == "" {
			errs = append(errs, errors.New("valkey.host is required for valkey storage"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("storage.type: unknown type %q", c.Storage.Type))
	}

	if c.Retry.MaxRetries < 0 || c.Retry.BaseDelay < 0 || c.Retry.FixedDelay < 0 || c.Retry.MaxJitter < 0 || c.Retry.MaxDelay < 0 {
		errs = append(errs, errors.New("retry settings must not be negative"))
	}

	if c.Session.RefreshWindow < 0 {
		errs = append(errs, errors.New("session.refreshWindow must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}

	return nil
}
