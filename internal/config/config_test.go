package config_test

import (
	"testing"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"

	"github.com/hyperbuds/hyperbuds-client/internal/config"
)

func validConfig() config.Config {
	return config.Config{
		API: config.API{
			BaseURL: "https://api.hyperbuds.com/api/v1",
			Timeout: 25 * time.Second,
		},
		Storage: config.Storage{Type: config.StorageBolt, Path: "/tmp/device.db"},
		Retry:   config.Retry{MaxRetries: 2, BaseDelay: 500 * time.Millisecond},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*config.Config)
		assertErr assert.ErrorAssertionFunc
	}{
		{name: "Valid", modify: func(*config.Config) {}, assertErr: assert.NoError},
		{
			name:      "Relative base url",
			modify:    func(c *config.Config) { c.API.BaseURL = "/api/v1" },
			assertErr: assert.Error,
		},
		{
			name:      "Unsupported scheme",
			modify:    func(c *config.Config) { c.API.BaseURL = "ftp://api.hyperbuds.com" },
			assertErr: assert.Error,
		},
		{
			name:      "Zero timeout",
			modify:    func(c *config.Config) { c.API.Timeout = 0 },
			assertErr: assert.Error,
		},
		{
			name:      "Unknown storage",
			modify:    func(c *config.Config) { c.Storage.Type = "sqlite" },
			assertErr: assert.Error,
		},
		{
			name:      "Bolt without path",
			modify:    func(c *config.Config) { c.Storage.Path = "" },
			assertErr: assert.Error,
		},
		{
			name:      "Valkey without host",
			modify:    func(c *config.Config) { c.Storage.Type = config.StorageValKey },
			assertErr: assert.Error,
		},
		{
			name: "Valkey with host",
			modify: func(c *config.Config) {
				c.Storage.Type = config.StorageValKey
				c.ValKey.Host = commoncfg.SourceRef{Source: "embedded", Value: "localhost:6379"}
			},
			assertErr: assert.NoError,
		},
		{
			name:      "Memory",
			modify:    func(c *config.Config) { c.Storage = config.Storage{Type: config.StorageMemory} },
			assertErr: assert.NoError,
		},
		{
			name:      "Negative retries",
			modify:    func(c *config.Config) { c.Retry.MaxRetries = -1 },
			assertErr: assert.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.assertErr(t, err) && err != nil {
				assert.ErrorIs(t, err, config.ErrInvalidConfig)
			}
		})
	}
}

func TestConfig_ApplyEnvironment(t *testing.T) {
	env := map[string]string{config.EnvBaseURL: " https://staging.hyperbuds.com/api/v1 "}

	cfg := validConfig()
	cfg.ApplyEnvironment(func(key string) string { return env[key] })
	assert.Equal(t, "https://staging.hyperbuds.com/api/v1", cfg.API.BaseURL)

	cfg = validConfig()
	cfg.ApplyEnvironment(func(string) string { return "" })
	assert.Equal(t, "https://api.hyperbuds.com/api/v1", cfg.API.BaseURL)
}
