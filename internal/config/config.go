// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

// EnvBaseURL overrides API.BaseURL when set.
const EnvBaseURL = "HYPERBUDS_API_BASE_URL"

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	API     API     `yaml:"api"`
	Storage Storage `yaml:"storage"`
	ValKey  ValKey  `yaml:"valkey"`
	Retry   Retry   `yaml:"retry"`
	Session Session `yaml:"session"`

	// ExportTelemetry initialises the OpenTelemetry exporters of the base config.
	ExportTelemetry bool `yaml:"exportTelemetry"`
}

type API struct {
	BaseURL     string        `yaml:"baseURL" default:"https://api.hyperbuds.com/api/v1"`
	Timeout     time.Duration `yaml:"timeout" default:"25s"`
	RefreshPath string        `yaml:"refreshPath" default:"/auth/refresh"`
	UserAgent   string        `yaml:"userAgent"`
	// MTLS presents a client certificate to the API, for gateways that require one.
	MTLS *commoncfg.MTLS `yaml:"mtls"`
}

type StorageType string

const (
	StorageBolt   StorageType = "bolt"
	StorageValKey StorageType = "valkey"
	StorageMemory StorageType = "memory"
)

type Storage struct {
	Type StorageType `yaml:"type" default:"bolt"`
	// Path of the bolt database file. Environment variables are expanded.
	Path string `yaml:"path" default:"$HOME/.hyperbuds/device.db"`
}

type ValKey struct {
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
	Prefix   string              `yaml:"prefix" default:"hyperbuds"`
	MTLS     *commoncfg.MTLS     `yaml:"mtls"`
}

type Retry struct {
	MaxRetries int           `yaml:"maxRetries" default:"2"`
	BaseDelay  time.Duration `yaml:"baseDelay" default:"500ms"`
	FixedDelay time.Duration `yaml:"fixedDelay" default:"300ms"`
	MaxJitter  time.Duration `yaml:"maxJitter" default:"250ms"`
	MaxDelay   time.Duration `yaml:"maxDelay" default:"1m"`
}

type Session struct {
	// RefreshWindow refreshes a JWT access token before use when it expires
	// within the window. Zero disables it.
	RefreshWindow  time.Duration `yaml:"refreshWindow" default:"1m"`
	RefreshTimeout time.Duration `yaml:"refreshTimeout" default:"30s"`
}
