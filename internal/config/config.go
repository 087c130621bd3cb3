package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	apperrors "github.com/jrsteele09/go-openid-client/internal/errors"
)

type Config interface {
	EnvConfig
	StoreConfig
	FlowConfig
	TelemetryConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
	GetLogLevel() string
}

type StoreConfig interface {
	GetStoreBackend() StoreBackend
	GetRedisAddr() string
	GetRedisPrefix() string
	GetSQLitePath() string
}

type FlowConfig interface {
	GetFlowTTL() time.Duration
	GetPathPrefix() string
	GetScope() []string
}

type TelemetryConfig interface {
	GetOtelEndpoint() string
}

type mainConfig struct {
	EnvVars
	Store
	Flow
	Telemetry
}

var _ Config = mainConfig{}

// New reads the configuration from the process environment.
func New() (Config, error) {
	return FromEnvironment(env.ToMap(os.Environ()))
}

// FromEnvironment reads the configuration from environ.
func FromEnvironment(environ map[string]string) (Config, error) {
	var c mainConfig
	if err := env.ParseWithOptions(&c, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("%w: parse env: %v", apperrors.ErrConfiguration, err)
	}
	if err := c.Store.validate(); err != nil {
		return nil, err
	}
	if c.Flow.FlowTTL <= 0 {
		return nil, fmt.Errorf("%w: FLOW_TTL must be positive", apperrors.ErrConfiguration)
	}
	return c, nil
}
