package config

import (
	"strings"
	"time"
)

type EnvVars struct {
	Port     string `env:"PORT" envDefault:"8080"`
	AppName  string `env:"APP_NAME" envDefault:"Go OpenID Client"`
	Env      string `env:"ENV" envDefault:"DEV"`
	BaseURL  string `env:"BASE_URL"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

var _ EnvConfig = EnvVars{}

// GetPort returns the listen address, e.g. ":8080".
func (e EnvVars) GetPort() string {
	if strings.HasPrefix(e.Port, ":") {
		return e.Port
	}
	return ":" + e.Port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	return e.Env
}

// GetBaseURL returns the public origin of the app (e.g. "https://app.example").
// Empty means the origin of each request is used.
func (e EnvVars) GetBaseURL() string {
	return e.BaseURL
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

type Flow struct {
	FlowTTL    time.Duration `env:"FLOW_TTL" envDefault:"10m"`
	PathPrefix string        `env:"OPENID_PATH_PREFIX" envDefault:"/openid"`

	// Scope is requested from every provider in addition to openid.
	Scope []string `env:"OPENID_SCOPE" envSeparator:" "`
}

var _ FlowConfig = Flow{}

func (f Flow) GetFlowTTL() time.Duration {
	return f.FlowTTL
}

func (f Flow) GetPathPrefix() string {
	return f.PathPrefix
}

func (f Flow) GetScope() []string {
	return f.Scope
}

type Telemetry struct {
	// OtelEndpoint is an OTLP/HTTP collector URL. Empty disables tracing.
	OtelEndpoint string `env:"OTEL_ENDPOINT"`
}

var _ TelemetryConfig = Telemetry{}

func (t Telemetry) GetOtelEndpoint() string {
	return t.OtelEndpoint
}
