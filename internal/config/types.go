package config

// Config represents the complete sigcheck configuration.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	State    StateConfig    `yaml:"state"`
	Webhooks WebhooksConfig `yaml:"webhooks"`
	Metrics  MetricsConfig  `yaml:"metrics,omitempty"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// StateConfig defines state storage settings.
type StateConfig struct {
	Path string `yaml:"path"`
}

// WebhooksConfig defines webhook listener settings.
type WebhooksConfig struct {
	Listen string `yaml:"listen"`

	// Secret is the default signing secret for endpoints that set none.
	// Usually "${CONTENTFUL_SIGNING_SECRET}".
	Secret string `yaml:"secret,omitempty"`

	Endpoints []WebhookEndpoint `yaml:"endpoints"`
}

// WebhookEndpoint defines a single webhook endpoint.
type WebhookEndpoint struct {
	Path        string `yaml:"path"`
	Secret      string `yaml:"secret,omitempty"`
	MaxBodySize string `yaml:"max_body_size,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint on the webhook listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`

	// Token, when set, is required as a bearer token to scrape metrics.
	Token string `yaml:"token,omitempty"`
}

// Environment variables understood by FromEnv and the default config.
const (
	EnvSigningSecret = "CONTENTFUL_SIGNING_SECRET"
	EnvListen        = "SIGCHECK_LISTEN"
	EnvStatePath     = "SIGCHECK_STATE_PATH"
	EnvLogLevel      = "SIGCHECK_LOG_LEVEL"
	EnvConfigPath    = "SIGCHECK_CONFIG"
)

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "sigcheck",
			LogLevel:  "info",
			LogFormat: "json",
		},
		State: StateConfig{
			Path: "./data/sigcheck.db",
		},
		Webhooks: WebhooksConfig{
			Listen: "127.0.0.1:8080",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Path:    "/metrics",
		},
	}
}

// SecretFor returns the signing secret that applies to ep: its own secret if
// set, otherwise the webhooks-level default.
func (w WebhooksConfig) SecretFor(ep WebhookEndpoint) string {
	if ep.Secret != "" {
		return ep.Secret
	}
	return w.Secret
}
