package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses configuration from a file. A directory is accepted if
// it contains config.yaml.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}
	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", absPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML config data, expands ${VAR} references in string
// fields from the environment, then applies defaults and validates.
// Expansion happens after decoding so values are never parsed as YAML.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	interpolateFields(&cfg)
	applyConfigDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// FromEnv builds a config without a file: one endpoint at "/" keyed with
// CONTENTFUL_SIGNING_SECRET.
func FromEnv() (*Config, error) {
	cfg := Defaults()
	if v := os.Getenv(EnvListen); v != "" {
		cfg.Webhooks.Listen = v
	}
	if v := os.Getenv(EnvStatePath); v != "" {
		cfg.State.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Service.LogLevel = strings.ToLower(v)
	}
	cfg.Webhooks.Secret = os.Getenv(EnvSigningSecret)
	cfg.Webhooks.Endpoints = []WebhookEndpoint{{Path: "/"}}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Discover returns the config path to use when none was given on the command
// line: $SIGCHECK_CONFIG, then ./sigcheck.yaml. Empty means "use FromEnv".
func Discover() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	if _, err := os.Stat("sigcheck.yaml"); err == nil {
		return "sigcheck.yaml"
	}
	return ""
}

// Warnings reports non-fatal problems worth surfacing to an operator.
// Endpoints without a secret still start but answer 500.
func Warnings(cfg *Config) []string {
	var out []string
	for _, ep := range cfg.Webhooks.Endpoints {
		if cfg.Webhooks.SecretFor(ep) == "" {
			out = append(out, fmt.Sprintf("webhooks endpoint %q has no signing secret (set %s); requests will fail with 500", ep.Path, EnvSigningSecret))
		}
	}
	return out
}

func applyConfigDefaults(cfg *Config) {
	defaults := Defaults()

	if cfg.Service.Name == "" {
		cfg.Service.Name = defaults.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = defaults.Service.LogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = defaults.Service.LogFormat
	}
	if cfg.State.Path == "" {
		cfg.State.Path = defaults.State.Path
	}
	if cfg.Webhooks.Listen == "" {
		cfg.Webhooks.Listen = defaults.Webhooks.Listen
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = defaults.Metrics.Path
	}
}

// interpolateEnv replaces ${VAR} with environment variable values. Unknown
// variables are left in place and resolved reports false.
func interpolateEnv(input string) (out string, resolved bool) {
	resolved = true
	out = envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		resolved = false
		return match
	})
	return out, resolved
}

// interpolateFields expands ${VAR} in every string field. Unresolved
// placeholders stay in place for validate to reject, except in secrets,
// which are cleared so a placeholder is never used as key material.
// Warnings reports them.
func interpolateFields(cfg *Config) {
	for _, field := range []*string{
		&cfg.Service.Name,
		&cfg.Service.LogLevel,
		&cfg.Service.LogFormat,
		&cfg.State.Path,
		&cfg.Webhooks.Listen,
		&cfg.Metrics.Path,
		&cfg.Metrics.Token,
	} {
		*field, _ = interpolateEnv(*field)
	}

	cfg.Webhooks.Secret = interpolateSecret(cfg.Webhooks.Secret)
	for i := range cfg.Webhooks.Endpoints {
		ep := &cfg.Webhooks.Endpoints[i]
		ep.Path, _ = interpolateEnv(ep.Path)
		ep.MaxBodySize, _ = interpolateEnv(ep.MaxBodySize)
		ep.Secret = interpolateSecret(ep.Secret)
	}
}

func interpolateSecret(value string) string {
	out, resolved := interpolateEnv(value)
	if !resolved {
		return ""
	}
	return out
}

func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}
	if cfg.Service.LogFormat != "json" && cfg.Service.LogFormat != "text" {
		return fmt.Errorf("service.log_format must be one of: json, text (got %q)", cfg.Service.LogFormat)
	}

	if cfg.State.Path == "" {
		return fmt.Errorf("state.path is required")
	}
	if cfg.Webhooks.Listen == "" {
		return fmt.Errorf("webhooks.listen is required")
	}

	if len(cfg.Webhooks.Endpoints) == 0 {
		return fmt.Errorf("webhooks.endpoints must be non-empty")
	}
	if err := checkUnresolved("webhooks.listen", cfg.Webhooks.Listen); err != nil {
		return err
	}
	if err := checkUnresolved("state.path", cfg.State.Path); err != nil {
		return err
	}

	seen := make(map[string]bool, len(cfg.Webhooks.Endpoints))
	for i, ep := range cfg.Webhooks.Endpoints {
		if ep.Path == "" || !strings.HasPrefix(ep.Path, "/") {
			return fmt.Errorf("webhooks.endpoints[%d].path must start with / (got %q)", i, ep.Path)
		}
		if seen[ep.Path] {
			return fmt.Errorf("webhooks.endpoints[%d].path %q is duplicated", i, ep.Path)
		}
		seen[ep.Path] = true
	}

	if cfg.Metrics.Enabled {
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			return fmt.Errorf("metrics.path must start with / (got %q)", cfg.Metrics.Path)
		}
		if seen[cfg.Metrics.Path] {
			return fmt.Errorf("metrics.path %q collides with a webhook endpoint", cfg.Metrics.Path)
		}
		if err := checkUnresolved("metrics.token", cfg.Metrics.Token); err != nil {
			return err
		}
	}

	return nil
}

// checkUnresolved rejects values that still contain ${VAR}; the variable
// name is reported but never the rest of the value.
func checkUnresolved(field, value string) error {
	if m := envVarPattern.FindStringSubmatch(value); len(m) > 1 {
		return fmt.Errorf("%s: environment variable ${%s} is not set", field, m[1])
	}
	return nil
}
