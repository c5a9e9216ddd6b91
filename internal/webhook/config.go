package webhook

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mattjoyce/sigcheck/internal/config"
)

// FromGlobalConfig converts the loaded configuration to webhook.Config.
// Resolves per-endpoint secrets and parses max body sizes. A missing secret
// is not an error here; the endpoint reports it per request.
func FromGlobalConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("config is nil")
	}
	wc := cfg.Webhooks

	out := Config{
		Listen:    wc.Listen,
		Endpoints: make([]EndpointConfig, len(wc.Endpoints)),
	}
	if cfg.Metrics.Enabled {
		out.MetricsPath = cfg.Metrics.Path
		out.MetricsToken = cfg.Metrics.Token
	}

	for i, ep := range wc.Endpoints {
		maxBodySize, err := parseMaxBodySize(ep.MaxBodySize)
		if err != nil {
			return Config{}, fmt.Errorf("webhook endpoint %q: invalid max_body_size %q: %w", ep.Path, ep.MaxBodySize, err)
		}

		out.Endpoints[i] = EndpointConfig{
			Path:        ep.Path,
			Secret:      wc.SecretFor(ep),
			MaxBodySize: maxBodySize,
		}
	}

	return out, nil
}

// parseMaxBodySize parses size strings like "1MB", "512KB", "1048576" to bytes.
// Returns DefaultMaxBodySize if empty.
func parseMaxBodySize(size string) (int64, error) {
	if size == "" {
		return DefaultMaxBodySize, nil
	}

	upper := strings.ToUpper(strings.TrimSpace(size))
	multiplier := int64(1)
	for _, unit := range []struct {
		suffix string
		mult   int64
	}{
		{"KB", 1024},
		{"MB", 1024 * 1024},
		{"GB", 1024 * 1024 * 1024},
	} {
		if strings.HasSuffix(upper, unit.suffix) {
			multiplier = unit.mult
			upper = strings.TrimSuffix(upper, unit.suffix)
			break
		}
	}

	value, err := strconv.ParseInt(strings.TrimSpace(upper), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value: %w", err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("size must be positive")
	}

	result := value * multiplier
	if result/multiplier != value {
		return 0, fmt.Errorf("size too large")
	}
	return result, nil
}
