package replication

import (
	"strings"
	"time"

	"github.com/temirov/obsenv/internal/environment"
	"github.com/temirov/obsenv/internal/events"
)

const (
	configurationKeySeparatorConstant = "."
)

// Configuration describes the sidecar section of the configuration file.
// An empty MetricsAddress disables the metrics server.
type Configuration struct {
	MetricsAddress string        `mapstructure:"metrics_address" yaml:"metrics_address"`
	RetryInterval  time.Duration `mapstructure:"retry_interval" yaml:"retry_interval"`
}

// DefaultConfiguration returns the sidecar defaults.
func DefaultConfiguration() Configuration {
	return Configuration{RetryInterval: defaultRetryIntervalConstant}
}

// DefaultConfigurationValues produces Viper defaults for the sidecar section rooted at rootKey.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultConfiguration()
	prefix := rootKey + configurationKeySeparatorConstant
	return map[string]any{
		prefix + "metrics_address": defaults.MetricsAddress,
		prefix + "retry_interval":  defaults.RetryInterval,
	}
}

// Sanitize trims values and falls back to defaults for unusable settings.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := Configuration{
		MetricsAddress: strings.TrimSpace(configuration.MetricsAddress),
		RetryInterval:  configuration.RetryInterval,
	}
	if sanitized.RetryInterval <= 0 {
		sanitized.RetryInterval = defaultRetryIntervalConstant
	}
	return sanitized
}

// CommandConfiguration groups the sections the sidecar command reads.
type CommandConfiguration struct {
	Environment environment.Configuration
	Stream      events.Configuration
	Sidecar     Configuration
}
