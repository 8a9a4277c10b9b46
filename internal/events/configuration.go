package events

import (
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultStreamAddressConstant      = "localhost:6379"
	defaultStreamNameConstant         = "lsst.obsenv.action"
	defaultStreamGroupConstant        = "obsenv-sidecar"
	defaultStreamBlockTimeoutConstant = 5 * time.Second
	configurationKeySeparatorConstant = "."
)

// Configuration describes the stream section of the configuration file.
type Configuration struct {
	Address      string        `mapstructure:"address" yaml:"address"`
	Username     string        `mapstructure:"username" yaml:"username"`
	Password     string        `mapstructure:"password" yaml:"-"`
	Database     int           `mapstructure:"database" yaml:"database"`
	Name         string        `mapstructure:"name" yaml:"name"`
	Group        string        `mapstructure:"group" yaml:"group"`
	Consumer     string        `mapstructure:"consumer" yaml:"consumer"`
	Publish      bool          `mapstructure:"publish" yaml:"publish"`
	BlockTimeout time.Duration `mapstructure:"block_timeout" yaml:"block_timeout"`
}

// DefaultConfiguration returns stream settings for a local Redis server with publishing disabled.
func DefaultConfiguration() Configuration {
	return Configuration{
		Address:      defaultStreamAddressConstant,
		Name:         defaultStreamNameConstant,
		Group:        defaultStreamGroupConstant,
		BlockTimeout: defaultStreamBlockTimeoutConstant,
	}
}

// DefaultConfigurationValues produces Viper defaults for the stream section rooted at rootKey.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultConfiguration()
	prefix := rootKey + configurationKeySeparatorConstant
	return map[string]any{
		prefix + "address":       defaults.Address,
		prefix + "username":      defaults.Username,
		prefix + "password":      defaults.Password,
		prefix + "database":      defaults.Database,
		prefix + "name":          defaults.Name,
		prefix + "group":         defaults.Group,
		prefix + "consumer":      defaults.Consumer,
		prefix + "publish":       defaults.Publish,
		prefix + "block_timeout": defaults.BlockTimeout,
	}
}

// Sanitize trims values and falls back to defaults for blank settings.
func (configuration Configuration) Sanitize() Configuration {
	defaults := DefaultConfiguration()
	sanitized := configuration
	sanitized.Address = strings.TrimSpace(configuration.Address)
	sanitized.Username = strings.TrimSpace(configuration.Username)
	sanitized.Name = strings.TrimSpace(configuration.Name)
	sanitized.Group = strings.TrimSpace(configuration.Group)
	sanitized.Consumer = strings.TrimSpace(configuration.Consumer)
	if len(sanitized.Address) == 0 {
		sanitized.Address = defaults.Address
	}
	if len(sanitized.Name) == 0 {
		sanitized.Name = defaults.Name
	}
	if len(sanitized.Group) == 0 {
		sanitized.Group = defaults.Group
	}
	if sanitized.BlockTimeout <= 0 {
		sanitized.BlockTimeout = defaults.BlockTimeout
	}
	return sanitized
}

// NewRedisClient constructs a go-redis client for the configured server.
func NewRedisClient(configuration Configuration) *redis.Client {
	sanitized := configuration.Sanitize()
	return redis.NewClient(&redis.Options{
		Addr:     sanitized.Address,
		Username: sanitized.Username,
		Password: sanitized.Password,
		DB:       sanitized.Database,
	})
}
