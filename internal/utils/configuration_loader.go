package utils

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configurationKeyDelimiterConstant        = "."
	environmentKeyDelimiterConstant          = "_"
	embeddedMergeErrorTemplateConstant       = "failed to merge embedded configuration: %w"
	configurationReadErrorTemplateConstant   = "failed to read configuration: %w"
	environmentFileErrorTemplateConstant     = "failed to load environment file %s: %w"
	configurationDecodeErrorTemplateConstant = "failed to parse configuration: %w"
)

// ConfigurationLoader resolves a configuration from several layers. Later
// layers win: embedded defaults, then a configuration file found on the
// search paths or named explicitly, then prefixed environment variables. A
// dotenv file named by the configuration itself feeds the environment layer.
type ConfigurationLoader struct {
	name               string
	format             string
	environmentPrefix  string
	searchPaths        []string
	embeddedContent    []byte
	embeddedFormat     string
	environmentFileKey string
}

// LoadedConfiguration reports which files contributed to a load.
type LoadedConfiguration struct {
	ConfigFileUsed      string
	EnvironmentFileUsed string
}

// NewConfigurationLoader creates a loader for configuration files called name
// in the given format. Environment variables are read as PREFIX_SECTION_KEY.
func NewConfigurationLoader(name string, format string, environmentPrefix string, searchPaths []string) *ConfigurationLoader {
	return &ConfigurationLoader{
		name:              name,
		format:            format,
		environmentPrefix: environmentPrefix,
		searchPaths:       append([]string(nil), searchPaths...),
	}
}

// SetEmbeddedConfiguration registers content merged underneath every other layer.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(content []byte, format string) {
	if loader == nil {
		return
	}
	loader.embeddedFormat = strings.TrimSpace(format)
	if len(content) == 0 {
		loader.embeddedContent = nil
		return
	}
	loader.embeddedContent = append([]byte(nil), content...)
}

// SetEnvironmentFileKey names the configuration key holding a dotenv file path.
// Variables already present in the process environment are not overwritten.
func (loader *ConfigurationLoader) SetEnvironmentFileKey(configurationKey string) {
	if loader == nil {
		return
	}
	loader.environmentFileKey = strings.TrimSpace(configurationKey)
}

// LoadConfiguration decodes the layered configuration into target. An empty
// explicitFilePath searches the configured paths; a missing file is not an error
// unless it was named explicitly.
func (loader *ConfigurationLoader) LoadConfiguration(explicitFilePath string, defaultValues map[string]any, target any) (LoadedConfiguration, error) {
	store := viper.New()

	if mergeError := loader.mergeEmbedded(store); mergeError != nil {
		return LoadedConfiguration{}, mergeError
	}
	for key, value := range defaultValues {
		store.SetDefault(key, value)
	}
	loader.bindEnvironment(store)

	if readError := loader.mergeFile(store, explicitFilePath); readError != nil {
		return LoadedConfiguration{}, readError
	}

	environmentFile, environmentFileError := loader.exportEnvironmentFile(store)
	if environmentFileError != nil {
		return LoadedConfiguration{}, environmentFileError
	}

	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if decodeError := store.Unmarshal(target, decodeHook); decodeError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationDecodeErrorTemplateConstant, decodeError)
	}

	return LoadedConfiguration{ConfigFileUsed: store.ConfigFileUsed(), EnvironmentFileUsed: environmentFile}, nil
}

func (loader *ConfigurationLoader) mergeEmbedded(store *viper.Viper) error {
	if len(loader.embeddedContent) == 0 {
		return nil
	}
	format := loader.embeddedFormat
	if len(format) == 0 {
		format = loader.format
	}
	store.SetConfigType(format)
	if mergeError := store.MergeConfig(bytes.NewReader(loader.embeddedContent)); mergeError != nil {
		return fmt.Errorf(embeddedMergeErrorTemplateConstant, mergeError)
	}
	return nil
}

func (loader *ConfigurationLoader) bindEnvironment(store *viper.Viper) {
	store.SetEnvPrefix(loader.environmentPrefix)
	store.SetEnvKeyReplacer(strings.NewReplacer(configurationKeyDelimiterConstant, environmentKeyDelimiterConstant))
	store.AutomaticEnv()
}

func (loader *ConfigurationLoader) mergeFile(store *viper.Viper, explicitFilePath string) error {
	store.SetConfigType(loader.format)
	if len(explicitFilePath) > 0 {
		store.SetConfigFile(explicitFilePath)
	} else {
		store.SetConfigName(loader.name)
		for _, searchPath := range loader.searchPaths {
			store.AddConfigPath(searchPath)
		}
	}

	readError := store.MergeInConfig()
	var notFound viper.ConfigFileNotFoundError
	if readError == nil || errors.As(readError, &notFound) {
		return nil
	}
	return fmt.Errorf(configurationReadErrorTemplateConstant, readError)
}

// exportEnvironmentFile loads the dotenv file into the process environment.
// Viper resolves automatic environment bindings at read time, so the exported
// values take part in the decode that follows.
func (loader *ConfigurationLoader) exportEnvironmentFile(store *viper.Viper) (string, error) {
	if len(loader.environmentFileKey) == 0 {
		return "", nil
	}
	environmentFile := strings.TrimSpace(store.GetString(loader.environmentFileKey))
	if len(environmentFile) == 0 {
		return "", nil
	}

	loadError := godotenv.Load(environmentFile)
	switch {
	case loadError == nil:
		return environmentFile, nil
	case errors.Is(loadError, fs.ErrNotExist):
		return "", nil
	default:
		return "", fmt.Errorf(environmentFileErrorTemplateConstant, environmentFile, loadError)
	}
}
