package cli

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/obsenv/cmd/cli/fleet"
	"github.com/temirov/obsenv/internal/environment"
	"github.com/temirov/obsenv/internal/events"
	"github.com/temirov/obsenv/internal/replication"
	"github.com/temirov/obsenv/internal/utils"
)

const (
	applicationNameConstant                 = "obsenv"
	applicationShortDescriptionConstant     = "Manage and mirror observing environments"
	applicationLongDescriptionConstant      = "obsenv keeps a fleet of git repositories at the versions published by a baseline definitions repository, records every change on a stream, and mirrors those changes on other hosts through the sidecar."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level (debug, info, warn, error)."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	environmentPathFlagNameConstant         = "env-path"
	environmentPathFlagUsageConstant        = "Override the configured environment path."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	commonEnvironmentFileConfigKeyConstant  = commonConfigurationKeyConstant + ".env_file"
	environmentConfigurationKeyConstant     = "environment"
	streamConfigurationKeyConstant          = "stream"
	sidecarConfigurationKeyConstant         = "sidecar"
	environmentPrefixConstant               = "OBSENV"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	environmentFileFieldConstant            = "env_file"
	environmentPathFieldConstant            = "environment_path"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	commandBuildErrorTemplateConstant       = "unable to build %T command: %w"
	defaultConfigurationSearchPathConstant  = "."
	userConfigurationSearchPathConstant     = "$HOME/.obsenv"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common      ApplicationCommonConfiguration `mapstructure:"common" yaml:"common"`
	Environment environment.Configuration      `mapstructure:"environment" yaml:"environment"`
	Stream      events.Configuration           `mapstructure:"stream" yaml:"stream"`
	Sidecar     replication.Configuration      `mapstructure:"sidecar" yaml:"sidecar"`
}

// ApplicationCommonConfiguration stores settings shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel        string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat       string `mapstructure:"log_format" yaml:"log_format"`
	EnvironmentFile string `mapstructure:"env_file" yaml:"env_file"`
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	environmentPathValue   string
	commandContextAccessor utils.CommandContextAccessor
}

type commandBuilder interface {
	Build() (*cobra.Command, error)
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() (*Application, error) {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPathConstant, userConfigurationSearchPathConstant},
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())
	configurationLoader.SetEnvironmentFileKey(commonEnvironmentFileConfigKeyConstant)

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.environmentPathValue, environmentPathFlagNameConstant, "", environmentPathFlagUsageConstant)

	for _, builder := range application.commandBuilders() {
		command, buildError := builder.Build()
		if buildError != nil {
			return nil, fmt.Errorf(commandBuildErrorTemplateConstant, builder, buildError)
		}
		cobraCommand.AddCommand(command)
	}

	application.rootCommand = cobraCommand

	return application, nil
}

func (application *Application) commandBuilders() []commandBuilder {
	fleetDependencies := fleet.Dependencies{
		LoggerProvider: application.loggerProvider,
		ConfigurationProvider: func() fleet.CommandConfiguration {
			return fleet.CommandConfiguration{
				Environment: application.configuration.Environment,
				Stream:      application.configuration.Stream,
			}
		},
	}

	return []commandBuilder{
		&fleet.SetupCommandBuilder{Dependencies: fleetDependencies},
		&fleet.ResetCommandBuilder{Dependencies: fleetDependencies},
		&fleet.CheckoutBranchCommandBuilder{Dependencies: fleetDependencies},
		&fleet.ResetVersionCommandBuilder{Dependencies: fleetDependencies},
		&fleet.CurrentVersionsCommandBuilder{Dependencies: fleetDependencies},
		&fleet.OriginalVersionsCommandBuilder{Dependencies: fleetDependencies},
		&PrintConfigCommandBuilder{ConfigurationProvider: application.resolvedConfiguration},
		&replication.CommandBuilder{
			LoggerProvider: application.loggerProvider,
			ConfigurationProvider: func() replication.CommandConfiguration {
				return replication.CommandConfiguration{
					Environment: application.configuration.Environment,
					Stream:      application.configuration.Stream,
					Sidecar:     application.configuration.Sidecar,
				}
			},
		},
		&events.CommandBuilder{
			LoggerProvider: application.loggerProvider,
			ConfigurationProvider: func() events.Configuration {
				return application.configuration.Stream
			},
			UserProvider: func() string {
				return environment.ResolveUser(nil)
			},
		},
	}
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// SetArguments replaces the arguments parsed by Execute.
func (application *Application) SetArguments(arguments []string) {
	application.rootCommand.SetArgs(arguments)
}

// RootCommand exposes the root Cobra command.
func (application *Application) RootCommand() *cobra.Command {
	return application.rootCommand
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	application, applicationError := NewApplication()
	if applicationError != nil {
		return applicationError
	}
	return application.Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	if loadError := application.loadConfiguration(); loadError != nil {
		return loadError
	}
	application.applyFlagOverrides(command)

	logger, loggerError := application.createLogger()
	if loggerError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerError)
	}
	application.logger = logger

	environmentPath := strings.TrimSpace(application.environmentPathValue)
	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
		zap.String(environmentFileFieldConstant, application.configurationMetadata.EnvironmentFileUsed),
		zap.String(environmentPathFieldConstant, environmentPath),
	)

	application.propagateContext(command, environmentPath)
	return nil
}

func (application *Application) loadConfiguration() error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:        string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant:       string(utils.LogFormatStructured),
		commonEnvironmentFileConfigKeyConstant: "",
	}
	maps.Copy(defaultValues, environment.DefaultConfigurationValues(environmentConfigurationKeyConstant))
	maps.Copy(defaultValues, events.DefaultConfigurationValues(streamConfigurationKeyConstant))
	maps.Copy(defaultValues, replication.DefaultConfigurationValues(sidecarConfigurationKeyConstant))

	metadata, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}
	application.configurationMetadata = metadata
	return nil
}

func (application *Application) applyFlagOverrides(command *cobra.Command) {
	if persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}
	if persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}
}

func (application *Application) createLogger() (*zap.Logger, error) {
	logLevel, logLevelError := utils.ParseLogLevel(application.configuration.Common.LogLevel)
	if logLevelError != nil {
		return nil, logLevelError
	}
	logFormat, logFormatError := utils.ParseLogFormat(application.configuration.Common.LogFormat)
	if logFormatError != nil {
		return nil, logFormatError
	}
	return application.loggerFactory.CreateLogger(logLevel, logFormat)
}

// propagateContext stores the resolved configuration file and the --env-path
// override on the executing command and the root command.
func (application *Application) propagateContext(command *cobra.Command, environmentPath string) {
	if command == nil {
		return
	}
	executionContext := application.commandContextAccessor.WithConfigurationFilePath(command.Context(), application.configurationMetadata.ConfigFileUsed)
	if persistentFlagChanged(command, environmentPathFlagNameConstant) && len(environmentPath) > 0 {
		executionContext = application.commandContextAccessor.WithEnvironmentPath(executionContext, environmentPath)
	}
	command.SetContext(executionContext)
	if rootCommand := command.Root(); rootCommand != nil {
		rootCommand.SetContext(executionContext)
	}
}

// resolvedConfiguration returns the loaded configuration with the environment
// path override applied and every section sanitized.
func (application *Application) resolvedConfiguration() ApplicationConfiguration {
	resolved := application.configuration
	if environmentPath := strings.TrimSpace(application.environmentPathValue); len(environmentPath) > 0 {
		resolved.Environment.Path = environmentPath
	}
	resolved.Environment = resolved.Environment.Sanitize()
	resolved.Stream = resolved.Stream.Sanitize()
	resolved.Sidecar = resolved.Sidecar.Sanitize()
	return resolved
}

func (application *Application) loggerProvider() *zap.Logger {
	return application.logger
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}
	syncError := application.logger.Sync()
	if errors.Is(syncError, syscall.ENOTSUP) || errors.Is(syncError, syscall.EINVAL) {
		return nil
	}
	return syncError
}

// persistentFlagChanged reports whether a persistent flag was set on the
// command line, whichever command in the hierarchy declared it.
func persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}
	flagSets := []*pflag.FlagSet{command.PersistentFlags(), command.InheritedFlags()}
	if rootCommand := command.Root(); rootCommand != nil {
		flagSets = append(flagSets, rootCommand.PersistentFlags())
	}
	for _, flagSet := range flagSets {
		if flagSet != nil && flagSet.Changed(flagName) {
			return true
		}
	}
	return false
}
