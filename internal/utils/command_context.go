package utils

import "context"

type commandContextKey string

const (
	configurationFilePathContextKey commandContextKey = "configurationFilePath"
	environmentPathContextKey       commandContextKey = "environmentPath"
)

// CommandContextAccessor stores values resolved by the root command on the
// context handed to subcommands.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath records the configuration file that was loaded.
func (CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	return withStringValue(parentContext, configurationFilePathContextKey, configurationFilePath)
}

// ConfigurationFilePath returns the recorded configuration file, if any.
func (CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	return stringValue(executionContext, configurationFilePathContextKey)
}

// WithEnvironmentPath records an --env-path override of environment.path.
func (CommandContextAccessor) WithEnvironmentPath(parentContext context.Context, environmentPath string) context.Context {
	return withStringValue(parentContext, environmentPathContextKey, environmentPath)
}

// EnvironmentPath returns the --env-path override, if one was given.
func (CommandContextAccessor) EnvironmentPath(executionContext context.Context) (string, bool) {
	return stringValue(executionContext, environmentPathContextKey)
}

func withStringValue(parentContext context.Context, key commandContextKey, value string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, key, value)
}

func stringValue(executionContext context.Context, key commandContextKey) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	value, available := executionContext.Value(key).(string)
	return value, available
}
