package fleet

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/temirov/obsenv/internal/baseline"
	"github.com/temirov/obsenv/internal/environment"
	"github.com/temirov/obsenv/internal/events"
	"github.com/temirov/obsenv/internal/utils"
)

const (
	publishFailedMessageConstant = "Unable to publish change event"
	actionLogFieldConstant       = "action"
)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// Orchestrator lists the fleet operations the commands drive.
// environment.Orchestrator satisfies it.
type Orchestrator interface {
	RootPath() string
	Summarize() string
	Setup(executionContext context.Context, user string) (environment.SetupReport, error)
	ResetBaseline(executionContext context.Context, baselineBranch string, overrideBranch string) (environment.ResetReport, error)
	CheckoutBranch(executionContext context.Context, repositoryName string, branchName string) error
	ResetIndexToVersion(executionContext context.Context, repositoryName string, version string) error
	CurrentVersions(executionContext context.Context) []environment.VersionReport
	OriginalVersions(executionContext context.Context, baselineBranch string) (baseline.Map, error)
}

// OrchestratorFactory builds the orchestrator for the resolved configuration.
type OrchestratorFactory func(configuration environment.Configuration, logger *zap.Logger) (Orchestrator, error)

// EventPublisher appends change events to the stream.
type EventPublisher interface {
	Publish(executionContext context.Context, event events.ChangeEvent) (string, error)
}

// PublisherFactory builds the publisher used when stream publishing is enabled.
type PublisherFactory func(configuration events.Configuration, logger *zap.Logger) (EventPublisher, error)

// CommandConfiguration groups the sections the fleet commands read.
type CommandConfiguration struct {
	Environment environment.Configuration
	Stream      events.Configuration
}

// Dependencies carries the collaborators shared by every fleet command builder.
// Nil members fall back to the production implementations.
type Dependencies struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() CommandConfiguration
	OrchestratorFactory   OrchestratorFactory
	PublisherFactory      PublisherFactory
	EnvironmentLookup     environment.EnvironmentLookup
}

// commandSession holds what a single command invocation resolved from Dependencies.
type commandSession struct {
	logger        *zap.Logger
	configuration CommandConfiguration
	orchestrator  Orchestrator
	dependencies  Dependencies
}

func (dependencies Dependencies) openSession(executionContext context.Context) (commandSession, error) {
	logger := dependencies.resolveLogger()
	configuration := dependencies.resolveConfiguration(executionContext)

	factory := dependencies.OrchestratorFactory
	if factory == nil {
		factory = assembleOrchestrator
	}
	orchestrator, orchestratorError := factory(configuration.Environment, logger)
	if orchestratorError != nil {
		return commandSession{}, orchestratorError
	}

	return commandSession{
		logger:        logger,
		configuration: configuration,
		orchestrator:  orchestrator,
		dependencies:  dependencies,
	}, nil
}

func (dependencies Dependencies) resolveLogger() *zap.Logger {
	if dependencies.LoggerProvider == nil {
		return zap.NewNop()
	}
	if logger := dependencies.LoggerProvider(); logger != nil {
		return logger
	}
	return zap.NewNop()
}

func (dependencies Dependencies) resolveConfiguration(executionContext context.Context) CommandConfiguration {
	configuration := CommandConfiguration{
		Environment: environment.DefaultConfiguration(),
		Stream:      events.DefaultConfiguration(),
	}
	if dependencies.ConfigurationProvider != nil {
		configuration = dependencies.ConfigurationProvider()
	}
	if environmentPath, available := utils.NewCommandContextAccessor().EnvironmentPath(executionContext); available && len(environmentPath) > 0 {
		configuration.Environment.Path = environmentPath
	}
	configuration.Environment = configuration.Environment.Sanitize()
	configuration.Stream = configuration.Stream.Sanitize()
	return configuration
}

func (session commandSession) user() string {
	lookup := session.dependencies.EnvironmentLookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return environment.ResolveUser(lookup)
}

// publish records a completed action on the stream when publishing is enabled.
// Failures are logged and never change the command outcome.
func (session commandSession) publish(executionContext context.Context, event events.ChangeEvent) {
	if !session.configuration.Stream.Publish {
		return
	}

	factory := session.dependencies.PublisherFactory
	if factory == nil {
		factory = newStreamPublisher
	}
	publisher, publisherError := factory(session.configuration.Stream, session.logger)
	if publisherError != nil {
		session.logger.Warn(publishFailedMessageConstant, zap.String(actionLogFieldConstant, string(event.Action)), zap.Error(publisherError))
		return
	}

	event.User = session.user()
	if _, publishError := publisher.Publish(executionContext, event); publishError != nil {
		session.logger.Warn(publishFailedMessageConstant, zap.String(actionLogFieldConstant, string(event.Action)), zap.Error(publishError))
	}
}

func assembleOrchestrator(configuration environment.Configuration, logger *zap.Logger) (Orchestrator, error) {
	return environment.Assemble(configuration, environment.AssemblyDependencies{Logger: logger})
}

func newStreamPublisher(configuration events.Configuration, logger *zap.Logger) (EventPublisher, error) {
	return events.NewStreamPublisher(configuration.Name, events.PublisherDependencies{
		Logger: logger,
		Client: events.NewRedisClient(configuration),
	})
}
