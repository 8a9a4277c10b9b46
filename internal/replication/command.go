package replication

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/obsenv/internal/environment"
	"github.com/temirov/obsenv/internal/events"
	"github.com/temirov/obsenv/internal/execshell"
	"github.com/temirov/obsenv/internal/utils"
)

const (
	commandUseNameConstant          = "sidecar"
	commandShortDescriptionConstant = "Mirror a remote environment by replaying its change events"
	commandLongDescriptionConstant  = "sidecar prepares the local environment (creates the path, clones missing repositories and writes the setup file), then consumes change events from the stream and replays each one against the local environment until interrupted."
	commandExampleConstant          = "obsenv sidecar --env-path /net/obs-env/auto_base_packages"
	unknownHostNameConstant         = "obsenv"
	sidecarSetupMessageConstant     = "Preparing environment"
	sidecarCloneFailuresConstant    = "Some repositories could not be cloned"
	sidecarReadyMessageConstant     = "Environment ready"
	subscribedMessageConstant       = "Subscribed to change stream"
	setupFileLogFieldConstant       = "setup_file"
	environmentPathLogFieldConstant = "environment_path"
	streamLogFieldConstant          = "stream"
	groupLogFieldConstant           = "group"
	consumerLogFieldConstant        = "consumer"
)

// StreamClientFactory creates the Redis client used by the sidecar.
type StreamClientFactory func(configuration events.Configuration) events.StreamReader

// CommandBuilder assembles the sidecar command.
type CommandBuilder struct {
	LoggerProvider        func() *zap.Logger
	ConfigurationProvider func() CommandConfiguration
	GitExecutor           execshell.GitExecutor
	StreamClientFactory   StreamClientFactory
	Registry              *prometheus.Registry
	HostNameProvider      func() (string, error)
	EnvironmentLookup     environment.EnvironmentLookup
}

// Build constructs the sidecar command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:     commandUseNameConstant,
		Short:   commandShortDescriptionConstant,
		Long:    commandLongDescriptionConstant,
		Example: commandExampleConstant,
		Args:    cobra.NoArgs,
		RunE:    builder.run,
	}
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, _ []string) error {
	configuration := builder.resolveConfiguration(command.Context())
	if configuration.Stream.Publish {
		return ErrPublishingEnabled
	}

	logger := builder.resolveLogger()

	registry := builder.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	metrics, metricsError := NewMetrics(registry)
	if metricsError != nil {
		return metricsError
	}

	orchestrator, assembleError := environment.Assemble(configuration.Environment, environment.AssemblyDependencies{
		Logger:          logger,
		GitExecutor:     builder.GitExecutor,
		CommandObserver: metrics.CommandObserver(),
	})
	if assembleError != nil {
		return assembleError
	}

	executionContext, stop := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info(sidecarSetupMessageConstant, zap.String(environmentPathLogFieldConstant, orchestrator.RootPath()))
	setupReport, setupError := orchestrator.Setup(executionContext, environment.ResolveUser(builder.resolveEnvironmentLookup()))
	if setupError != nil {
		return setupError
	}
	if cloneFailures := setupReport.Err(); cloneFailures != nil {
		logger.Warn(sidecarCloneFailuresConstant, zap.Error(cloneFailures))
	}
	logger.Info(sidecarReadyMessageConstant, zap.String(setupFileLogFieldConstant, setupReport.SetupFilePath))

	streamClient := builder.resolveStreamClient(configuration.Stream)
	if closer, closable := streamClient.(io.Closer); closable {
		defer closer.Close()
	}

	sourceSettings := events.SourceSettings{
		Stream:       configuration.Stream.Name,
		Group:        configuration.Stream.Group,
		Consumer:     builder.resolveConsumerName(configuration.Stream.Consumer),
		BlockTimeout: configuration.Stream.BlockTimeout,
	}
	source, sourceError := events.NewStreamSource(sourceSettings, events.SourceDependencies{Logger: logger, Client: streamClient})
	if sourceError != nil {
		return sourceError
	}
	logger.Info(
		subscribedMessageConstant,
		zap.String(streamLogFieldConstant, sourceSettings.Stream),
		zap.String(groupLogFieldConstant, sourceSettings.Group),
		zap.String(consumerLogFieldConstant, sourceSettings.Consumer),
	)

	dispatcher, dispatcherError := NewOrchestratorDispatcher(orchestrator, configuration.Environment.Baseline.Branch)
	if dispatcherError != nil {
		return dispatcherError
	}

	consumer, consumerError := NewConsumer(
		ConsumerSettings{PublishingEnabled: configuration.Stream.Publish, RetryInterval: configuration.Sidecar.RetryInterval},
		ConsumerDependencies{Logger: logger, Source: source, Dispatcher: dispatcher, Metrics: metrics},
	)
	if consumerError != nil {
		return consumerError
	}

	group, groupContext := errgroup.WithContext(executionContext)
	group.Go(func() error {
		return consumer.Run(groupContext)
	})
	if len(configuration.Sidecar.MetricsAddress) > 0 {
		metricsServer := NewMetricsServer(configuration.Sidecar.MetricsAddress, registry, logger)
		group.Go(func() error {
			return metricsServer.Run(groupContext)
		})
	}
	return group.Wait()
}

func (builder *CommandBuilder) resolveConfiguration(executionContext context.Context) CommandConfiguration {
	configuration := CommandConfiguration{
		Environment: environment.DefaultConfiguration(),
		Stream:      events.DefaultConfiguration(),
		Sidecar:     DefaultConfiguration(),
	}
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}
	if environmentPath, available := utils.NewCommandContextAccessor().EnvironmentPath(executionContext); available && len(environmentPath) > 0 {
		configuration.Environment.Path = environmentPath
	}
	configuration.Environment = configuration.Environment.Sanitize()
	configuration.Stream = configuration.Stream.Sanitize()
	configuration.Sidecar = configuration.Sidecar.Sanitize()
	return configuration
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveStreamClient(configuration events.Configuration) events.StreamReader {
	if builder.StreamClientFactory != nil {
		return builder.StreamClientFactory(configuration)
	}
	return events.NewRedisClient(configuration)
}

func (builder *CommandBuilder) resolveEnvironmentLookup() environment.EnvironmentLookup {
	if builder.EnvironmentLookup != nil {
		return builder.EnvironmentLookup
	}
	return os.LookupEnv
}

// resolveConsumerName defaults to the host name so that a restarted sidecar
// resumes the pending entries of its previous run.
func (builder *CommandBuilder) resolveConsumerName(configuredName string) string {
	if len(configuredName) > 0 {
		return configuredName
	}
	hostNameProvider := builder.HostNameProvider
	if hostNameProvider == nil {
		hostNameProvider = os.Hostname
	}
	hostName, hostNameError := hostNameProvider()
	if hostNameError != nil || len(hostName) == 0 {
		hostName = unknownHostNameConstant
	}
	return hostName
}
