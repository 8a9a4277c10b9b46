package replication_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/obsenv/internal/environment"
	"github.com/temirov/obsenv/internal/events"
	"github.com/temirov/obsenv/internal/execshell"
	"github.com/temirov/obsenv/internal/replication"
	"github.com/temirov/obsenv/internal/utils"
)

type recordingGitExecutor struct {
	invocations [][]string
}

func (executor *recordingGitExecutor) ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.invocations = append(executor.invocations, details.Arguments)
	return execshell.ExecutionResult{}, nil
}

type queuedStreamClient struct {
	pending      []redis.XMessage
	consumers    []string
	acknowledged []string
	cancel       context.CancelFunc
}

func (client *queuedStreamClient) XGroupCreateMkStream(executionContext context.Context, stream string, group string, start string) *redis.StatusCmd {
	return redis.NewStatusResult("OK", nil)
}

func (client *queuedStreamClient) XReadGroup(executionContext context.Context, arguments *redis.XReadGroupArgs) *redis.XStreamSliceCmd {
	client.consumers = append(client.consumers, arguments.Consumer)
	if len(client.pending) == 0 || arguments.Streams[1] != ">" {
		if arguments.Streams[1] == ">" {
			client.cancel()
		}
		return redis.NewXStreamSliceCmdResult(nil, redis.Nil)
	}
	message := client.pending[0]
	client.pending = client.pending[1:]
	return redis.NewXStreamSliceCmdResult([]redis.XStream{{Stream: arguments.Streams[0], Messages: []redis.XMessage{message}}}, nil)
}

func (client *queuedStreamClient) XAck(executionContext context.Context, stream string, group string, identifiers ...string) *redis.IntCmd {
	client.acknowledged = append(client.acknowledged, identifiers...)
	return redis.NewIntResult(int64(len(identifiers)), nil)
}

func sidecarConfiguration(environmentPath string) replication.CommandConfiguration {
	environmentConfiguration := environment.DefaultConfiguration()
	environmentConfiguration.Path = environmentPath
	environmentConfiguration.Repositories = []environment.RepositoryReference{{Name: "ts_wep", Origin: "https://github.com/lsst-ts/"}}
	environmentConfiguration.SetupRepositories = []string{"ts_wep"}
	return replication.CommandConfiguration{
		Environment: environmentConfiguration,
		Stream:      events.DefaultConfiguration(),
		Sidecar:     replication.DefaultConfiguration(),
	}
}

func TestSidecarCommandPreparesEnvironmentAndReplaysEvents(testInstance *testing.T) {
	environmentPath := filepath.Join(testInstance.TempDir(), "obs-env")
	executionContext, cancel := context.WithCancel(context.Background())
	defer cancel()

	streamClient := &queuedStreamClient{
		cancel: cancel,
		pending: []redis.XMessage{
			{ID: "1-0", Values: map[string]interface{}{"action": "checkout-branch", "repository": "ts_wep", "target_revision": "develop"}},
			{ID: "2-0", Values: map[string]interface{}{"action": "checkout-branch", "repository": "ts_unknown", "target_revision": "develop"}},
		},
	}
	gitExecutor := &recordingGitExecutor{}
	observerCore, observedLogs := observer.New(zap.InfoLevel)

	builder := replication.CommandBuilder{
		LoggerProvider:        func() *zap.Logger { return zap.New(observerCore) },
		ConfigurationProvider: func() replication.CommandConfiguration { return sidecarConfiguration(environmentPath) },
		GitExecutor:           gitExecutor,
		StreamClientFactory:   func(events.Configuration) events.StreamReader { return streamClient },
		Registry:              prometheus.NewRegistry(),
		HostNameProvider:      func() (string, error) { return "summit-nublado", nil },
		EnvironmentLookup:     func(string) (string, bool) { return "saluser", true },
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SetContext(executionContext)
	command.SetArgs([]string{})

	require.NoError(testInstance, command.Execute())

	require.Equal(testInstance, [][]string{{"clone", "--quiet", "https://github.com/lsst-ts/ts_wep", filepath.Join(environmentPath, "ts_wep")}}, gitExecutor.invocations)

	setupFile, readError := os.ReadFile(filepath.Join(environmentPath, "auto_env_setup.sh"))
	require.NoError(testInstance, readError)
	require.True(testInstance, strings.Contains(string(setupFile), "by saluser"))
	require.Contains(testInstance, string(setupFile), "setup -j ts_wep -r "+filepath.Join(environmentPath, "ts_wep"))

	require.Equal(testInstance, []string{"1-0", "2-0"}, streamClient.acknowledged)
	for _, consumerName := range streamClient.consumers {
		require.Equal(testInstance, "summit-nublado", consumerName)
	}
	require.Equal(testInstance, 2, observedLogs.FilterMessage("Change event replay failed").Len())
}

func TestSidecarCommandRefusesToRunWhilePublishing(testInstance *testing.T) {
	gitExecutor := &recordingGitExecutor{}
	builder := replication.CommandBuilder{
		ConfigurationProvider: func() replication.CommandConfiguration {
			configuration := sidecarConfiguration(testInstance.TempDir())
			configuration.Stream.Publish = true
			return configuration
		},
		GitExecutor: gitExecutor,
		Registry:    prometheus.NewRegistry(),
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SetContext(context.Background())
	command.SetArgs([]string{})
	command.SilenceUsage = true
	command.SilenceErrors = true

	require.ErrorIs(testInstance, command.Execute(), replication.ErrPublishingEnabled)
	require.Empty(testInstance, gitExecutor.invocations)
}

func TestSidecarCommandHonoursEnvironmentPathOverride(testInstance *testing.T) {
	overridePath := filepath.Join(testInstance.TempDir(), "override")
	executionContext, cancel := context.WithCancel(context.Background())
	defer cancel()
	executionContext = utils.NewCommandContextAccessor().WithEnvironmentPath(executionContext, overridePath)

	builder := replication.CommandBuilder{
		ConfigurationProvider: func() replication.CommandConfiguration { return sidecarConfiguration("/nonexistent/obs-env") },
		GitExecutor:           &recordingGitExecutor{},
		StreamClientFactory:   func(events.Configuration) events.StreamReader { return &queuedStreamClient{cancel: cancel} },
		Registry:              prometheus.NewRegistry(),
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SetContext(executionContext)
	command.SetArgs([]string{})

	require.NoError(testInstance, command.Execute())
	require.FileExists(testInstance, filepath.Join(overridePath, "auto_env_setup.sh"))
}
