package execshell_test

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/obsenv/internal/execshell"
)

const missingRemoteRefMessageConstant = "fatal: couldn't find remote ref tickets/DM-0"

type recordingCommandRunner struct {
	result   execshell.ExecutionResult
	failure  error
	commands []execshell.ShellCommand
}

func (runner *recordingCommandRunner) Run(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.commands = append(runner.commands, command)
	return runner.result, runner.failure
}

type countingObserver struct {
	started   int
	completed int
	failed    int
}

func (counter *countingObserver) CommandStarted(execshell.ShellCommand) {
	counter.started++
}

func (counter *countingObserver) CommandCompleted(execshell.ShellCommand, execshell.ExecutionResult) {
	counter.completed++
}

func (counter *countingObserver) CommandExecutionFailed(execshell.ShellCommand, error) {
	counter.failed++
}

func TestNewShellExecutorRequiresDependencies(testInstance *testing.T) {
	_, loggerError := execshell.NewShellExecutor(nil, &recordingCommandRunner{})
	require.ErrorIs(testInstance, loggerError, execshell.ErrLoggerNotConfigured)

	_, runnerError := execshell.NewShellExecutor(zap.NewNop(), nil)
	require.ErrorIs(testInstance, runnerError, execshell.ErrCommandRunnerNotConfigured)

	executor, creationError := execshell.NewShellExecutor(zap.NewNop(), &recordingCommandRunner{})
	require.NoError(testInstance, creationError)
	require.NotNil(testInstance, executor)
}

func TestShellExecutorExecuteGit(testInstance *testing.T) {
	testCases := []struct {
		name              string
		result            execshell.ExecutionResult
		failure           error
		expectedOutput    string
		expectedError     any
		expectedCompleted int
		expectedFailed    int
	}{
		{
			name:              "fetch_succeeds",
			result:            execshell.ExecutionResult{StandardOutput: "abc123\n"},
			expectedOutput:    "abc123\n",
			expectedCompleted: 1,
		},
		{
			name:              "fetch_exits_non_zero",
			result:            execshell.ExecutionResult{StandardError: missingRemoteRefMessageConstant, ExitCode: 128},
			expectedError:     execshell.CommandFailedError{},
			expectedCompleted: 1,
		},
		{
			name:           "git_cannot_start",
			failure:        exec.ErrNotFound,
			expectedError:  execshell.CommandExecutionError{},
			expectedFailed: 1,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			runner := &recordingCommandRunner{result: testCase.result, failure: testCase.failure}
			counter := &countingObserver{}

			executor, creationError := execshell.NewShellExecutor(zap.New(core), runner, execshell.WithCommandEventObserver(counter))
			require.NoError(testInstance, creationError)

			details := execshell.CommandDetails{Arguments: []string{"fetch", "--tags", "origin", "tickets/DM-0"}, WorkingDirectory: "/obs-env/ts_wep"}
			result, executionError := executor.ExecuteGit(context.Background(), details)

			if testCase.expectedError != nil {
				require.IsType(testInstance, testCase.expectedError, executionError)
				require.Empty(testInstance, result.StandardOutput)
			} else {
				require.NoError(testInstance, executionError)
				require.Equal(testInstance, testCase.expectedOutput, result.StandardOutput)
			}

			require.Equal(testInstance, 2, logs.Len())
			require.Equal(testInstance, 1, counter.started)
			require.Equal(testInstance, testCase.expectedCompleted, counter.completed)
			require.Equal(testInstance, testCase.expectedFailed, counter.failed)
		})
	}
}

func TestShellExecutorGitEnvironment(testInstance *testing.T) {
	testCases := []struct {
		name                string
		environment         map[string]string
		expectedEnvironment map[string]string
	}{
		{
			name:        "defaults_added",
			environment: map[string]string{"GIT_SSH_COMMAND": "ssh -o BatchMode=yes"},
			expectedEnvironment: map[string]string{
				"GIT_SSH_COMMAND":     "ssh -o BatchMode=yes",
				"GIT_TERMINAL_PROMPT": "0",
				"LC_ALL":              "C",
			},
		},
		{
			name:        "caller_overrides_kept",
			environment: map[string]string{"GIT_TERMINAL_PROMPT": "1", "LC_ALL": "de_DE.UTF-8"},
			expectedEnvironment: map[string]string{
				"GIT_TERMINAL_PROMPT": "1",
				"LC_ALL":              "de_DE.UTF-8",
			},
		},
		{
			name: "no_caller_environment",
			expectedEnvironment: map[string]string{
				"GIT_TERMINAL_PROMPT": "0",
				"LC_ALL":              "C",
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			runner := &recordingCommandRunner{}
			executor, creationError := execshell.NewShellExecutor(zap.NewNop(), runner)
			require.NoError(testInstance, creationError)

			_, executionError := executor.ExecuteGit(context.Background(), execshell.CommandDetails{
				Arguments:            []string{"clone", "--quiet", "https://github.com/lsst-ts/ts_wep", "/obs-env/ts_wep"},
				EnvironmentVariables: testCase.environment,
			})
			require.NoError(testInstance, executionError)
			require.Len(testInstance, runner.commands, 1)

			recorded := runner.commands[0]
			require.Equal(testInstance, execshell.CommandGit, recorded.Name)
			require.Equal(testInstance, testCase.expectedEnvironment, recorded.Details.EnvironmentVariables)
		})
	}
}

func TestCommandErrorsDescribeTheCommand(testInstance *testing.T) {
	command := execshell.ShellCommand{Name: execshell.CommandGit, Details: execshell.CommandDetails{Arguments: []string{"fetch", "origin"}}}

	failedError := execshell.CommandFailedError{
		Command: command,
		Result:  execshell.ExecutionResult{ExitCode: 128, StandardError: missingRemoteRefMessageConstant + "\n"},
	}
	require.Equal(testInstance, "git fetch origin exited with code 128: "+missingRemoteRefMessageConstant, failedError.Error())

	executionError := execshell.CommandExecutionError{Command: command, Cause: exec.ErrNotFound}
	require.ErrorIs(testInstance, executionError, exec.ErrNotFound)
}

func TestOSCommandRunnerReportsExitCodes(testInstance *testing.T) {
	if _, lookupError := exec.LookPath("git"); lookupError != nil {
		testInstance.Skip("git executable not available")
	}
	runner := execshell.NewOSCommandRunner()

	versionResult, versionError := runner.Run(context.Background(), execshell.ShellCommand{
		Name:    execshell.CommandGit,
		Details: execshell.CommandDetails{Arguments: []string{"--version"}},
	})
	require.NoError(testInstance, versionError)
	require.Zero(testInstance, versionResult.ExitCode)
	require.True(testInstance, strings.HasPrefix(versionResult.StandardOutput, "git version"))

	revParseResult, revParseError := runner.Run(context.Background(), execshell.ShellCommand{
		Name: execshell.CommandGit,
		Details: execshell.CommandDetails{
			Arguments:            []string{"rev-parse", "--verify", "--quiet", "refs/tags/v0.0.0"},
			WorkingDirectory:     testInstance.TempDir(),
			EnvironmentVariables: map[string]string{"GIT_CEILING_DIRECTORIES": "/"},
		},
	})
	require.NoError(testInstance, revParseError)
	require.NotZero(testInstance, revParseResult.ExitCode)

	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()
	_, cancelledError := runner.Run(cancelledContext, execshell.ShellCommand{Name: execshell.CommandGit, Details: execshell.CommandDetails{Arguments: []string{"--version"}}})
	require.True(testInstance, errors.Is(cancelledError, context.Canceled))
}
