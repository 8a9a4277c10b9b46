package execshell

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandMessageFormatterDescribesGitSubcommands(testInstance *testing.T) {
	testCases := []struct {
		name      string
		arguments []string
		result    ExecutionResult
		failure   error
		stage     messageStage
		expected  string
	}{
		{
			name:      "fetch_tags_start",
			arguments: []string{"fetch", "--tags", "--force", "origin"},
			stage:     messageStageStart,
			expected:  "Fetching tags from origin in /obs-env/ts_wep",
		},
		{
			name:      "fetch_branch_failure",
			arguments: []string{"fetch", "origin", "+refs/heads/develop:refs/remotes/origin/develop"},
			result:    ExecutionResult{ExitCode: 128, StandardError: "fatal: couldn't find remote ref develop\n"},
			stage:     messageStageFailure,
			expected:  "Failed to fetch +refs/heads/develop:refs/remotes/origin/develop from origin in /obs-env/ts_wep (exit code 128: fatal: couldn't find remote ref develop)",
		},
		{
			name:      "clone_start",
			arguments: []string{"clone", "--quiet", "https://github.com/lsst-ts/ts_wep", "/obs-env/ts_wep"},
			stage:     messageStageStart,
			expected:  "Cloning https://github.com/lsst-ts/ts_wep into /obs-env/ts_wep",
		},
		{
			name:      "rev_parse_success",
			arguments: []string{"rev-parse", "--verify", "--quiet", "refs/tags/v1.0.0^{commit}"},
			result:    ExecutionResult{StandardOutput: "abc123\n"},
			stage:     messageStageSuccess,
			expected:  "refs/tags/v1.0.0^{commit} in /obs-env/ts_wep resolved to abc123",
		},
		{
			name:      "update_ref_start",
			arguments: []string{"update-ref", "refs/heads/1.0.0", "abc123"},
			stage:     messageStageStart,
			expected:  "Moving refs/heads/1.0.0 to abc123 in /obs-env/ts_wep",
		},
		{
			name:      "reset_execution_failure",
			arguments: []string{"reset", "--hard", "abc123"},
			failure:   errors.New("signal: killed"),
			stage:     messageStageExecutionFailure,
			expected:  "Unable to reset /obs-env/ts_wep to abc123: signal: killed",
		},
		{
			name:      "unknown_subcommand",
			arguments: []string{"gc"},
			stage:     messageStageSuccess,
			expected:  "Completed git gc (in /obs-env/ts_wep)",
		},
	}

	formatter := CommandMessageFormatter{}
	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			command := ShellCommand{
				Name:    CommandGit,
				Details: CommandDetails{Arguments: testCase.arguments, WorkingDirectory: "/obs-env/ts_wep"},
			}
			message := formatter.render(command, testCase.result, testCase.failure, testCase.stage)
			require.Equal(testInstance, testCase.expected, message)
		})
	}
}

func TestCommandMessageFormatterDefaultsWorkingDirectoryLabel(testInstance *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{Name: CommandGit, Details: CommandDetails{Arguments: []string{"describe", "--tags"}}}

	require.Equal(testInstance, "Describing HEAD in current directory", formatter.BuildStartedMessage(command))
}
