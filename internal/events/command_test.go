package events_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/obsenv/internal/events"
)

func TestPublishActionCommand(testInstance *testing.T) {
	testCases := []struct {
		name           string
		arguments      []string
		expectedError  string
		expectedFields map[string]interface{}
	}{
		{
			name:      "checkout branch",
			arguments: []string{"--action", "checkout-branch", "--repository", "ts_wep", "--target-revision", "develop"},
			expectedFields: map[string]interface{}{
				"action":          "checkout-branch",
				"repository":      "ts_wep",
				"target_revision": "develop",
				"user":            "saluser",
			},
		},
		{
			name:      "reset with explicit user",
			arguments: []string{"--action", "RESET", "--baseline-branch", "cycle-0039", "--user", "observer"},
			expectedFields: map[string]interface{}{
				"action":          "reset",
				"baseline_branch": "cycle-0039",
				"user":            "observer",
			},
		},
		{
			name:          "unknown action",
			arguments:     []string{"--action", "teleport"},
			expectedError: "unknown action \"teleport\"",
		},
		{
			name:          "missing target revision",
			arguments:     []string{"--action", "reset-version", "--repository", "ts_wep"},
			expectedError: "unable to publish reset-version event: action reset-version requires a target revision",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			client := &fakeStreamClient{}
			var configuredStream string
			builder := events.CommandBuilder{
				ConfigurationProvider: func() events.Configuration {
					configuration := events.DefaultConfiguration()
					configuration.Name = "lsst.obsenv.test"
					return configuration
				},
				WriterFactory: func(configuration events.Configuration) events.StreamWriter {
					configuredStream = configuration.Name
					return client
				},
				UserProvider: func() string { return "saluser" },
			}
			command, buildError := builder.Build()
			require.NoError(subTest, buildError)

			output := &bytes.Buffer{}
			command.SetOut(output)
			command.SetErr(&bytes.Buffer{})
			command.SetArgs(testCase.arguments)
			command.SetContext(context.Background())

			executionError := command.Execute()
			if len(testCase.expectedError) > 0 {
				require.EqualError(subTest, executionError, testCase.expectedError)
				require.Empty(subTest, client.added)
				return
			}

			require.NoError(subTest, executionError)
			require.Equal(subTest, "1709658245000-0\n", output.String())
			require.Equal(subTest, "lsst.obsenv.test", configuredStream)
			require.Len(subTest, client.added, 1)
			require.Equal(subTest, "lsst.obsenv.test", client.added[0].Stream)
			fields, fieldsAvailable := client.added[0].Values.(map[string]interface{})
			require.True(subTest, fieldsAvailable)
			for fieldName, expectedValue := range testCase.expectedFields {
				require.Equal(subTest, expectedValue, fields[fieldName], fieldName)
			}
		})
	}
}

func TestPublishActionCommandRequiresAction(testInstance *testing.T) {
	builder := events.CommandBuilder{WriterFactory: func(events.Configuration) events.StreamWriter { return &fakeStreamClient{} }}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SetOut(&bytes.Buffer{})
	command.SetErr(&bytes.Buffer{})
	command.SetArgs([]string{})

	require.Error(testInstance, command.Execute())
}
