package utils_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/obsenv/internal/utils"
)

func TestLoggerFactoryCreateLogger(testInstance *testing.T) {
	testCases := []struct {
		name          string
		level         utils.LogLevel
		format        utils.LogFormat
		expectedError string
		expectJSON    bool
		expectDebug   bool
	}{
		{
			name:       "structured_info",
			level:      utils.LogLevelInfo,
			format:     utils.LogFormatStructured,
			expectJSON: true,
		},
		{
			name:        "console_debug",
			level:       utils.LogLevelDebug,
			format:      utils.LogFormatConsole,
			expectDebug: true,
		},
		{
			name:          "unsupported_level",
			level:         utils.LogLevel("verbose"),
			format:        utils.LogFormatStructured,
			expectedError: "unsupported log level: verbose",
		},
		{
			name:          "unsupported_format",
			level:         utils.LogLevelInfo,
			format:        utils.LogFormat("xml"),
			expectedError: "unsupported log format: xml",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			var output bytes.Buffer
			logger, creationError := utils.NewLoggerFactory(utils.WithLogOutput(&output)).CreateLogger(testCase.level, testCase.format)
			if len(testCase.expectedError) > 0 {
				require.EqualError(testInstance, creationError, testCase.expectedError)
				require.Nil(testInstance, logger)
				return
			}
			require.NoError(testInstance, creationError)

			logger.Debug("debug entry")
			logger.Info("info entry")
			require.NoError(testInstance, logger.Sync())

			lines := bytes.Split(bytes.TrimSpace(output.Bytes()), []byte("\n"))
			if testCase.expectDebug {
				require.Len(testInstance, lines, 2)
			} else {
				require.Len(testInstance, lines, 1)
			}
			lastLine := lines[len(lines)-1]
			require.Contains(testInstance, string(lastLine), "info entry")
			require.Equal(testInstance, testCase.expectJSON, json.Valid(lastLine))
		})
	}
}

func TestStructuredLoggerFieldNames(testInstance *testing.T) {
	var output bytes.Buffer
	logger, creationError := utils.NewLoggerFactory(utils.WithLogOutput(&output)).CreateLogger(utils.LogLevelInfo, utils.LogFormatStructured)
	require.NoError(testInstance, creationError)

	logger.Warn("clone failed")
	require.NoError(testInstance, logger.Sync())

	var entry map[string]any
	require.NoError(testInstance, json.Unmarshal(bytes.TrimSpace(output.Bytes()), &entry))
	require.Equal(testInstance, "warn", entry["level"])
	require.Equal(testInstance, "clone failed", entry["message"])
	require.Contains(testInstance, entry, "timestamp")
	require.Contains(testInstance, entry, "caller")
}

func TestParseLogSettings(testInstance *testing.T) {
	parsedLevel, levelError := utils.ParseLogLevel("  WARN ")
	require.NoError(testInstance, levelError)
	require.Equal(testInstance, utils.LogLevelWarn, parsedLevel)

	parsedFormat, formatError := utils.ParseLogFormat("Console")
	require.NoError(testInstance, formatError)
	require.Equal(testInstance, utils.LogFormatConsole, parsedFormat)

	_, invalidLevelError := utils.ParseLogLevel("verbose")
	require.EqualError(testInstance, invalidLevelError, "unsupported log level: verbose")

	_, invalidFormatError := utils.ParseLogFormat("xml")
	require.EqualError(testInstance, invalidFormatError, "unsupported log format: xml")
}
