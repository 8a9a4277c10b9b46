package utils

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	unsupportedLogLevelTemplateConstant  = "unsupported log level: %s"
	unsupportedLogFormatTemplateConstant = "unsupported log format: %s"
	timestampFieldNameConstant           = "timestamp"
	loggerFieldNameConstant              = "logger"
	messageFieldNameConstant             = "message"
	levelFieldNameConstant               = "level"
	callerFieldNameConstant              = "caller"
	stacktraceFieldNameConstant          = "stacktrace"
)

// LogLevel is a configured log severity threshold.
type LogLevel string

// Log levels accepted by common.log_level.
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat is a configured log encoding.
type LogFormat string

// Log formats accepted by common.log_format. Structured emits JSON lines.
const (
	LogFormatStructured LogFormat = "structured"
	LogFormatConsole    LogFormat = "console"
)

var zapLevels = map[LogLevel]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

// ParseLogLevel normalizes a configured log level and rejects unknown values.
func ParseLogLevel(rawLogLevel string) (LogLevel, error) {
	candidate := LogLevel(strings.ToLower(strings.TrimSpace(rawLogLevel)))
	if _, known := zapLevels[candidate]; !known {
		return "", fmt.Errorf(unsupportedLogLevelTemplateConstant, rawLogLevel)
	}
	return candidate, nil
}

// ParseLogFormat normalizes a configured log format and rejects unknown values.
func ParseLogFormat(rawLogFormat string) (LogFormat, error) {
	candidate := LogFormat(strings.ToLower(strings.TrimSpace(rawLogFormat)))
	switch candidate {
	case LogFormatStructured, LogFormatConsole:
		return candidate, nil
	default:
		return "", fmt.Errorf(unsupportedLogFormatTemplateConstant, rawLogFormat)
	}
}

// LoggerFactoryOption customizes a LoggerFactory.
type LoggerFactoryOption func(*LoggerFactory)

// WithLogOutput redirects log entries to the provided writer.
func WithLogOutput(output io.Writer) LoggerFactoryOption {
	return func(factory *LoggerFactory) {
		if output != nil {
			factory.output = zapcore.AddSync(output)
		}
	}
}

// LoggerFactory builds the zap loggers handed to every service. Entries go to
// stderr unless redirected, so command results on stdout stay machine readable.
type LoggerFactory struct {
	output zapcore.WriteSyncer
}

// NewLoggerFactory constructs a LoggerFactory writing to stderr by default.
func NewLoggerFactory(options ...LoggerFactoryOption) *LoggerFactory {
	factory := &LoggerFactory{output: zapcore.Lock(os.Stderr)}
	for _, option := range options {
		option(factory)
	}
	return factory
}

// CreateLogger produces a logger for the requested level and format.
func (factory *LoggerFactory) CreateLogger(requestedLogLevel LogLevel, requestedLogFormat LogFormat) (*zap.Logger, error) {
	zapLevel, knownLevel := zapLevels[requestedLogLevel]
	if !knownLevel {
		return nil, fmt.Errorf(unsupportedLogLevelTemplateConstant, requestedLogLevel)
	}

	encoderConfiguration := zapcore.EncoderConfig{
		TimeKey:        timestampFieldNameConstant,
		LevelKey:       levelFieldNameConstant,
		NameKey:        loggerFieldNameConstant,
		CallerKey:      callerFieldNameConstant,
		MessageKey:     messageFieldNameConstant,
		StacktraceKey:  stacktraceFieldNameConstant,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	var options []zap.Option
	switch requestedLogFormat {
	case LogFormatStructured:
		encoderConfiguration.EncodeLevel = zapcore.LowercaseLevelEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfiguration)
		options = append(options, zap.AddStacktrace(zapcore.ErrorLevel))
	case LogFormatConsole:
		encoderConfiguration.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfiguration)
	default:
		return nil, fmt.Errorf(unsupportedLogFormatTemplateConstant, requestedLogFormat)
	}

	core := zapcore.NewCore(encoder, factory.output, zap.NewAtomicLevelAt(zapLevel))
	return zap.New(core, append(options, zap.AddCaller())...), nil
}
