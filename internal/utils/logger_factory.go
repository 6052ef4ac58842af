package utils

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	logLevelDebugStringConstant          = "debug"
	logLevelInfoStringConstant           = "info"
	logLevelWarnStringConstant           = "warn"
	logLevelErrorStringConstant          = "error"
	logFormatStructuredStringConstant    = "structured"
	logFormatConsoleStringConstant       = "console"
	jsonZapEncodingStringConstant        = "json"
	consoleZapEncodingStringConstant     = "console"
	unsupportedLogLevelTemplateConstant  = "unsupported log level: %s"
	unsupportedLogFormatTemplateConstant = "unsupported log format: %s"
	openLogFileTemplateConstant          = "open log file %s: %w"
)

// LogLevel enumerates supported logging granularities.
type LogLevel string

// Exported log level constants for reuse across packages.
const (
	LogLevelDebug LogLevel = LogLevel(logLevelDebugStringConstant)
	LogLevelInfo  LogLevel = LogLevel(logLevelInfoStringConstant)
	LogLevelWarn  LogLevel = LogLevel(logLevelWarnStringConstant)
	LogLevelError LogLevel = LogLevel(logLevelErrorStringConstant)
)

// LogFormat enumerates supported logger output encodings.
type LogFormat string

// Exported log format constants for reuse across packages.
const (
	LogFormatStructured LogFormat = LogFormat(logFormatStructuredStringConstant)
	LogFormatConsole    LogFormat = LogFormat(logFormatConsoleStringConstant)
)

// SupportedLogLevels lists the accepted log levels in increasing severity.
var SupportedLogLevels = []string{logLevelDebugStringConstant, logLevelInfoStringConstant, logLevelWarnStringConstant, logLevelErrorStringConstant}

// SupportedLogFormats lists the accepted log formats.
var SupportedLogFormats = []string{logFormatStructuredStringConstant, logFormatConsoleStringConstant}

// LogFileSinks names optional files mirroring the console log.
// DetailLogFilePath receives every record at debug level; ErrorLogFilePath receives errors with stack traces.
type LogFileSinks struct {
	DetailLogFilePath string
	ErrorLogFilePath  string
}

// LoggerOutputs bundles a logger with the release function of its file sinks.
type LoggerOutputs struct {
	Logger *zap.Logger
	close  func()
}

// Close releases open log files. It is safe on a zero value.
func (outputs LoggerOutputs) Close() {
	if outputs.close != nil {
		outputs.close()
	}
}

// LoggerFactory builds zap.Logger instances with consistent configuration.
type LoggerFactory struct{}

var logLevelMapping = map[LogLevel]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

var logFormatEncodingMapping = map[LogFormat]string{
	LogFormatStructured: jsonZapEncodingStringConstant,
	LogFormatConsole:    consoleZapEncodingStringConstant,
}

// NewLoggerFactory constructs a new logger factory.
func NewLoggerFactory() *LoggerFactory {
	return &LoggerFactory{}
}

// CreateLogger produces a zap.Logger honoring the requested log level and format.
func (factory *LoggerFactory) CreateLogger(requestedLogLevel LogLevel, requestedLogFormat LogFormat) (*zap.Logger, error) {
	outputs, creationError := factory.CreateLoggerOutputs(requestedLogLevel, requestedLogFormat, LogFileSinks{})
	if creationError != nil {
		return nil, creationError
	}
	return outputs.Logger, nil
}

// CreateLoggerOutputs produces a console logger tee'd into the configured file sinks.
func (factory *LoggerFactory) CreateLoggerOutputs(requestedLogLevel LogLevel, requestedLogFormat LogFormat, sinks LogFileSinks) (LoggerOutputs, error) {
	zapLogLevel, levelExists := logLevelMapping[LogLevel(strings.ToLower(string(requestedLogLevel)))]
	if !levelExists {
		return LoggerOutputs{}, fmt.Errorf(unsupportedLogLevelTemplateConstant, requestedLogLevel)
	}

	encoding, formatExists := logFormatEncodingMapping[LogFormat(strings.ToLower(string(requestedLogFormat)))]
	if !formatExists {
		return LoggerOutputs{}, fmt.Errorf(unsupportedLogFormatTemplateConstant, requestedLogFormat)
	}

	configuration := zap.NewProductionConfig()
	configuration.Level = zap.NewAtomicLevelAt(zapLogLevel)
	configuration.Encoding = encoding

	fileCores := make([]zapcore.Core, 0, 2)
	closers := make([]func(), 0, 2)
	closeAll := func() {
		for _, closeFile := range closers {
			closeFile()
		}
	}
	fileEncoder := zapcore.NewJSONEncoder(configuration.EncoderConfig)
	for _, sink := range []struct {
		path  string
		level zapcore.Level
	}{
		{path: sinks.DetailLogFilePath, level: zapcore.DebugLevel},
		{path: sinks.ErrorLogFilePath, level: zapcore.ErrorLevel},
	} {
		trimmedPath := strings.TrimSpace(sink.path)
		if len(trimmedPath) == 0 {
			continue
		}
		fileWriter, closeFile, openError := zap.Open(trimmedPath)
		if openError != nil {
			closeAll()
			return LoggerOutputs{}, fmt.Errorf(openLogFileTemplateConstant, trimmedPath, openError)
		}
		closers = append(closers, closeFile)
		fileCores = append(fileCores, zapcore.NewCore(fileEncoder, fileWriter, sink.level))
	}

	buildOptions := make([]zap.Option, 0, 1)
	if len(fileCores) > 0 {
		buildOptions = append(buildOptions, zap.WrapCore(func(consoleCore zapcore.Core) zapcore.Core {
			return zapcore.NewTee(append([]zapcore.Core{consoleCore}, fileCores...)...)
		}))
	}

	logger, buildError := configuration.Build(buildOptions...)
	if buildError != nil {
		closeAll()
		return LoggerOutputs{}, buildError
	}

	return LoggerOutputs{Logger: logger, close: closeAll}, nil
}
