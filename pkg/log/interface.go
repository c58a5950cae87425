// Package log provides the structured logging interface used by the training
// pipeline and the prediction front ends.
//
// The interface is slog-compatible in shape; the default implementation is
// backed by zerolog and writes one JSON object per line using Cloud Logging
// field names (severity, message).
//
// Example usage:
//
//	logger := log.GetLoggerWithName("xgboost.trainer").With(
//	    log.ModelNameKey, "Booster",
//	)
//	logger.Info("Training started",
//	    log.OperationKey, log.OperationFit,
//	    log.SamplesKey, 38_000,
//	    log.FeaturesKey, 31,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key/value pairs. For Error, an error passed as the
// first field is attached as the "error" attribute together with its stack
// trace.
type Logger interface {
	// Debug logs detailed diagnostic information.
	Debug(msg string, fields ...any)

	// Info logs general operational information.
	Info(msg string, fields ...any)

	// Warn logs potentially problematic situations.
	Warn(msg string, fields ...any)

	// Error logs error conditions.
	//
	//	logger.Error("Artifact load failed", err, "artifact.path", path)
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates loggers. Tests swap it for a TestLoggerProvider.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
