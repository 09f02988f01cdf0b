// Package log provides a structured logging interface for the statlab reports.
//
// The interface is slog-shaped so the backend can be swapped; the default
// backend is zerolog (see zerolog.go), tests use TestLogger.
//
// Example usage:
//
//	logger := log.GetLogger().With(
//	    log.ModelNameKey, "PCRegression",
//	    log.ReportKey, "crime",
//	)
//	logger.Info("grid point scored",
//	    log.OperationKey, log.OperationScore,
//	    log.R2ScoreKey, 0.71,
//	)
package log

import (
	"context"
	"sync"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key/value pairs. An error value passed to Error under
// any key is rendered with its message, and its stack trace when the error
// carries one from cockroachdb/errors.
type Logger interface {
	// Debug logs detailed diagnostic information, such as per-fold scores.
	Debug(msg string, fields ...any)

	// Info logs operational progress of a report stage.
	//
	//	logger.Info("split computed",
	//	    log.SamplesKey, 43,
	//	    "train", 39, "test", 4,
	//	)
	Info(msg string, fields ...any)

	// Warn logs recoverable conditions, e.g. a grid point excluded for
	// non-convergence.
	Warn(msg string, fields ...any)

	// Error logs failures that abort a report.
	//
	//	logger.Error("load failed", "error", err, "path", path)
	Error(msg string, fields ...any)

	// With returns a Logger that adds fields to every record.
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

// LoggerProvider creates and configures loggers.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}

var (
	providerMu      sync.RWMutex
	defaultProvider LoggerProvider
)

// SetProvider replaces the package-level provider used by GetLogger.
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	defaultProvider = p
}

// GetLogger returns the logger of the package-level provider. A zerolog
// provider writing to stderr at info level is created on first use.
func GetLogger() Logger {
	return provider().GetLogger()
}

// GetLoggerWithName returns a component logger from the package-level provider.
func GetLoggerWithName(name string) Logger {
	return provider().GetLoggerWithName(name)
}

func provider() LoggerProvider {
	providerMu.RLock()
	p := defaultProvider
	providerMu.RUnlock()
	if p != nil {
		return p
	}

	providerMu.Lock()
	defer providerMu.Unlock()
	if defaultProvider == nil {
		defaultProvider = NewZerologProvider(nil, LevelInfo)
	}
	return defaultProvider
}
