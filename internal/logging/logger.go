// Package logging provides structured logging configuration using log/slog.
//
// The pipeline tags every processing run with a UUID; WithRun returns a
// logger carrying that ID so all entries for one file can be correlated
// across validation, loading, and archiving.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup configures the global slog logger based on level and format.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
//
// Use "json" format in production for machine parsing (ELK, CloudWatch, etc.)
// Use "text" format in development for human readability.
func Setup(level, format string) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRun returns a logger that tags every entry with the processing run ID.
//
// Usage:
//
//	logger := logging.WithRun(runID.String())
//	logger.Info("processing started", "file", path)
//	// ... later ...
//	logger.Info("processing complete", "valid", valid, "invalid", invalid)
func WithRun(runID string) *slog.Logger {
	return slog.Default().With("run_id", runID)
}

// WithFields returns a logger with additional structured fields, for
// operation-specific loggers that carry consistent context through a
// multi-step process.
func WithFields(args ...any) *slog.Logger {
	return slog.Default().With(args...)
}
