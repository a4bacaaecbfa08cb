package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lmittmann/tint"
)

// createLogger builds the process logger. With no log file it writes
// colorized output to stderr; with one it appends JSON lines so the
// output stays machine readable for later inspection.
func createLogger(logLevel, logFile string) (*slog.Logger, error) {
	level := parseLogLevel(logLevel)

	if logFile == "" {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level: level,
		})), nil
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level: level,
	})), nil
}

// parseLogLevel converts string log level to slog.Level
func parseLogLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
