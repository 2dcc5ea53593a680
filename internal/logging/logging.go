// Package logging configures the structured loggers used across the service.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

var structuredLogger *slog.Logger

// Init initializes the logging system with a JSON logger on stdout and sets
// it as the process default.
func Init(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	structuredLogger = slog.New(handler)
	slog.SetDefault(structuredLogger)
}

// Structured returns the globally configured structured logger.
// Returns nil if Init has not been called.
func Structured() *slog.Logger {
	return structuredLogger
}

// ForService creates a new logger instance with the 'service' attribute added.
// It uses the global structured logger as the base; nil before Init.
func ForService(serviceName string) *slog.Logger {
	if structuredLogger == nil {
		return nil
	}
	return structuredLogger.With("service", serviceName)
}

// NewFileLogger creates a slog.Logger writing JSON logs to the given file,
// rotated by lumberjack. It returns the logger, a function to close the
// underlying writer, and an error if setup fails.
func NewFileLogger(filePath, serviceName string, level slog.Leveler, maxSizeMB int) (*slog.Logger, func() error, error) {
	logDir := filepath.Dir(filePath)
	if logDir != "." {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}
	}

	if maxSizeMB <= 0 {
		maxSizeMB = 100
	}

	logWriter := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    maxSizeMB,
		MaxBackups: 3,
		MaxAge:     28, // days
	}

	fileHandler := slog.NewJSONHandler(logWriter, &slog.HandlerOptions{Level: level})
	logger := slog.New(fileHandler).With("service", serviceName)

	closeFunc := func() error {
		return logWriter.Close()
	}

	return logger, closeFunc, nil
}
