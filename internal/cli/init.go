// Package cli holds shared startup plumbing for the commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"spese-tracker/internal/config"
	applog "spese-tracker/internal/log"
)

// LoadEnvFile loads a .env file for local development. A missing file
// is not an error.
func LoadEnvFile() {
	if err := godotenv.Load(); err == nil {
		slog.Debug("Loaded environment from .env file")
	}
}

// SetupLogger installs the process-wide logger for the named component.
func SetupLogger(component string, debug bool) *applog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	logger := applog.New(applog.Config{Level: level}).WithComponent(component)
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig reads configuration from the environment and
// fails fast on invalid values.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Fatal logs the error and exits.
func Fatal(logger *applog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
