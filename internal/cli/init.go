// Package cli wires configuration, storage and the HTTP server into the
// finboard command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"finboard/internal/backend"
	"finboard/internal/config"
	"finboard/internal/log"
)

// loadEnvFile loads .env for local development. A missing file is fine.
func loadEnvFile() {
	_ = godotenv.Load()
}

// loadConfig reads and validates the configuration. path, when set, names the
// TOML file and wins over FINBOARD_CONFIG.
func loadConfig(path string) (*config.Config, error) {
	loadEnvFile()
	if path != "" {
		if err := os.Setenv("FINBOARD_CONFIG", path); err != nil {
			return nil, fmt.Errorf("set config path: %w", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogger builds the process logger and installs it as the slog default.
func setupLogger(level string) *log.Logger {
	c := log.DefaultConfig()
	c.Level = log.ParseLevel(level)
	logger := log.New(c)
	log.SetDefault(logger)
	return logger
}

// openBackend builds the configured session storage and broadcaster.
func openBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (backend.Factory, backend.Config, *backend.Result, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, backend.Config{}, nil, err
	}
	factory := backend.NewFactory(logger)
	res, err := factory.Create(ctx, bcfg)
	if err != nil {
		return nil, backend.Config{}, nil, fmt.Errorf("initialize session backend: %w", err)
	}
	return factory, bcfg, res, nil
}
