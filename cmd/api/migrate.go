package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"b2bmarket/internal/infrastructure/database"
	"b2bmarket/pkg/config"
	"b2bmarket/pkg/logger"
)

func loadPostgresConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Configure(cfg.Environment, cfg.LogLevel)

	if cfg.StorageDriver != config.StoragePostgres {
		return nil, fmt.Errorf("migrations only apply to the postgres storage driver (STORAGE_DRIVER=%s)", cfg.StorageDriver)
	}
	return cfg, nil
}

func migrateUp(_ *cli.Context) error {
	cfg, err := loadPostgresConfig()
	if err != nil {
		return err
	}
	return database.MigrateUp(cfg.DatabaseURL)
}

func migrateDown(c *cli.Context) error {
	cfg, err := loadPostgresConfig()
	if err != nil {
		return err
	}
	return database.MigrateDown(cfg.DatabaseURL, c.Int("steps"))
}
