package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshdurbin/linkpulse/internal/config"
	"github.com/joshdurbin/linkpulse/internal/logging"
	"github.com/joshdurbin/linkpulse/internal/repository/postgres"
	"github.com/joshdurbin/linkpulse/internal/repository/sqlite"
)

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Logging)

	var version uint
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		version, err = postgres.Migrate(cfg.Database.DSN)
	default:
		var repo *sqlite.Repository
		repo, err = sqlite.New(cfg.Database.Path)
		if err != nil {
			break
		}
		defer repo.Close()
		version, err = sqlite.Migrate(repo.DB())
	}
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info().Str("driver", cfg.Database.Driver).Uint("version", version).Msg("database migrated")
	return nil
}
