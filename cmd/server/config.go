package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshdurbin/linkpulse/internal/config"
)

// loadConfig layers explicitly set flags over the file and environment config
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	applyFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	setString := func(name string, dst *string) {
		if flags.Lookup(name) != nil && flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}

	setString("db-driver", &cfg.Database.Driver)
	setString("db-path", &cfg.Database.Path)
	setString("db-dsn", &cfg.Database.DSN)
	setString("base-url", &cfg.Server.BaseURL)
	setString("cache-backend", &cfg.Cache.Backend)
	setString("tracker-backend", &cfg.Tracker.Backend)
	setString("geo-city-db", &cfg.Geo.CityDB)
	setString("geo-country-db", &cfg.Geo.CountryDB)

	if flags.Lookup("port") != nil && flags.Changed("port") {
		cfg.Server.Port, _ = flags.GetInt("port")
	}
	if flags.Lookup("verbose") != nil && flags.Changed("verbose") {
		cfg.Logging.Verbose, _ = flags.GetBool("verbose")
	}
}
