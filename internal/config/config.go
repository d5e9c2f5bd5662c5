package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/joshdurbin/linkpulse/internal/cache"
	"github.com/joshdurbin/linkpulse/internal/geo"
	"github.com/joshdurbin/linkpulse/internal/logging"
	"github.com/joshdurbin/linkpulse/internal/shortener"
	"github.com/joshdurbin/linkpulse/internal/tracker"
	httptransport "github.com/joshdurbin/linkpulse/internal/transport/http"
)

// EnvPrefix prefixes every environment override, e.g. LINKPULSE_SERVER_PORT
const EnvPrefix = "LINKPULSE"

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the application configuration
type Config struct {
	Server    httptransport.Config `yaml:"server"`
	Database  DatabaseConfig       `yaml:"database"`
	Cache     cache.Config         `yaml:"cache"`
	Tracker   tracker.Config       `yaml:"tracker"`
	Geo       geo.Config           `yaml:"geo"`
	Shortener shortener.Config     `yaml:"shortener"`
	Logging   logging.Config       `yaml:"logging"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Server: httptransport.DefaultConfig(),
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   "linkpulse.db",
		},
		Cache:     cache.DefaultConfig(),
		Tracker:   tracker.DefaultConfig(),
		Shortener: shortener.DefaultConfig(),
		Logging:   logging.DefaultConfig(),
	}
}

// Load layers the YAML file at path (optional), a .env file in the working
// directory (optional) and LINKPULSE_* environment variables over the defaults.
// The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got: %d", c.Server.Port)
	}

	if c.Server.BaseURL == "" {
		return fmt.Errorf("server base URL cannot be empty")
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database path cannot be empty")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database DSN cannot be empty")
		}
	default:
		return fmt.Errorf("unknown database driver: %q", c.Database.Driver)
	}

	switch c.Cache.Backend {
	case cache.BackendMemory:
		if c.Cache.JanitorInterval <= 0 {
			return fmt.Errorf("cache janitor interval must be positive, got: %v", c.Cache.JanitorInterval)
		}
	case cache.BackendRedis:
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("redis address cannot be empty")
		}
	default:
		return fmt.Errorf("unknown cache backend: %q", c.Cache.Backend)
	}

	for name, secs := range c.Cache.TTLs {
		if secs <= 0 {
			return fmt.Errorf("cache TTL %s must be positive, got: %d", name, secs)
		}
	}

	switch c.Tracker.Backend {
	case tracker.BackendChannel:
		if c.Tracker.QueueSize <= 0 {
			return fmt.Errorf("tracker queue size must be positive, got: %d", c.Tracker.QueueSize)
		}
	case tracker.BackendNATS:
		if c.Tracker.NATS.URL == "" {
			return fmt.Errorf("NATS URL cannot be empty")
		}
		if c.Tracker.NATS.Subject == "" {
			return fmt.Errorf("NATS subject cannot be empty")
		}
	default:
		return fmt.Errorf("unknown tracker backend: %q", c.Tracker.Backend)
	}

	if c.Tracker.Workers <= 0 {
		return fmt.Errorf("tracker workers must be positive, got: %d", c.Tracker.Workers)
	}

	if c.Shortener.Length <= 0 {
		return fmt.Errorf("shortener length must be positive, got: %d", c.Shortener.Length)
	}

	if c.Shortener.MaxAttempts <= 0 {
		return fmt.Errorf("shortener max attempts must be positive, got: %d", c.Shortener.MaxAttempts)
	}

	return nil
}
