package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/joshdurbin/linkpulse/internal/cache"
	"github.com/joshdurbin/linkpulse/internal/cache/memory"
	"github.com/joshdurbin/linkpulse/internal/cache/redis"
	"github.com/joshdurbin/linkpulse/internal/config"
	"github.com/joshdurbin/linkpulse/internal/geo"
	"github.com/joshdurbin/linkpulse/internal/logging"
	"github.com/joshdurbin/linkpulse/internal/metrics"
	"github.com/joshdurbin/linkpulse/internal/repository"
	"github.com/joshdurbin/linkpulse/internal/repository/postgres"
	"github.com/joshdurbin/linkpulse/internal/repository/sqlite"
	"github.com/joshdurbin/linkpulse/internal/service"
	"github.com/joshdurbin/linkpulse/internal/shortener"
	"github.com/joshdurbin/linkpulse/internal/tracker"
	httptransport "github.com/joshdurbin/linkpulse/internal/transport/http"
	"github.com/joshdurbin/linkpulse/internal/useragent"
)

const shutdownTimeout = 30 * time.Second

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Logging)
	logger.Info().
		Int("port", cfg.Server.Port).
		Str("database", cfg.Database.Driver).
		Str("cache", cfg.Cache.Backend).
		Str("tracker", cfg.Tracker.Backend).
		Msg("starting linkpulse server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	repo, err := openRepository(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer closeWith(logger, "repository", repo)

	store, err := openCacheStore(ctx, cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer closeWith(logger, "cache", store)
	lookup := cache.NewLookupCache(store, cfg.Cache.TTL(cache.URLLookupTTLKey), m, logger)
	logger.Info().Str("backend", cfg.Cache.Backend).Dur("ttl", cfg.Cache.TTL(cache.URLLookupTTLKey)).Msg("lookup cache ready")

	geoResolver, err := openGeo(cfg.Geo, logger)
	if err != nil {
		return fmt.Errorf("failed to open GeoIP databases: %w", err)
	}
	if c, ok := geoResolver.(io.Closer); ok {
		defer closeWith(logger, "geo", c)
	}

	queue, err := openQueue(cfg.Tracker, m, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize click tracker: %w", err)
	}
	defer drainQueue(logger, queue, shutdownTimeout)

	processor := tracker.NewProcessor(repo, repo, geoResolver, m, logger)
	if err := queue.Start(ctx, processor.Handle); err != nil {
		return fmt.Errorf("failed to start click tracker: %w", err)
	}

	generator, err := shortener.NewGenerator(cfg.Shortener, repo)
	if err != nil {
		return fmt.Errorf("failed to create slug generator: %w", err)
	}
	logger.Info().Str("type", generator.Type()).Int("length", cfg.Shortener.Length).Msg("slug generator ready")

	resolver := service.NewResolver(repo, lookup, queue, useragent.NewParser(), m, logger)
	links := service.NewLinkService(repo, repo, lookup, generator, logger)

	server := httptransport.NewServer(cfg.Server, links, resolver, reg, logger, cfg.Logging.Verbose)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	var serveErr error
	select {
	case serveErr = <-errChan:
		if serveErr != nil {
			logger.Error().Err(serveErr).Msg("server error")
		}
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal, shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during server shutdown")
	}

	logger.Info().Msg("server stopped")
	if serveErr != nil {
		return fmt.Errorf("server error: %w", serveErr)
	}
	return nil
}

func openRepository(ctx context.Context, cfg config.DatabaseConfig) (repository.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.DSN)
	case config.DriverSQLite:
		return sqlite.New(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown database driver: %q", cfg.Driver)
	}
}

func openCacheStore(ctx context.Context, cfg cache.Config) (cache.Store, error) {
	switch cfg.Backend {
	case cache.BackendRedis:
		return redis.New(ctx, cfg.Redis)
	case cache.BackendMemory:
		store := memory.New()
		store.StartJanitor(cfg.JanitorInterval)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %q", cfg.Backend)
	}
}

func openGeo(cfg geo.Config, logger zerolog.Logger) (geo.Resolver, error) {
	if !cfg.Enabled() {
		logger.Warn().Msg("no GeoIP database configured, clicks will be recorded without location")
		return geo.Nop{}, nil
	}
	return geo.Open(cfg, logger)
}

func openQueue(cfg tracker.Config, m *metrics.Metrics, logger zerolog.Logger) (tracker.Queue, error) {
	switch cfg.Backend {
	case tracker.BackendNATS:
		return tracker.NewNATSQueue(cfg.NATS, m, logger)
	case tracker.BackendChannel:
		return tracker.NewChannelQueue(cfg.QueueSize, cfg.Workers, m, logger), nil
	default:
		return nil, fmt.Errorf("unknown tracker backend: %q", cfg.Backend)
	}
}

// drainQueue closes queue, waiting at most timeout for in-flight click jobs
func drainQueue(logger zerolog.Logger, queue tracker.Queue, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := queue.Close(ctx); err != nil {
		logger.Error().Err(err).Msg("error draining click tracker")
	}
}

func closeWith(logger zerolog.Logger, name string, c io.Closer) {
	if err := c.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		logger.Error().Err(err).Str("resource", name).Msg("error closing resource")
	}
}
