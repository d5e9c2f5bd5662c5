package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/joshdurbin/linkpulse/internal/service"
)

// Config holds HTTP server settings
type Config struct {
	Port         int           `yaml:"port"`
	BaseURL      string        `yaml:"base_url" split_words:"true"`
	ReadTimeout  time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout time.Duration `yaml:"write_timeout" split_words:"true"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" split_words:"true"`
}

// DefaultConfig returns a server on port 8080
func DefaultConfig() Config {
	return Config{
		Port:         8080,
		BaseURL:      "http://localhost:8080",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server represents the HTTP server
type Server struct {
	handler *Handler
	server  *http.Server
	logger  zerolog.Logger
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	links service.LinkService,
	resolver service.Resolver,
	gatherer prometheus.Gatherer,
	logger zerolog.Logger,
	verbose bool,
) *Server {
	handler := NewHandler(links, resolver, gatherer, cfg.BaseURL, logger)
	logging := NewLoggingMiddleware(logger, verbose)

	return &Server{
		handler: handler,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      logging.Middleware(handler.Routes()),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		logger: logger.With().Str("component", "http").Logger(),
	}
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("server starting")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("server shutting down")
	return s.server.Shutdown(ctx)
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.server.Addr
}

// HTTPHandler returns the full middleware chain
func (s *Server) HTTPHandler() http.Handler {
	return s.server.Handler
}

// Handler returns the server handler
func (s *Server) Handler() *Handler {
	return s.handler
}
