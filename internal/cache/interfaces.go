package cache

import (
	"context"
	"errors"
	"time"

	"github.com/joshdurbin/linkpulse/internal/domain"
)

// ErrMiss is returned by a Store when the key is absent or expired
var ErrMiss = errors.New("cache miss")

// Store defines the key-value backend behind the lookup cache
type Store interface {
	// Get retrieves an entry by key, returning ErrMiss when absent
	Get(ctx context.Context, key string) (*domain.CacheEntry, error)

	// Set stores an entry under key for ttl
	Set(ctx context.Context, key string, entry *domain.CacheEntry, ttl time.Duration) error

	// Delete removes an entry; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Close releases the backend
	Close() error
}

// LookupCache is the slug cache in front of the URL store. It never returns
// errors: backend failures behave like misses and no-ops.
type LookupCache interface {
	// Get returns the cached entry for slug, if any
	Get(ctx context.Context, slug string) (*domain.CacheEntry, bool)

	// Set writes entry under its slug with the configured TTL
	Set(ctx context.Context, entry *domain.CacheEntry)

	// Invalidate drops the cached entry for slug
	Invalidate(ctx context.Context, slug string)
}

// Config holds lookup cache configuration
type Config struct {
	Backend         string         `yaml:"backend"`
	TTLs            map[string]int `yaml:"ttls"` // seconds, keyed by use
	JanitorInterval time.Duration  `yaml:"janitor_interval" split_words:"true"`
	Redis           RedisConfig    `yaml:"redis"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	// URLLookupTTLKey names the TTL used for slug lookups
	URLLookupTTLKey = "url_lookup"

	// DefaultURLLookupTTL applies when no TTL is configured
	DefaultURLLookupTTL = 86400 * time.Second
)

// DefaultConfig returns an in-memory cache with a one day lookup TTL
func DefaultConfig() Config {
	return Config{
		Backend:         BackendMemory,
		TTLs:            map[string]int{URLLookupTTLKey: int(DefaultURLLookupTTL / time.Second)},
		JanitorInterval: time.Minute,
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
	}
}

// TTL returns the configured TTL for name, or DefaultURLLookupTTL
func (c Config) TTL(name string) time.Duration {
	if secs, ok := c.TTLs[name]; ok && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return DefaultURLLookupTTL
}

// Key returns the cache key for slug
func Key(slug string) string {
	return "url:" + slug
}
