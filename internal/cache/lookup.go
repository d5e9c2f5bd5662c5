package cache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/joshdurbin/linkpulse/internal/domain"
	"github.com/joshdurbin/linkpulse/internal/metrics"
)

// lookupCache implements LookupCache over any Store
type lookupCache struct {
	store   Store
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewLookupCache creates the slug cache
func NewLookupCache(store Store, ttl time.Duration, m *metrics.Metrics, logger zerolog.Logger) LookupCache {
	if ttl <= 0 {
		ttl = DefaultURLLookupTTL
	}
	return &lookupCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  logger.With().Str("component", "lookup_cache").Logger(),
	}
}

// Get returns the cached entry for slug. Backend errors count as misses.
func (c *lookupCache) Get(ctx context.Context, slug string) (*domain.CacheEntry, bool) {
	entry, err := c.store.Get(ctx, Key(slug))
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.fail("get", slug, err)
		}
		c.metrics.CacheMisses.Inc()
		return nil, false
	}

	c.metrics.CacheHits.Inc()
	return entry, true
}

// Set writes entry best-effort
func (c *lookupCache) Set(ctx context.Context, entry *domain.CacheEntry) {
	if err := c.store.Set(ctx, Key(entry.Slug), entry, c.ttl); err != nil {
		c.fail("set", entry.Slug, err)
	}
}

// Invalidate drops slug best-effort
func (c *lookupCache) Invalidate(ctx context.Context, slug string) {
	if err := c.store.Delete(ctx, Key(slug)); err != nil {
		c.fail("delete", slug, err)
	}
}

func (c *lookupCache) fail(op, slug string, err error) {
	c.metrics.CacheErrors.WithLabelValues(op).Inc()
	c.logger.Warn().Err(err).Str("op", op).Str("slug", slug).Msg("cache unavailable, continuing without it")
}

var _ LookupCache = (*lookupCache)(nil)
