package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/joshdurbin/linkpulse/internal/cache"
	"github.com/joshdurbin/linkpulse/internal/domain"
	"github.com/joshdurbin/linkpulse/internal/metrics"
	"github.com/joshdurbin/linkpulse/internal/repository"
	"github.com/joshdurbin/linkpulse/internal/tracker"
	"github.com/joshdurbin/linkpulse/internal/useragent"
)

const (
	sourceCache = "cache"
	sourceStore = "store"
)

// redirectResolver implements Resolver
type redirectResolver struct {
	urls       repository.URLRepository
	cache      cache.LookupCache
	queue      tracker.Queue
	classifier useragent.Classifier
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	now        func() time.Time
}

// NewResolver creates the redirect resolver
func NewResolver(
	urls repository.URLRepository,
	lookup cache.LookupCache,
	queue tracker.Queue,
	classifier useragent.Classifier,
	m *metrics.Metrics,
	logger zerolog.Logger,
) Resolver {
	return &redirectResolver{
		urls:       urls,
		cache:      lookup,
		queue:      queue,
		classifier: classifier,
		metrics:    m,
		logger:     logger.With().Str("component", "resolver").Logger(),
		now:        time.Now,
	}
}

// Resolve looks slug up in the cache, then the store. Cache entries are trusted
// until their TTL lapses, so a deactivated link may redirect until then.
func (r *redirectResolver) Resolve(ctx context.Context, slug string, visitor domain.Visitor) (domain.Resolution, error) {
	if slug == "" {
		return r.observe(domain.NotFound(false)), nil
	}

	device := r.classifier.Classify(visitor.UserAgent)
	now := r.now()

	if entry, ok := r.cache.Get(ctx, slug); ok {
		if entry.IsExpired(now) {
			return r.observe(domain.Expired(true)), nil
		}
		if !entry.IsActive {
			return r.observe(domain.NotFound(true)), nil
		}

		r.recordClick(ctx, entry.ID, slug, visitor, device, now)
		return r.observe(domain.Found(entry.TargetURL, true)), nil
	}

	u, err := r.urls.GetActiveBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return r.observe(domain.NotFound(false)), nil
		}
		r.metrics.Resolves.WithLabelValues("error", sourceStore).Inc()
		return domain.Resolution{}, fmt.Errorf("failed to resolve %s: %w", slug, err)
	}

	if u.IsExpired(now) {
		return r.observe(domain.Expired(false)), nil
	}

	r.cache.Set(ctx, u.ToCacheEntry(now))
	r.recordClick(ctx, u.ID, slug, visitor, device, now)

	return r.observe(domain.Found(u.TargetURL, false)), nil
}

// recordClick increments the counter synchronously and queues enrichment.
// Neither failure affects the redirect.
func (r *redirectResolver) recordClick(ctx context.Context, id int64, slug string, visitor domain.Visitor, device domain.DeviceInfo, now time.Time) {
	if err := r.urls.IncrementClickCount(ctx, id); err != nil {
		r.logger.Warn().Err(err).Str("slug", slug).Msg("failed to increment click count")
	}

	job := domain.ClickJob{
		ShortURLID: id,
		IPAddress:  visitor.IP,
		UserAgent:  visitor.UserAgent,
		DeviceType: device.DeviceType,
		Browser:    device.Browser,
		OS:         device.OS,
		ClickedAt:  now,
	}
	if !r.queue.Enqueue(ctx, job) {
		r.logger.Debug().Str("slug", slug).Msg("click job not queued")
	}
}

func (r *redirectResolver) observe(res domain.Resolution) domain.Resolution {
	source := sourceStore
	if res.FromCache {
		source = sourceCache
	}
	r.metrics.Resolves.WithLabelValues(res.Status.String(), source).Inc()
	return res
}
