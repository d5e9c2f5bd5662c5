package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/joshdurbin/linkpulse/internal/domain"
	"github.com/joshdurbin/linkpulse/internal/geo"
	"github.com/joshdurbin/linkpulse/internal/metrics"
	"github.com/joshdurbin/linkpulse/internal/repository"
)

const (
	outcomeRecorded = "recorded"
	outcomeDropped  = "dropped"
	outcomeFailed   = "failed"
)

// Processor enriches click jobs with geolocation and appends them to the click store
type Processor struct {
	urls    repository.URLRepository
	clicks  repository.ClickRepository
	geo     geo.Resolver
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewProcessor creates a click job processor
func NewProcessor(urls repository.URLRepository, clicks repository.ClickRepository, geoResolver geo.Resolver, m *metrics.Metrics, logger zerolog.Logger) *Processor {
	return &Processor{
		urls:    urls,
		clicks:  clicks,
		geo:     geoResolver,
		metrics: m,
		logger:  logger.With().Str("component", "click_processor").Logger(),
	}
}

// Handle records one click. Jobs for missing or inactive links are dropped without error.
func (p *Processor) Handle(ctx context.Context, job domain.ClickJob) error {
	u, err := p.urls.GetByID(ctx, job.ShortURLID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			p.logger.Warn().Int64("short_url_id", job.ShortURLID).Msg("short URL for click job not found, dropping")
			p.metrics.ClicksProcessed.WithLabelValues(outcomeDropped).Inc()
			return nil
		}
		p.metrics.ClicksProcessed.WithLabelValues(outcomeFailed).Inc()
		return fmt.Errorf("failed to load short URL %d: %w", job.ShortURLID, err)
	}

	if !u.IsActive {
		p.logger.Debug().Str("slug", u.Slug).Msg("short URL inactive, dropping click job")
		p.metrics.ClicksProcessed.WithLabelValues(outcomeDropped).Inc()
		return nil
	}

	loc := p.geo.Resolve(job.IPAddress)

	click := &domain.ClickEvent{
		ShortURLID: u.ID,
		ClickedAt:  job.ClickedAt,
		IPAddress:  job.IPAddress,
		UserAgent:  job.UserAgent,
		Country:    loc.Country,
		City:       loc.City,
		Region:     loc.Region,
		DeviceType: job.DeviceType,
		Browser:    job.Browser,
		OS:         job.OS,
	}

	if err := p.clicks.RecordClick(ctx, click); err != nil {
		p.metrics.ClicksProcessed.WithLabelValues(outcomeFailed).Inc()
		return fmt.Errorf("failed to record click for %s: %w", u.Slug, err)
	}

	p.metrics.ClicksProcessed.WithLabelValues(outcomeRecorded).Inc()
	p.logger.Debug().
		Str("slug", u.Slug).
		Str("device", string(click.DeviceType)).
		Str("country", click.Country).
		Msg("click recorded")
	return nil
}
