package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/joshdurbin/linkpulse/internal/cache"
	"github.com/joshdurbin/linkpulse/internal/domain"
	"github.com/joshdurbin/linkpulse/internal/repository"
	"github.com/joshdurbin/linkpulse/internal/shortener"
)

const (
	// createAttempts bounds retries when a generated slug loses an insert race
	createAttempts = 3

	// RecentClicksLimit caps the click list in analytics
	RecentClicksLimit = 20

	analyticsWindow = 7 * 24 * time.Hour
)

var customSlugPattern = regexp.MustCompile(`^[a-z0-9_-]{3,32}$`)

// reservedSlugs collide with fixed routes
var reservedSlugs = []string{"api", "analytics", "healthz", "metrics"}

// linkService implements LinkService
type linkService struct {
	urls      repository.URLRepository
	clicks    repository.ClickRepository
	cache     cache.LookupCache
	generator shortener.Generator
	logger    zerolog.Logger
	now       func() time.Time
}

// NewLinkService creates the link management service
func NewLinkService(
	urls repository.URLRepository,
	clicks repository.ClickRepository,
	lookup cache.LookupCache,
	generator shortener.Generator,
	logger zerolog.Logger,
) LinkService {
	return &linkService{
		urls:      urls,
		clicks:    clicks,
		cache:     lookup,
		generator: generator,
		logger:    logger.With().Str("component", "links").Logger(),
		now:       time.Now,
	}
}

// Shorten validates params and creates a link, reusing the owner's active link for the same URL
func (s *linkService) Shorten(ctx context.Context, params domain.ShortenParams) (*domain.ShortURL, bool, error) {
	target, err := NormalizeURL(params.URL)
	if err != nil {
		return nil, false, err
	}

	if params.ExpiresIn < 0 {
		return nil, false, fmt.Errorf("%w: must not be negative", domain.ErrInvalidExpiry)
	}

	slug := strings.TrimSpace(params.Slug)
	if slug != "" && !customSlugPattern.MatchString(slug) {
		return nil, false, fmt.Errorf("%w: must match %s", domain.ErrInvalidSlug, customSlugPattern)
	}
	if lo.Contains(reservedSlugs, slug) {
		return nil, false, fmt.Errorf("%w: %s is reserved", domain.ErrInvalidSlug, slug)
	}

	if params.Owner != "" && slug == "" {
		existing, err := s.urls.FindActiveByOwnerAndURL(ctx, params.Owner, target)
		switch {
		case err == nil:
			return existing, true, nil
		case !errors.Is(err, domain.ErrNotFound):
			return nil, false, fmt.Errorf("failed to check existing links: %w", err)
		}
	}

	now := s.now()
	link := &domain.ShortURL{
		OwnerRef:  params.Owner,
		TargetURL: target,
		CreatedAt: now,
		IsActive:  true,
	}
	if params.ExpiresIn > 0 {
		exp := now.Add(params.ExpiresIn)
		link.ExpiresAt = &exp
	}

	if slug != "" {
		return s.createCustom(ctx, link, slug)
	}
	return s.createGenerated(ctx, link)
}

func (s *linkService) createCustom(ctx context.Context, link *domain.ShortURL, slug string) (*domain.ShortURL, bool, error) {
	taken, err := s.urls.SlugExists(ctx, slug)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check slug: %w", err)
	}
	if taken {
		return nil, false, fmt.Errorf("slug %s: %w", slug, domain.ErrSlugTaken)
	}

	link.Slug = slug
	created, err := s.urls.CreateURL(ctx, link)
	if err != nil {
		if errors.Is(err, domain.ErrSlugTaken) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("failed to create URL: %w", err)
	}

	s.logger.Info().Str("slug", created.Slug).Str("owner", created.OwnerRef).Msg("short URL created")
	return created, false, nil
}

func (s *linkService) createGenerated(ctx context.Context, link *domain.ShortURL) (*domain.ShortURL, bool, error) {
	for attempt := 1; attempt <= createAttempts; attempt++ {
		slug, err := s.generator.Generate(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("failed to generate slug: %w", err)
		}

		link.Slug = slug
		created, err := s.urls.CreateURL(ctx, link)
		if err == nil {
			s.logger.Info().Str("slug", created.Slug).Str("owner", created.OwnerRef).Msg("short URL created")
			return created, false, nil
		}
		if !errors.Is(err, domain.ErrSlugTaken) {
			return nil, false, fmt.Errorf("failed to create URL: %w", err)
		}

		s.logger.Debug().Str("slug", slug).Int("attempt", attempt).Msg("generated slug taken on insert, retrying")
	}

	return nil, false, fmt.Errorf("failed to create URL after %d attempts: %w", createAttempts, domain.ErrSlugSpaceExhausted)
}

// GetLink retrieves a link by slug
func (s *linkService) GetLink(ctx context.Context, slug string) (*domain.ShortURL, error) {
	link, err := s.urls.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get URL: %w", err)
	}
	return link, nil
}

// ListLinks retrieves links newest first
func (s *linkService) ListLinks(ctx context.Context, owner string) ([]*domain.ShortURL, error) {
	links, err := s.urls.ListURLs(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to get URLs from database: %w", err)
	}
	return links, nil
}

// Deactivate disables a link, keeping its record and click history
func (s *linkService) Deactivate(ctx context.Context, slug string) error {
	if err := s.urls.Deactivate(ctx, slug); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to deactivate URL: %w", err)
	}

	s.cache.Invalidate(ctx, slug)
	s.logger.Info().Str("slug", slug).Msg("short URL deactivated")
	return nil
}

// Analytics aggregates device usage, the last week's clicks and the most recent clicks
func (s *linkService) Analytics(ctx context.Context, slug string) (*domain.Analytics, error) {
	link, err := s.GetLink(ctx, slug)
	if err != nil {
		return nil, err
	}

	devices, err := s.clicks.DeviceStats(ctx, link.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get device stats: %w", err)
	}

	weekly, err := s.clicks.CountClicksSince(ctx, link.ID, s.now().Add(-analyticsWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to count recent clicks: %w", err)
	}

	recent, err := s.clicks.RecentClicks(ctx, link.ID, RecentClicksLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent clicks: %w", err)
	}

	return &domain.Analytics{
		ShortURL:        link,
		TotalClicks:     link.ClickCount,
		DeviceStats:     devices,
		ClicksLast7Days: weekly,
		RecentClicks:    recent,
	}, nil
}

// NormalizeURL trims raw, defaults a missing scheme to https and accepts only
// absolute http(s) URLs with a host.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: URL is required", domain.ErrInvalidURL)
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidURL, err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: only HTTP and HTTPS are supported", domain.ErrInvalidURL)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("%w: missing host", domain.ErrInvalidURL)
	}

	return parsed.String(), nil
}
