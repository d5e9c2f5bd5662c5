package service

import (
	"context"

	"github.com/joshdurbin/linkpulse/internal/domain"
)

// Resolver defines the redirect lookup path
type Resolver interface {
	// Resolve maps slug to its destination, counting and queueing a click when found
	Resolve(ctx context.Context, slug string, visitor domain.Visitor) (domain.Resolution, error)
}

// LinkService defines the management operations on short links
type LinkService interface {
	// Shorten creates a short link. existing is true when an active link
	// for the same owner and URL was returned instead.
	Shorten(ctx context.Context, params domain.ShortenParams) (link *domain.ShortURL, existing bool, err error)

	// GetLink retrieves a link by slug regardless of state
	GetLink(ctx context.Context, slug string) (*domain.ShortURL, error)

	// ListLinks retrieves links newest first, filtered by owner when set
	ListLinks(ctx context.Context, owner string) ([]*domain.ShortURL, error)

	// Deactivate disables a link and drops it from the lookup cache
	Deactivate(ctx context.Context, slug string) error

	// Analytics aggregates the click history of a link
	Analytics(ctx context.Context, slug string) (*domain.Analytics, error)
}
