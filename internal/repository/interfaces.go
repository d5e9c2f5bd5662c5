package repository

import (
	"context"
	"time"

	"github.com/joshdurbin/linkpulse/internal/domain"
)

// URLRepository defines the interface for short URL data operations
type URLRepository interface {
	// CreateURL inserts a new short URL and returns it with ID and timestamps set.
	// A duplicate slug returns domain.ErrSlugTaken.
	CreateURL(ctx context.Context, u *domain.ShortURL) (*domain.ShortURL, error)

	// GetActiveBySlug retrieves an active short URL by slug
	GetActiveBySlug(ctx context.Context, slug string) (*domain.ShortURL, error)

	// GetBySlug retrieves a short URL by slug regardless of state
	GetBySlug(ctx context.Context, slug string) (*domain.ShortURL, error)

	// GetByID retrieves a short URL by ID regardless of state
	GetByID(ctx context.Context, id int64) (*domain.ShortURL, error)

	// FindActiveByOwnerAndURL returns the newest active link the owner made for targetURL
	FindActiveByOwnerAndURL(ctx context.Context, owner, targetURL string) (*domain.ShortURL, error)

	// SlugExists checks if a slug is taken, active or not
	SlugExists(ctx context.Context, slug string) (bool, error)

	// IncrementClickCount atomically adds one to the click counter
	IncrementClickCount(ctx context.Context, id int64) error

	// Deactivate marks the link inactive, keeping the record
	Deactivate(ctx context.Context, slug string) error

	// ListURLs returns links newest first, filtered by owner when set
	ListURLs(ctx context.Context, owner string) ([]*domain.ShortURL, error)

	// Close closes the repository connection
	Close() error
}

// ClickRepository defines the interface for click event storage and aggregation
type ClickRepository interface {
	// RecordClick appends a click event
	RecordClick(ctx context.Context, click *domain.ClickEvent) error

	// DeviceStats counts clicks per device type
	DeviceStats(ctx context.Context, urlID int64) (map[domain.DeviceType]int64, error)

	// CountClicksSince counts clicks at or after since
	CountClicksSince(ctx context.Context, urlID int64, since time.Time) (int64, error)

	// RecentClicks returns the newest clicks, at most limit
	RecentClicks(ctx context.Context, urlID int64, limit int) ([]*domain.ClickEvent, error)
}

// Store is a backend implementing both repositories
type Store interface {
	URLRepository
	ClickRepository
}

// NormalizeDeviceType maps a stored device type to a known value, unknown otherwise
func NormalizeDeviceType(s string) domain.DeviceType {
	switch dt := domain.DeviceType(s); dt {
	case domain.DeviceMobile, domain.DeviceTablet, domain.DeviceDesktop:
		return dt
	default:
		return domain.DeviceUnknown
	}
}
