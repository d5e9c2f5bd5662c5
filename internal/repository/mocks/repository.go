package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/linkpulse/internal/domain"
)

// URLRepository is a mock implementation of repository.URLRepository
type URLRepository struct {
	mock.Mock
}

// CreateURL inserts a new short URL
func (m *URLRepository) CreateURL(ctx context.Context, u *domain.ShortURL) (*domain.ShortURL, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShortURL), args.Error(1)
}

// GetActiveBySlug retrieves an active short URL by slug
func (m *URLRepository) GetActiveBySlug(ctx context.Context, slug string) (*domain.ShortURL, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShortURL), args.Error(1)
}

// GetBySlug retrieves a short URL by slug
func (m *URLRepository) GetBySlug(ctx context.Context, slug string) (*domain.ShortURL, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShortURL), args.Error(1)
}

// GetByID retrieves a short URL by ID
func (m *URLRepository) GetByID(ctx context.Context, id int64) (*domain.ShortURL, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShortURL), args.Error(1)
}

// FindActiveByOwnerAndURL returns the owner's active link for targetURL
func (m *URLRepository) FindActiveByOwnerAndURL(ctx context.Context, owner, targetURL string) (*domain.ShortURL, error) {
	args := m.Called(ctx, owner, targetURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShortURL), args.Error(1)
}

// SlugExists checks if a slug is taken
func (m *URLRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

// IncrementClickCount adds one to the click counter
func (m *URLRepository) IncrementClickCount(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Deactivate marks the link inactive
func (m *URLRepository) Deactivate(ctx context.Context, slug string) error {
	args := m.Called(ctx, slug)
	return args.Error(0)
}

// ListURLs returns links newest first
func (m *URLRepository) ListURLs(ctx context.Context, owner string) ([]*domain.ShortURL, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ShortURL), args.Error(1)
}

// Close closes the repository connection
func (m *URLRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}

// ClickRepository is a mock implementation of repository.ClickRepository
type ClickRepository struct {
	mock.Mock
}

// RecordClick appends a click event
func (m *ClickRepository) RecordClick(ctx context.Context, click *domain.ClickEvent) error {
	args := m.Called(ctx, click)
	return args.Error(0)
}

// DeviceStats counts clicks per device type
func (m *ClickRepository) DeviceStats(ctx context.Context, urlID int64) (map[domain.DeviceType]int64, error) {
	args := m.Called(ctx, urlID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.DeviceType]int64), args.Error(1)
}

// CountClicksSince counts clicks at or after since
func (m *ClickRepository) CountClicksSince(ctx context.Context, urlID int64, since time.Time) (int64, error) {
	args := m.Called(ctx, urlID, since)
	return args.Get(0).(int64), args.Error(1)
}

// RecentClicks returns the newest clicks
func (m *ClickRepository) RecentClicks(ctx context.Context, urlID int64, limit int) ([]*domain.ClickEvent, error) {
	args := m.Called(ctx, urlID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ClickEvent), args.Error(1)
}
