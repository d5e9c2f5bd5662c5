package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/linkpulse/internal/domain"
)

// Resolver is a mock implementation of service.Resolver
type Resolver struct {
	mock.Mock
}

// Resolve maps slug to its destination
func (m *Resolver) Resolve(ctx context.Context, slug string, visitor domain.Visitor) (domain.Resolution, error) {
	args := m.Called(ctx, slug, visitor)
	return args.Get(0).(domain.Resolution), args.Error(1)
}

// LinkService is a mock implementation of service.LinkService
type LinkService struct {
	mock.Mock
}

// Shorten creates a short link
func (m *LinkService) Shorten(ctx context.Context, params domain.ShortenParams) (*domain.ShortURL, bool, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.ShortURL), args.Bool(1), args.Error(2)
}

// GetLink retrieves a link by slug
func (m *LinkService) GetLink(ctx context.Context, slug string) (*domain.ShortURL, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShortURL), args.Error(1)
}

// ListLinks retrieves links newest first
func (m *LinkService) ListLinks(ctx context.Context, owner string) ([]*domain.ShortURL, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ShortURL), args.Error(1)
}

// Deactivate disables a link
func (m *LinkService) Deactivate(ctx context.Context, slug string) error {
	args := m.Called(ctx, slug)
	return args.Error(0)
}

// Analytics aggregates the click history of a link
func (m *LinkService) Analytics(ctx context.Context, slug string) (*domain.Analytics, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Analytics), args.Error(1)
}
