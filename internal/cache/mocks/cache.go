package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/linkpulse/internal/domain"
)

// Store is a mock implementation of cache.Store
type Store struct {
	mock.Mock
}

// Get retrieves an entry by key
func (m *Store) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CacheEntry), args.Error(1)
}

// Set stores an entry
func (m *Store) Set(ctx context.Context, key string, entry *domain.CacheEntry, ttl time.Duration) error {
	args := m.Called(ctx, key, entry, ttl)
	return args.Error(0)
}

// Delete removes an entry
func (m *Store) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// Close closes the store
func (m *Store) Close() error {
	args := m.Called()
	return args.Error(0)
}

// LookupCache is a mock implementation of cache.LookupCache
type LookupCache struct {
	mock.Mock
}

// Get returns the cached entry for slug
func (m *LookupCache) Get(ctx context.Context, slug string) (*domain.CacheEntry, bool) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*domain.CacheEntry), args.Bool(1)
}

// Set writes entry
func (m *LookupCache) Set(ctx context.Context, entry *domain.CacheEntry) {
	m.Called(ctx, entry)
}

// Invalidate drops slug
func (m *LookupCache) Invalidate(ctx context.Context, slug string) {
	m.Called(ctx, slug)
}
