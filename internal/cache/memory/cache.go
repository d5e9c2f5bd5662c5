package memory

import (
	"context"
	"sync"
	"time"

	"github.com/joshdurbin/linkpulse/internal/cache"
	"github.com/joshdurbin/linkpulse/internal/domain"
)

type item struct {
	entry    *domain.CacheEntry
	deadline time.Time
}

// Store implements cache.Store using an in-process map with per-key deadlines
type Store struct {
	data     map[string]item
	mutex    sync.RWMutex
	now      func() time.Time
	stopChan chan struct{}
	done     chan struct{}
	running  bool
}

// New creates an empty store. Call StartJanitor to evict expired keys in the background.
func New() *Store {
	return &Store{
		data: make(map[string]item),
		now:  time.Now,
	}
}

// Get retrieves a copy of the entry stored under key
func (s *Store) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	it, exists := s.data[key]
	if !exists || !s.now().Before(it.deadline) {
		return nil, cache.ErrMiss
	}

	return it.entry.Clone(), nil
}

// Set stores a copy of entry under key until ttl elapses
func (s *Store) Set(ctx context.Context, key string, entry *domain.CacheEntry, ttl time.Duration) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.data[key] = item{
		entry:    entry.Clone(),
		deadline: s.now().Add(ttl),
	}
	return nil
}

// Delete removes key
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.data, key)
	return nil
}

// Len returns the number of stored keys, expired or not
func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.data)
}

// StartJanitor evicts expired keys every interval until Close
func (s *Store) StartJanitor(interval time.Duration) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running || interval <= 0 {
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})

	go s.janitor(interval, s.stopChan, s.done)
}

func (s *Store) janitor(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-stop:
			return
		}
	}
}

func (s *Store) evictExpired() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	for key, it := range s.data {
		if !now.Before(it.deadline) {
			delete(s.data, key)
		}
	}
}

// Close stops the janitor
func (s *Store) Close() error {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return nil
	}
	s.running = false
	close(s.stopChan)
	done := s.done
	s.mutex.Unlock()

	<-done
	return nil
}

var _ cache.Store = (*Store)(nil)
