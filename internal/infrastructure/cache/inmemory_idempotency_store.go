package cache

import (
	"context"
	"sync"
	"time"

	"github.com/wms/returns/internal/domain/shared"
)

const cleanupInterval = 5 * time.Minute

type storedKey struct {
	expiresAt time.Time
}

// InMemoryIdempotencyStore keeps processed event IDs in a local map.
// State is per process, so it only dedupes within a single worker
// instance. A background goroutine evicts expired keys.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	keys      map[string]storedKey
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates the store and starts its cleanup
// goroutine
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		keys:     make(map[string]storedKey),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// WithClock overrides the time source. Used by tests.
func (s *InMemoryIdempotencyStore) WithClock(now func() time.Time) *InMemoryIdempotencyStore {
	s.now = now
	return s
}

// MarkProcessed records an event ID with a TTL. Returns true if the ID
// was newly recorded, false if a live entry already exists.
func (s *InMemoryIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if k, exists := s.keys[eventID]; exists && s.now().Before(k.expiresAt) {
		return false, nil
	}

	s.keys[eventID] = storedKey{expiresAt: s.now().Add(ttl)}
	return true, nil
}

// IsProcessed reports whether a live entry exists for the event ID
func (s *InMemoryIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k, exists := s.keys[eventID]
	if !exists {
		return false, nil
	}
	return s.now().Before(k.expiresAt), nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *InMemoryIdempotencyStore) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for eventID, k := range s.keys {
		if now.After(k.expiresAt) {
			delete(s.keys, eventID)
		}
	}
}

// Size returns the number of stored keys, expired ones included
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
