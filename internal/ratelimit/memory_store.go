package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"voting-service/internal/models"
	"voting-service/internal/util"
)

// MemoryStore is the single-process Store. It backs tests and small
// deployments; the Redis store takes over when instances share state.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*models.RateLimitEntry
	stop    chan struct{}
	once    sync.Once
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*models.RateLimitEntry),
		stop:    make(chan struct{}),
	}
}

func (s *MemoryStore) Get(_ context.Context, identifier string) (*models.RateLimitEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[identifier]
	if !ok {
		return nil, nil
	}

	dup := *entry
	return &dup, nil
}

func (s *MemoryStore) Put(_ context.Context, entry *models.RateLimitEntry, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dup := *entry
	s.entries[entry.Identifier] = &dup
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, identifier)
	return nil
}

// StartCleanup sweeps dead entries on the given interval until Stop.
func (s *MemoryStore) StartCleanup(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				removed := s.sweep(time.Now())
				if removed > 0 {
					util.Debug("Rate limit cleanup pass", zap.Int("removed", removed))
				}
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *MemoryStore) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.entries {
		if entry.Dead(now) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) Stop() {
	s.once.Do(func() { close(s.stop) })
}
