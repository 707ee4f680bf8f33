package throttle

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"
)

type memoryEntry struct {
	count     *atomic.Int64
	expiresAt time.Time
}

// MemoryStore is a process-local Store. It backs tests and single-instance
// deployments; expired windows are dropped lazily on access.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// Count returns the current counter value and remaining window TTL.
func (s *MemoryStore) Count(_ context.Context, key string) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live(key)
	if !ok {
		return 0, 0, nil
	}

	return entry.count.Load(), entry.expiresAt.Sub(s.now()), nil
}

// Incr bumps the counter, starting the window on the first hit.
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live(key)
	if !ok {
		entry = &memoryEntry{count: atomic.NewInt64(0), expiresAt: s.now().Add(window)}
		s.entries[key] = entry
	}

	return entry.count.Inc(), entry.expiresAt.Sub(s.now()), nil
}

// Reset removes the counter for key.
func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)

	return nil
}

// live returns the entry for key, evicting it first if its window has passed.
func (s *MemoryStore) live(key string) (*memoryEntry, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return nil, false
	}

	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return nil, false
	}

	return entry, true
}
