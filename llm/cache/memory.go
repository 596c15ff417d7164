package cache

import (
	"context"
	"sync"
	"time"

	"github.com/debugg-ai/browse-to-test/types"
)

// MemoryStore is the default in-process response cache: a mutex-guarded map
// with lazy TTL eviction. There is deliberately no janitor goroutine;
// expiry is checked on access and stale entries are swept on the next
// write after they expire.
type MemoryStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]*Entry

	// now is swappable for expiry tests.
	now func() time.Time
}

// NewMemoryStore creates a store whose entries live for ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || s.expired(entry) {
		return nil, ErrCacheMiss
	}
	return entry, nil
}

// Set implements Store. Double-writes to the same key simply replace the
// entry and restart its TTL.
func (s *MemoryStore) Set(_ context.Context, key string, resp *types.AIResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, e := range s.entries {
		if s.expired(e) {
			delete(s.entries, k)
		}
	}
	s.entries[key] = &Entry{Response: resp, CreatedAt: s.now()}
	return nil
}

// Size implements Store.
func (s *MemoryStore) Size(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *MemoryStore) expired(e *Entry) bool {
	return s.now().Sub(e.CreatedAt) > s.ttl
}
