package cache

import (
	"context"
	"errors"
	"time"

	"github.com/debugg-ai/browse-to-test/types"
)

// ErrCacheMiss is returned by Get when no live entry exists for a key.
var ErrCacheMiss = errors.New("cache miss")

// Entry is one cached provider response together with its TTL bookkeeping.
type Entry struct {
	Response  *types.AIResponse `json:"response"`
	CreatedAt time.Time         `json:"created_at"`
}

// Store is the response cache behind the batch processor. A lookup must
// never return an entry older than the store's TTL; expired entries are
// evicted lazily, not by a background sweep.
type Store interface {
	// Get returns the live entry for key, or ErrCacheMiss.
	Get(ctx context.Context, key string) (*Entry, error)

	// Set stores a response under key, stamping it with the current time.
	// Stale entries are evicted on this write.
	Set(ctx context.Context, key string, resp *types.AIResponse) error

	// Size reports the number of entries currently stored, expired
	// stragglers included until the next write evicts them.
	Size(ctx context.Context) (int, error)
}
