// Package cache holds the in-memory result cache and recache index.
package cache

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/ports"
)

type resultEntry struct {
	payload   json.RawMessage
	expiresAt time.Time
}

// Results is a bounded, TTL-expiring, consume-on-read item cache.
// The LRU evicts the oldest entry when full and drops expired entries in the
// background; expiresAt is checked against the injected clock on every take.
type Results struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, resultEntry]
	ttl   time.Duration
	now   func() time.Time
}

// NewResults creates a result cache holding up to capacity entries for ttl each
func NewResults(capacity int, ttl time.Duration) *Results {
	return NewResultsWithClock(capacity, ttl, time.Now)
}

// NewResultsWithClock is NewResults with a controllable clock
func NewResultsWithClock(capacity int, ttl time.Duration, now func() time.Time) *Results {
	return &Results{
		cache: expirable.NewLRU[string, resultEntry](capacity, nil, ttl),
		ttl:   ttl,
		now:   now,
	}
}

func (r *Results) Put(itemID string, payload json.RawMessage) {
	r.cache.Add(itemID, resultEntry{
		payload:   payload,
		expiresAt: r.now().Add(r.ttl),
	})
}

func (r *Results) Take(itemID string) (json.RawMessage, bool) {
	// Peek and Remove must not interleave with another Take of the same id
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.cache.Peek(itemID)
	if !ok {
		return nil, false
	}
	r.cache.Remove(itemID)

	if !r.now().Before(entry.expiresAt) {
		return nil, false
	}
	return entry.payload, true
}

func (r *Results) Len() int {
	return r.cache.Len()
}

func (r *Results) Purge() {
	r.cache.Purge()
}

var _ ports.ResultCache = (*Results)(nil)
