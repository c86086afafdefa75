package application

import (
	"context"
	"encoding/json"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/domain"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/ports"
)

// ItemCache pairs the result cache with the recache index so every cached
// item also records the page it came from
type ItemCache struct {
	results ports.ResultCache
	recache ports.RecacheIndex
}

// NewItemCache creates an item cache
func NewItemCache(results ports.ResultCache, recache ports.RecacheIndex) *ItemCache {
	return &ItemCache{results: results, recache: recache}
}

// Put caches item and remembers origin for reconstruction
func (c *ItemCache) Put(item domain.Item, origin domain.RecacheEntry) {
	c.results.Put(item.ID, item.Payload)
	c.recache.Record(item.ID, origin)
}

// Take removes and returns a cached item
func (c *ItemCache) Take(itemID string) (json.RawMessage, bool) {
	return c.results.Take(itemID)
}

// Origin returns the page an item was last seen on
func (c *ItemCache) Origin(itemID string) (domain.RecacheEntry, bool) {
	return c.recache.Lookup(itemID)
}

// CacheStats holds cache statistics
type CacheStats struct {
	Accounts       int
	CachedItems    int
	RecacheEntries int
}

// CacheService handles cache inspection and the identity mapping
type CacheService struct {
	accounts   ports.AccountStore
	identities ports.IdentityStore
	results    ports.ResultCache
	recache    ports.RecacheIndex
}

// NewCacheService creates a new cache service
func NewCacheService(
	accounts ports.AccountStore,
	identities ports.IdentityStore,
	results ports.ResultCache,
	recache ports.RecacheIndex,
) *CacheService {
	return &CacheService{
		accounts:   accounts,
		identities: identities,
		results:    results,
		recache:    recache,
	}
}

// Stats returns cache statistics
func (s *CacheService) Stats(ctx context.Context) (*CacheStats, error) {
	count, err := s.accounts.CountAccounts(ctx)
	if err != nil {
		return nil, err
	}
	return &CacheStats{
		Accounts:       count,
		CachedItems:    s.results.Len(),
		RecacheEntries: s.recache.Len(),
	}, nil
}

// Names lists the stored identity mappings
func (s *CacheService) Names(ctx context.Context) ([]ports.Identity, error) {
	return s.identities.ListIdentities(ctx)
}

// ClearNames forgets every identity mapping; names are re-resolved on next use
func (s *CacheService) ClearNames(ctx context.Context) (int, error) {
	return s.identities.ClearIdentities(ctx)
}

// Clear drops all cached items and recache hints
func (s *CacheService) Clear() {
	s.results.Purge()
	s.recache.Purge()
}
