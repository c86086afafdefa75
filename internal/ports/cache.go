package ports

import (
	"encoding/json"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/domain"
)

// ResultCache is a time-bounded, consume-on-read cache of discovered items.
type ResultCache interface {
	// Put stores an item payload. The entry expires after the cache TTL
	// regardless of reads; the oldest entry is evicted when full.
	Put(itemID string, payload json.RawMessage)

	// Take removes and returns the payload if present and unexpired.
	Take(itemID string) (json.RawMessage, bool)

	// Len returns the number of entries currently held.
	Len() int

	// Purge removes all entries.
	Purge()
}

// RecacheIndex records the listing page an item was discovered on.
// Entries are hints: replaying the page may no longer yield the item.
type RecacheIndex interface {
	Record(itemID string, entry domain.RecacheEntry)
	Lookup(itemID string) (domain.RecacheEntry, bool)
	Len() int
	Purge()
}

// SuppressionTracker marks accounts temporarily unusable after a rate-limit response.
type SuppressionTracker interface {
	// Suppress marks the account for the tracker window; repeated calls extend it.
	Suppress(accountID int64)

	// IsSuppressed reports whether the mark is present and unexpired.
	IsSuppressed(accountID int64) bool
}
