package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/domain"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/ports"
)

// Recache maps item ids to the listing page they were discovered on.
// It is bounded so long-running processes do not grow it without limit.
type Recache struct {
	index *lru.Cache[string, domain.RecacheEntry]
}

// NewRecache creates an index holding up to capacity entries
func NewRecache(capacity int) (*Recache, error) {
	index, err := lru.New[string, domain.RecacheEntry](capacity)
	if err != nil {
		return nil, err
	}
	return &Recache{index: index}, nil
}

func (r *Recache) Record(itemID string, entry domain.RecacheEntry) {
	r.index.Add(itemID, entry)
}

func (r *Recache) Lookup(itemID string) (domain.RecacheEntry, bool) {
	return r.index.Get(itemID)
}

func (r *Recache) Len() int {
	return r.index.Len()
}

func (r *Recache) Purge() {
	r.index.Purge()
}

var _ ports.RecacheIndex = (*Recache)(nil)
