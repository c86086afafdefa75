// Package state holds the process-wide in-memory structures shared by all requests.
package state

import (
	"fmt"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/adapters/cache"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/adapters/ratelimit"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/config"
)

// State is built once at startup and closed at shutdown. Each member guards
// its own data.
type State struct {
	Suppression *ratelimit.Tracker
	Results     *cache.Results
	Recache     *cache.Recache
}

// New builds the state sized by cfg
func New(cfg *config.Config) (*State, error) {
	recache, err := cache.NewRecache(cfg.Cache.RecacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create recache index: %w", err)
	}

	return &State{
		Suppression: ratelimit.NewTracker(cfg.SuppressionWindow(), cfg.Cache.SuppressionCapacity),
		Results:     cache.NewResults(cfg.Cache.ResultCapacity, cfg.ResultTTL()),
		Recache:     recache,
	}, nil
}

// Close stops the suppression sweeper and drops cached data
func (s *State) Close() {
	s.Suppression.Close()
	s.Results.Purge()
	s.Recache.Purge()
}
