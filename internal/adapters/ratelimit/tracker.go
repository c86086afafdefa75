// Package ratelimit tracks accounts the upstream has recently rate-limited.
package ratelimit

import (
	"sync"
	"time"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/ports"
)

// Tracker implements an in-memory suppression window per account.
// Expired marks are ignored on read and swept periodically.
type Tracker struct {
	marks    map[int64]time.Time // account id -> suppressed until
	window   time.Duration
	capacity int
	now      func() time.Time
	mu       sync.Mutex

	stop chan struct{}
	once sync.Once
}

// NewTracker creates a tracker with the given window and capacity and
// starts its sweeper. Call Close to stop the sweeper.
func NewTracker(window time.Duration, capacity int) *Tracker {
	t := NewTrackerWithClock(window, capacity, time.Now)
	go t.sweep()
	return t
}

// NewTrackerWithClock creates a tracker reading time from now.
// No sweeper runs; expired marks are still ignored and pruned when full.
func NewTrackerWithClock(window time.Duration, capacity int, now func() time.Time) *Tracker {
	return &Tracker{
		marks:    make(map[int64]time.Time),
		window:   window,
		capacity: capacity,
		now:      now,
		stop:     make(chan struct{}),
	}
}

func (t *Tracker) Suppress(accountID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if _, exists := t.marks[accountID]; !exists && t.capacity > 0 && len(t.marks) >= t.capacity {
		t.pruneLocked(now)
		if len(t.marks) >= t.capacity {
			t.evictSoonestLocked()
		}
	}
	t.marks[accountID] = now.Add(t.window)
}

func (t *Tracker) IsSuppressed(accountID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	until, ok := t.marks[accountID]
	return ok && t.now().Before(until)
}

// Len returns the number of marks held, including expired ones not yet swept
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.marks)
}

// Close stops the sweeper
func (t *Tracker) Close() {
	t.once.Do(func() { close(t.stop) })
}

func (t *Tracker) pruneLocked(now time.Time) {
	for id, until := range t.marks {
		if !now.Before(until) {
			delete(t.marks, id)
		}
	}
}

func (t *Tracker) evictSoonestLocked() {
	var victim int64
	var soonest time.Time
	for id, until := range t.marks {
		if soonest.IsZero() || until.Before(soonest) {
			victim, soonest = id, until
		}
	}
	delete(t.marks, victim)
}

// sweep removes expired marks every window
func (t *Tracker) sweep() {
	ticker := time.NewTicker(t.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.mu.Lock()
			t.pruneLocked(t.now())
			t.mu.Unlock()
		case <-t.stop:
			return
		}
	}
}

var _ ports.SuppressionTracker = (*Tracker)(nil)
