// Package book holds the in-memory orderbook cache shared by the venue
// connectors and the detection path. The cache is latest-value-wins: every
// update replaces the stored snapshot for its (venue, instrument) key and
// intermediate states are never replayed.
package book

import (
	"sync"

	"github.com/quantfold/arbot/internal/domain"
)

type bookKey struct {
	venue      string
	instrument domain.Instrument
}

// Cache stores the latest orderbook snapshot per (venue, instrument) and a
// rolling mid-price history per instrument for volatility estimation. All
// methods are safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	books   map[bookKey]domain.OrderbookSnapshot
	history map[domain.Instrument]*midRing
	window  int
}

// NewCache creates a cache whose mid-price history keeps the last window
// samples per instrument.
func NewCache(window int) *Cache {
	if window < 2 {
		window = 2
	}
	return &Cache{
		books:   make(map[bookKey]domain.OrderbookSnapshot),
		history: make(map[domain.Instrument]*midRing),
		window:  window,
	}
}

// Update replaces the stored snapshot for the snapshot's (venue, instrument)
// key and, when the snapshot has both sides, appends its mid-price to the
// instrument's history.
func (c *Cache) Update(snap domain.OrderbookSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.books[bookKey{venue: snap.Venue, instrument: snap.Instrument}] = snap
	if snap.Usable() {
		ring, ok := c.history[snap.Instrument]
		if !ok {
			ring = newMidRing(c.window)
			c.history[snap.Instrument] = ring
		}
		ring.push(snap.MidPrice())
	}
}

// Get returns the latest known snapshot per venue for the instrument. The map
// may be partially populated while venues are still warming up; callers must
// treat a missing venue as "not ready", not as an error.
func (c *Cache) Get(inst domain.Instrument) map[string]domain.OrderbookSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]domain.OrderbookSnapshot)
	for key, snap := range c.books {
		if key.instrument == inst {
			out[key.venue] = snap
		}
	}
	return out
}

// Snapshot returns the latest snapshot for one (venue, instrument) key.
func (c *Cache) Snapshot(venue string, inst domain.Instrument) (domain.OrderbookSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap, ok := c.books[bookKey{venue: venue, instrument: inst}]
	return snap, ok
}

// Volatility returns the standard deviation of percentage returns over the
// instrument's recorded mid-price history. It returns 0 when fewer than two
// samples exist.
func (c *Cache) Volatility(inst domain.Instrument) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ring, ok := c.history[inst]
	if !ok {
		return 0
	}
	return ring.returnsStdDev()
}
