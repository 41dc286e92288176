package cache

import (
	"sync"

	"github.com/damon-houk/rate-history-sync/internal/domain/entity"
)

// RateCache is a thread-safe in-memory map of ISO date to rate snapshot.
// Snapshots are copied on the way in and out.
type RateCache struct {
	entries map[string]entity.RateSnapshot
	mutex   sync.RWMutex
}

// NewRateCache creates an empty rate cache
func NewRateCache() *RateCache {
	return &RateCache{
		entries: make(map[string]entity.RateSnapshot),
	}
}

// Load replaces the cache contents, typically with what the store returned at startup
func (c *RateCache) Load(rates entity.HistoricalRates) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]entity.RateSnapshot, len(rates))
	for date, snapshot := range rates {
		c.entries[date] = snapshot.Clone()
	}
}

// Has reports whether a snapshot is cached for the date
func (c *RateCache) Has(date string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	_, ok := c.entries[date]
	return ok
}

// Get returns the cached snapshot for the date
func (c *RateCache) Get(date string) (entity.RateSnapshot, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	snapshot, ok := c.entries[date]
	if !ok {
		return nil, false
	}
	return snapshot.Clone(), true
}

// Merge stores the snapshot for a date, overwriting any previous one
func (c *RateCache) Merge(date string, snapshot entity.RateSnapshot) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[date] = snapshot.Clone()
}

// Prune removes every entry outside the range and returns how many were removed
func (c *RateCache) Prune(r entity.DateRange) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	removed := 0
	for date := range c.entries {
		if !r.Contains(date) {
			delete(c.entries, date)
			removed++
		}
	}

	return removed
}

// Snapshot returns a deep copy of the whole cache
func (c *RateCache) Snapshot() entity.HistoricalRates {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return entity.HistoricalRates(c.entries).Clone()
}

// Len returns the number of cached dates
func (c *RateCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.entries)
}
