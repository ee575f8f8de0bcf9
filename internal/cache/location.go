// Package cache holds small concurrency-safe lookup caches.
package cache

import (
	"fmt"
	"sync"
)

// LocationCache maps rounded coordinates to their reverse geocoded label.
// Positions closer than the rounding precision share one entry.
type LocationCache struct {
	mu        sync.RWMutex
	precision int
	labels    map[string]string
}

// NewLocationCache creates a LocationCache rounding to precision decimal places.
func NewLocationCache(precision int) *LocationCache {
	if precision < 0 {
		precision = 0
	}
	return &LocationCache{
		precision: precision,
		labels:    make(map[string]string),
	}
}

func (c *LocationCache) key(lat, lng float64) string {
	return fmt.Sprintf("%.*f,%.*f", c.precision, lat, c.precision, lng)
}

// Get retrieves the label for a position
func (c *LocationCache) Get(lat, lng float64) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	label, ok := c.labels[c.key(lat, lng)]
	return label, ok
}

// Set stores the label for a position
func (c *LocationCache) Set(lat, lng float64, label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.labels[c.key(lat, lng)] = label
}

// Delete removes the label for a position
func (c *LocationCache) Delete(lat, lng float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.labels, c.key(lat, lng))
}

// Len returns the number of cached labels
func (c *LocationCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.labels)
}

// Reset clears all labels from the cache
func (c *LocationCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.labels = make(map[string]string)
}
