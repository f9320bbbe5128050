package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/atmoslabs/weather-prediction-service/internal/models"
)

// Cache is the interface weather result caching backends implement. Payloads
// are opaque JSON-encoded bytes; the service layer owns the concrete shapes.
// Get returns the payload only while the entry is fresh, Set unconditionally
// overwrites any existing entry for the key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CurrentKey derives the cache key for current conditions at a coordinate.
// Stable for identical coordinates so repeated queries hit the cache.
func CurrentKey(c models.Coordinate) string {
	return fmt.Sprintf("current:%.4f:%.4f", c.Lat, c.Lon)
}

// ForecastKey derives the cache key for the forecast at a coordinate.
func ForecastKey(c models.Coordinate) string {
	return fmt.Sprintf("forecast:%.4f:%.4f", c.Lat, c.Lon)
}

// InMemoryCache implements Cache with a mutex-guarded map and TTL-based lazy
// expiry: stale entries are removed on access, there is no background sweep.
// Unbounded; entry count is bounded by the distinct coordinates queried.
type InMemoryCache struct {
	mu   sync.Mutex
	data map[string]cacheEntry
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewInMemoryCache creates an empty in-memory cache.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheEntry),
	}
}

// Get returns (payload, true, nil) while the entry is fresh. Expired or
// missing entries behave as a miss; expired entries are deleted on read.
func (c *InMemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.data[key]
	if !ok {
		return nil, false, nil
	}
	if !time.Now().Before(entry.expiresAt) {
		delete(c.data, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set stores value under key, overwriting any existing entry. The entry
// expires ttl after the write.
func (c *InMemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Len returns the number of entries currently held, including any not yet
// lazily expired. For tests and diagnostics.
func (c *InMemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
