package cache

import (
	"context"
	"sync"
	"time"

	"github.com/geometeo/weather-client/internal/models"
)

// Cache defines the interface for weather report caching implementations.
// Get returns cached data if present and not expired, Set stores data with TTL.
type Cache interface {
	Get(ctx context.Context, key string) (models.WeatherReport, bool, error)
	Set(ctx context.Context, key string, value models.WeatherReport, ttl time.Duration) error
}

// InMemoryCache implements Cache using an in-memory map with TTL-based
// expiration. Expired entries are removed on access; there is no background
// sweep and no size bound; TTL is the only reclamation mechanism.
type InMemoryCache struct {
	mu   sync.Mutex
	data map[string]cacheEntry
}

// cacheEntry stores a cached weather report with its expiration instant.
type cacheEntry struct {
	value     models.WeatherReport
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheEntry),
	}
}

// Get retrieves the cached report for key if present and not expired.
// Returns (report, true, nil) on cache hit, (zero, false, nil) on miss or
// expiration. Expired entries are deleted on access.
func (c *InMemoryCache) Get(ctx context.Context, key string) (models.WeatherReport, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.data[key]
	if !ok {
		return models.WeatherReport{}, false, nil
	}

	if time.Now().After(entry.expiresAt) {
		delete(c.data, key)
		return models.WeatherReport{}, false, nil
	}

	return entry.value, true, nil
}

// Set stores a weather report with the specified TTL, unconditionally
// overwriting any existing entry for the key with a fresh TTL window.
func (c *InMemoryCache) Set(ctx context.Context, key string, value models.WeatherReport, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}
