package buildings

import (
	"fmt"
	"sync"
	"time"

	"padwatch/models"
)

// registryCache memoizes registry lookups by coordinate bucket. Buildings
// don't move, so a long TTL only exists to pick up registry corrections.
type registryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

type cacheEntry struct {
	building *models.BuildingRecord // nil means a cached miss
	expires  time.Time
}

func newRegistryCache(ttl time.Duration) *registryCache {
	return &registryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// bucketKey collapses coordinates to ~11m precision so listings in the
// same building share a cache slot.
func bucketKey(lat, lng float64) string {
	return fmt.Sprintf("%.4f:%.4f", lat, lng)
}

func (c *registryCache) get(lat, lng float64) (*models.BuildingRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[bucketKey(lat, lng)]
	if !ok || time.Now().After(entry.expires) {
		return nil, false
	}
	return entry.building, true
}

// maxCacheEntries bounds the cache; expired entries are swept lazily
// once the map fills up.
const maxCacheEntries = 4096

func (c *registryCache) set(lat, lng float64, b *models.BuildingRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= maxCacheEntries {
		c.purgeExpiredLocked()
	}
	c.entries[bucketKey(lat, lng)] = cacheEntry{
		building: b,
		expires:  time.Now().Add(c.ttl),
	}
}

// purgeExpiredLocked drops stale entries; the caller holds the write lock.
func (c *registryCache) purgeExpiredLocked() {
	now := time.Now()
	for key, entry := range c.entries {
		if now.After(entry.expires) {
			delete(c.entries, key)
		}
	}
}
