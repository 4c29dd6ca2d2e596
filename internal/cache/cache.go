package cache

import (
	"context"
	"sync"
	"time"

	"adminbot/pkg/logger"

	"golang.org/x/sync/singleflight"
)

type FetchFunc func(ctx context.Context) (interface{}, error)

type entry struct {
	value     interface{}
	fetchedAt time.Time
}

// Cache is a keyed read-through cache for API reads. Concurrent fetches of
// one key collapse into a single request. There is no hard TTL: after the
// staleness window a hit still serves the cached value but kicks off a
// background refresh, so the next access sees fresh data.
type Cache struct {
	staleAfter time.Duration
	log        logger.ILogger

	mu      sync.RWMutex
	entries map[string]entry

	group singleflight.Group
}

func New(staleAfter time.Duration, log logger.ILogger) *Cache {
	return &Cache{
		staleAfter: staleAfter,
		log:        log,
		entries:    make(map[string]entry),
	}
}

func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch FetchFunc) (interface{}, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		if time.Since(e.fetchedAt) > c.staleAfter {
			go c.refresh(key, fetch)
		}
		return e.value, nil
	}

	value, err, _ := c.group.Do(key, func() (interface{}, error) {
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, value)
		return value, nil
	})
	return value, err
}

// Set seeds a key directly, e.g. with the user returned by a login response.
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, fetchedAt: time.Now()}
	c.mu.Unlock()
}

// Invalidate drops the given keys so the next read refetches.
func (c *Cache) Invalidate(keys ...string) {
	c.mu.Lock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	c.mu.Unlock()
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

func (c *Cache) refresh(key string, fetch FetchFunc) {
	_, err, _ := c.group.Do(key, func() (interface{}, error) {
		value, err := fetch(context.Background())
		if err != nil {
			return nil, err
		}
		c.Set(key, value)
		return value, nil
	})
	if err != nil {
		// Keep serving the stale value; the refresh retries on next access.
		c.log.Warning("background refresh failed", logger.String("key", key), logger.Error(err))
	}
}
