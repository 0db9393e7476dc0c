package utils

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheItem pairs a value with its expiry.
type cacheItem[V any] struct {
	data      V
	expiresAt time.Time
}

// TTLCache is a size-bounded LRU cache whose entries also expire.
type TTLCache[V any] struct {
	lruCache *lru.Cache[string, cacheItem[V]]
	now      func() time.Time
}

func NewTTLCache[V any](size int) (*TTLCache[V], error) {
	l, err := lru.New[string, cacheItem[V]](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	return &TTLCache[V]{lruCache: l, now: time.Now}, nil
}

// Set stores data for ttl.
func (c *TTLCache[V]) Set(key string, data V, ttl time.Duration) {
	c.lruCache.Add(key, cacheItem[V]{
		data:      data,
		expiresAt: c.now().Add(ttl),
	})
}

// Get reports false for missing or expired keys.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	val, ok := c.lruCache.Get(key)
	if !ok {
		var zero V
		return zero, false
	}

	if c.now().After(val.expiresAt) {
		c.lruCache.Remove(key)
		var zero V
		return zero, false
	}

	return val.data, true
}

func (c *TTLCache[V]) Delete(key string) {
	c.lruCache.Remove(key)
}
