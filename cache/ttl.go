package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// TTLCache is an LRU whose entries also expire after a fixed duration.
// Concurrent loads of the same key run once.
type TTLCache[V any] struct {
	cache *expirable.LRU[string, V]
	group singleflight.Group
	onHit func(hit bool)
}

func NewTTL[V any](maxSize int, ttl time.Duration) *TTLCache[V] {
	return &TTLCache[V]{cache: expirable.NewLRU[string, V](maxSize, nil, ttl)}
}

// WithObserver reports every lookup as a hit or a miss.
func (c *TTLCache[V]) WithObserver(fn func(hit bool)) *TTLCache[V] {
	c.onHit = fn
	return c
}

func (c *TTLCache[V]) Get(key string) (V, bool) {
	v, ok := c.cache.Get(key)
	if c.onHit != nil {
		c.onHit(ok)
	}
	return v, ok
}

func (c *TTLCache[V]) Set(key string, value V) {
	c.cache.Add(key, value)
}

// Load returns the cached value or calls load once for all concurrent
// callers of key. The value is stored only when load reports it cacheable.
func (c *TTLCache[V]) Load(key string, load func() (V, bool, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	res, err, _ := c.group.Do(key, func() (any, error) {
		v, cacheable, err := load()
		if err == nil && cacheable {
			c.cache.Add(key, v)
		}
		return v, err
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

func (c *TTLCache[V]) Len() int {
	return c.cache.Len()
}
