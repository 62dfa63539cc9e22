package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is a size-bounded LRU shared by concurrent callers.
type Cache[K comparable, V any] struct {
	cache *lru.Cache[K, V]
}

func New[K comparable, V any](maxSize int) *Cache[K, V] {
	c, err := lru.New[K, V](maxSize)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize LRU cache: %s", err.Error()))
	}
	return &Cache[K, V]{cache: c}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	return c.cache.Get(key)
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.cache.Add(key, value)
}

// Peek reads without touching recency.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	return c.cache.Peek(key)
}

func (c *Cache[K, V]) Remove(key K) {
	c.cache.Remove(key)
}

func (c *Cache[K, V]) Len() int {
	return c.cache.Len()
}

func (c *Cache[K, V]) Purge() {
	c.cache.Purge()
}

// Partition splits keys into cached hits and the misses still to be loaded,
// preserving the input order of misses.
func (c *Cache[K, V]) Partition(keys []K) (hits map[K]V, misses []K) {
	hits = make(map[K]V, len(keys))
	for _, k := range keys {
		if v, ok := c.cache.Get(k); ok {
			hits[k] = v
			continue
		}
		misses = append(misses, k)
	}
	return hits, misses
}
