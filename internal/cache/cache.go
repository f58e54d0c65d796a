// Package cache provides a generic map guarded by a read/write lock, plus the
// process wide caches for static file hashes and syntax stylesheets.
package cache

import "sync"

type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		items: make(map[K]V),
	}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.items[key]
	return val, ok
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
}

// Update stores fn(current, ok) at key and returns it. fn runs under the
// write lock and must not call back into the cache.
func (c *Cache[K, V]) Update(key K, fn func(current V, ok bool) V) V {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, ok := c.items[key]
	next := fn(current, ok)
	c.items[key] = next
	return next
}

// Take removes key and returns the value it held.
func (c *Cache[K, V]) Take(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.items[key]
	delete(c.items, key)
	return val, ok
}

// Drain empties the cache and returns what it held.
func (c *Cache[K, V]) Drain() []V {
	c.mu.Lock()
	items := c.items
	c.items = make(map[K]V)
	c.mu.Unlock()

	values := make([]V, 0, len(items))
	for _, v := range items {
		values = append(values, v)
	}
	return values
}

func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Values returns a snapshot of the cached values in no particular order.
func (c *Cache[K, V]) Values() []V {
	c.mu.RLock()
	defer c.mu.RUnlock()
	values := make([]V, 0, len(c.items))
	for _, v := range c.items {
		values = append(values, v)
	}
	return values
}
