// Package cache provides thread-safe generic caching and the rendered-section
// preview cache.
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

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]V)
}

// Rendered section HTML, keyed by content hash and syntax theme so a theme
// switch never serves stale markup.
var renderedSectionCache = NewCache[string, []byte]()

func GetRenderedSection(contentHash, syntaxTheme string) ([]byte, bool) {
	return renderedSectionCache.Get(contentHash + ":" + syntaxTheme)
}

func SetRenderedSection(contentHash, syntaxTheme string, html []byte) {
	renderedSectionCache.Set(contentHash+":"+syntaxTheme, html)
}

func ClearRenderedSectionCache() {
	renderedSectionCache.Clear()
}
