package buffer

import (
	"fmt"
	"sync"
)

// Key identifies a cached loop by generation mode and variant (the noise
// color for noise loops, a fixed name for the drone).
type Key struct {
	Mode    string
	Variant string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Mode, k.Variant)
}

// Cache keeps the most recently built loop. Asking for a different key
// drops the previous loop, so a color or mode change invalidates it.
type Cache struct {
	mu     sync.Mutex
	key    Key
	loop   *Loop
	builds int
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Get returns the cached loop for key or builds it. Concurrent callers for
// the same key share one build.
func (c *Cache) Get(key Key, build func() (*Loop, error)) (*Loop, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loop != nil && c.key == key {
		return c.loop, nil
	}

	loop, err := build()
	if err != nil {
		return nil, fmt.Errorf("build loop %s: %w", key, err)
	}
	c.key = key
	c.loop = loop
	c.builds++
	return loop, nil
}

// Invalidate drops the cached loop.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.loop = nil
	c.key = Key{}
	c.mu.Unlock()
}

// Builds returns how many loops the cache has built.
func (c *Cache) Builds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builds
}
