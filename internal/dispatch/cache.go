package dispatch

import "github.com/dshills/gesturekit/internal/gesture"

// Cache holds the last update payload of each tag with a change callback.
// It belongs to one execution context and is not safe for concurrent use.
type Cache struct {
	last map[gesture.Tag]gesture.Payload
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{last: make(map[gesture.Tag]gesture.Payload)}
}

// Last returns the cached payload of tag, or nil.
func (c *Cache) Last(tag gesture.Tag) gesture.Payload {
	return c.last[tag]
}

// Store caches p for tag.
func (c *Cache) Store(tag gesture.Tag, p gesture.Payload) {
	c.last[tag] = p
}

// Forget removes the cached payload of tag.
func (c *Cache) Forget(tag gesture.Tag) {
	delete(c.last, tag)
}

// Retain removes every tag for which keep returns false.
func (c *Cache) Retain(keep func(gesture.Tag) bool) {
	for tag := range c.last {
		if !keep(tag) {
			delete(c.last, tag)
		}
	}
}

// Len returns the number of cached tags.
func (c *Cache) Len() int {
	return len(c.last)
}
