package template

import (
	"container/list"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultCacheSize is the number of parsed bodies a Cache keeps when created
// with a non-positive capacity.
const DefaultCacheSize = 256

// Cache memoizes Parse results keyed by the xxhash of the raw body, evicting
// the least recently used entry when full. Parse failures are cached too, so
// a broken template is not re-scanned on every flush.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[uint64]*list.Element
	order    *list.List
}

type cacheEntry struct {
	key  uint64
	body string
	tmpl *ParsedTemplate
	err  error
}

// NewCache creates a cache holding up to capacity parsed templates.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[uint64]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the parsed form of body, parsing it on first use.
func (c *Cache) Get(body string) (*ParsedTemplate, error) {
	key := xxhash.Sum64String(body)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		// Guard against hash collisions.
		if entry.body == body {
			c.order.MoveToFront(elem)
			return entry.tmpl, entry.err
		}
		c.order.Remove(elem)
		delete(c.entries, key)
	}

	tmpl, err := Parse(body)
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, body: body, tmpl: tmpl, err: err})

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}

	return tmpl, err
}

// Len reports the number of cached bodies.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
