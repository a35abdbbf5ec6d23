// Package modelcache provides the ordinary bounded LRU cache the design
// notes call for around the vid-model selector: the selector itself is
// explicitly out of scope for the core evaluator, but the day-granularity
// cache scaffolding is worth carrying since a production deployment of the
// labeler needs one. Shaped as a condition-cache LRU (container/list
// doubly-linked list + map), re-keyed from expression string to UTC
// calendar day.
package modelcache

import (
	"container/list"
	"sync"

	"github.com/vplabeler/core/pkg/labeler"
)

type entry struct {
	day   string
	model *labeler.Labeler
}

// Cache is a thread-safe, day-keyed LRU cache of built Labelers.
type Cache struct {
	capacity int
	byDay    map[string]*list.Element
	order    *list.List
	mu       sync.RWMutex
}

// New creates a cache holding at most capacity entries; capacity <= 0
// defaults to 30 (a month of daily model releases).
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 30
	}
	return &Cache{
		capacity: capacity,
		byDay:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the model cached for day (a "2006-01-02"-shaped key), if any.
func (c *Cache) Get(day string) (*labeler.Labeler, bool) {
	// A hit reorders the LRU list, so Get takes the write lock.
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.byDay[day]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).model, true
}

// Put caches model under day, evicting the least recently used entry if the
// cache is at capacity.
func (c *Cache) Put(day string, model *labeler.Labeler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.byDay[day]; ok {
		c.order.MoveToFront(el)
		el.Value.(*entry).model = model
		return
	}

	el := c.order.PushFront(&entry{day: day, model: model})
	c.byDay[day] = el

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.byDay, oldest.Value.(*entry).day)
		}
	}
}

// Len returns the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byDay = make(map[string]*list.Element)
	c.order.Init()
}
