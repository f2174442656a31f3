// Package cache is a time-bounded, capacity-bounded store of completed fetch
// results keyed by normalized request key. Expiry is absolute (fetchedAt+ttl);
// reads never extend an entry's lifetime. When full, expired entries are
// evicted before the least-recently-used live entry.
package cache

import (
	"container/list"
	"sync"
	"time"

	"marketdata/internal/model"
)

type entry struct {
	key       string
	record    *model.Record
	fetchedAt time.Time
	expiresAt time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List // front = most recently used
	items    map[string]*list.Element

	// now is swappable for expiry tests.
	now func() time.Time
}

// New creates a cache holding at most capacity entries.
func New(capacity int) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
		now:      time.Now,
	}
}

// Get returns a copy of the record stored under key, or ok=false on a miss.
// Expired entries are misses and are removed on sight. A hit refreshes the
// entry's recency but never its TTL.
func (c *Cache) Get(key string) (*model.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	ent := el.Value.(*entry)
	if !c.now().Before(ent.expiresAt) {
		c.remove(el)
		return nil, false
	}
	c.ll.MoveToFront(el)
	return ent.record.Clone(), true
}

// Put stores a copy of rec under key for ttl. An existing entry for the same
// key is replaced with a fresh fetchedAt: there is at most one entry per key.
func (c *Cache) Put(key string, rec *model.Record, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.remove(el)
	}
	ent := &entry{
		key:       key,
		record:    rec.Clone(),
		fetchedAt: now,
		expiresAt: now.Add(ttl),
	}
	c.items[key] = c.ll.PushFront(ent)

	for c.ll.Len() > c.capacity {
		c.evict()
	}
}

// Len returns the current number of entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// evict removes one entry: the oldest expired one if any exist, otherwise
// the least-recently-used. List order already breaks recency ties by age,
// since an older fetchedAt means an earlier position at equal recency.
func (c *Cache) evict() {
	now := c.now()
	for el := c.ll.Back(); el != nil; el = el.Prev() {
		if !now.Before(el.Value.(*entry).expiresAt) {
			c.remove(el)
			return
		}
	}
	if el := c.ll.Back(); el != nil {
		c.remove(el)
	}
}

func (c *Cache) remove(el *list.Element) {
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}
