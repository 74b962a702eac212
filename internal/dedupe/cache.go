// ABOUTME: TTL cache for suppressing redelivered transport frames
// ABOUTME: Bounds memory with insertion-order eviction; expiry is swept lazily on insert

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type entry struct {
	at   time.Time
	elem *list.Element
}

// Cache tracks recently seen frame keys so that a rejoin replay or duplicate
// delivery is filtered before it reaches the merge path. Entries expire
// after the TTL and the oldest entry is evicted when the cache is full.
// Expired entries are swept opportunistically; there is no background work.
type Cache struct {
	mu      sync.Mutex
	seen    map[string]*entry
	order   *list.List // keys in insertion order, oldest at front
	ttl     time.Duration
	maxSize int
}

// New creates a cache with the given TTL and maximum size.
func New(ttl time.Duration, maxSize int) *Cache {
	return &Cache{
		seen:    make(map[string]*entry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Seen atomically checks whether key was recorded within the TTL and records
// it if not. Returns true for a duplicate, false for a first sight.
func (c *Cache) Seen(key string) bool {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.seen[key]; ok && now.Sub(e.at) < c.ttl {
		return true
	}

	c.sweepLocked(now)

	if e, ok := c.seen[key]; ok {
		// Expired entry for the same key: refresh in place.
		e.at = now
		c.order.MoveToBack(e.elem)
		return false
	}

	if len(c.seen) >= c.maxSize {
		c.evictOldestLocked()
	}

	elem := c.order.PushBack(key)
	c.seen[key] = &entry{at: now, elem: elem}
	return false
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// sweepLocked drops expired entries from the front of the insertion order.
// Entries are inserted in time order, so the scan stops at the first live one.
func (c *Cache) sweepLocked(now time.Time) {
	for {
		front := c.order.Front()
		if front == nil {
			return
		}
		key, _ := front.Value.(string)
		e := c.seen[key]
		if e == nil || now.Sub(e.at) < c.ttl {
			return
		}
		c.order.Remove(front)
		delete(c.seen, key)
	}
}

func (c *Cache) evictOldestLocked() {
	front := c.order.Front()
	if front == nil {
		return
	}
	key, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.seen, key)
}
