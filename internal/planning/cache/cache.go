// Package cache provides a bounded, checkout-aware LRU cache for assembled
// planning contexts. An entry handed to a caller is "checked out" and will
// not be returned to a second caller or evicted until released.
package cache

import (
	"container/list"
	"sync"
)

// Key identifies a cached planning context.
type Key struct {
	// ConfigName is the planner configuration name.
	ConfigName string
	// FactoryType is the state space factory type tag.
	FactoryType string
}

// entry is one cached value with its checkout state.
type entry[V any] struct {
	key        Key
	value      V
	checkedOut bool
}

// Cache is a fixed-capacity LRU keyed by (configuration name, factory type).
// All methods are safe for concurrent use; the lookup and the checked-out
// transition happen in one critical section.
type Cache[V comparable] struct {
	mu       sync.Mutex
	capacity int
	items    map[Key]*list.Element
	order    *list.List // front = most recently used

	hits   int64
	misses int64
}

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 16

// New creates a Cache holding at most capacity entries.
func New[V comparable](capacity int) *Cache[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache[V]{
		capacity: capacity,
		items:    make(map[Key]*list.Element, capacity),
		order:    list.New(),
	}
}

// GetOrBuild returns the cached value for key, checked out, or builds a new
// one. A cached value that is currently checked out is not shared: a fresh
// value is built and replaces it as the cached entry for the key once the
// eviction policy allows.
//
// Postcondition: On success the returned value is checked out and will not
// be handed to another caller until Release is called with it.
func (c *Cache[V]) GetOrBuild(key Key, build func() (V, error)) (V, error) {
	c.mu.Lock()
	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*entry[V])
		if !ent.checkedOut {
			ent.checkedOut = true
			c.order.MoveToFront(elem)
			c.hits++
			c.mu.Unlock()
			return ent.value, nil
		}
	}
	c.misses++
	c.mu.Unlock()

	// Build outside the lock: assembly allocates planners and spaces and
	// must never serialise unrelated requests.
	value, err := build()
	if err != nil {
		var zero V
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.insert(key, value)
	return value, nil
}

// insert adds value under key as checked out, evicting the least recently
// used non-checked-out entry when at capacity. When every entry is checked
// out the cache grows past capacity rather than evicting a live context.
// If the key already maps to a checked-out entry, the newer value takes over
// the slot; the old value stays with its current holder until released,
// at which point it is simply dropped.
func (c *Cache[V]) insert(key Key, value V) {
	if elem, ok := c.items[key]; ok {
		c.order.Remove(elem)
		delete(c.items, key)
	}
	if c.order.Len() >= c.capacity {
		c.evictOldest()
	}
	elem := c.order.PushFront(&entry[V]{key: key, value: value, checkedOut: true})
	c.items[key] = elem
}

// evictOldest removes the least recently used entry that is not checked out.
func (c *Cache[V]) evictOldest() {
	for elem := c.order.Back(); elem != nil; elem = elem.Prev() {
		if !elem.Value.(*entry[V]).checkedOut {
			delete(c.items, elem.Value.(*entry[V]).key)
			c.order.Remove(elem)
			return
		}
	}
}

// Release marks the value under key as available for reuse. Releasing a
// value that is no longer the cached entry for its key (it was displaced
// while checked out) drops it. Releasing an unknown or already released
// value is a no-op.
func (c *Cache[V]) Release(key Key, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[key]
	if !ok {
		return
	}
	ent := elem.Value.(*entry[V])
	if ent.value != value {
		// Displaced entry: its slot belongs to a newer context now.
		return
	}
	ent.checkedOut = false
	c.order.MoveToFront(elem)
}

// Len returns the number of cached entries, including checked-out ones.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns cumulative hit and miss counts.
func (c *Cache[V]) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
