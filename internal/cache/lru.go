package cache

import "container/list"

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

// LRU is a bounded cache that evicts the least recently used entry once
// capacity is exceeded. Both Get and Put count as use.
type LRU[K comparable, V any] struct {
	capacity int
	items    map[K]*list.Element
	order    *list.List // front is most recently used
	onDrop   DropHandler[K, V]
}

func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element, capacity),
		order:    list.New(),
	}
}

func (c *LRU[K, V]) Get(key K) (V, bool) {
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*lruEntry[K, V]).value, true
	}
	var zero V
	return zero, false
}

func (c *LRU[K, V]) Put(key K, value V) (V, bool, error) {
	var prev V
	if err := checkValue(value); err != nil {
		return prev, false, err
	}
	if el, ok := c.items[key]; ok {
		entry := el.Value.(*lruEntry[K, V])
		prev = entry.value
		entry.value = value
		c.order.MoveToFront(el)
		return prev, true, nil
	}
	c.items[key] = c.order.PushFront(&lruEntry[K, V]{key: key, value: value})
	if c.order.Len() > c.capacity {
		c.evictOldest()
	}
	return prev, false, nil
}

func (c *LRU[K, V]) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	entry := c.order.Remove(el).(*lruEntry[K, V])
	delete(c.items, entry.key)
	if c.onDrop != nil {
		c.onDrop(entry.key, entry.value)
	}
}

func (c *LRU[K, V]) Remove(key K) bool {
	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.order.Remove(el)
	delete(c.items, key)
	return true
}

func (c *LRU[K, V]) ContainsKey(key K) bool {
	_, ok := c.items[key]
	return ok
}

// Keys returns the resident keys, most recently used first.
func (c *LRU[K, V]) Keys() []K {
	keys := make([]K, 0, len(c.items))
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*lruEntry[K, V]).key)
	}
	return keys
}

// Clear empties the cache, passing every entry to the drop handler from
// least to most recently used.
func (c *LRU[K, V]) Clear() {
	for c.order.Len() > 0 {
		c.evictOldest()
	}
}

func (c *LRU[K, V]) Size() int {
	return len(c.items)
}

func (c *LRU[K, V]) Capacity() int {
	return c.capacity
}

func (c *LRU[K, V]) SetDropHandler(h DropHandler[K, V]) {
	c.onDrop = h
}
