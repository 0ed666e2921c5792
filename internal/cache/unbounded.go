package cache

// Unbounded is a plain map with the cache contract. Nothing is ever evicted,
// so its drop handler fires on Remove and Clear instead.
type Unbounded[K comparable, V any] struct {
	items  map[K]V
	onDrop DropHandler[K, V]
}

func NewUnbounded[K comparable, V any]() *Unbounded[K, V] {
	return &Unbounded[K, V]{items: make(map[K]V)}
}

func (c *Unbounded[K, V]) Get(key K) (V, bool) {
	v, ok := c.items[key]
	return v, ok
}

func (c *Unbounded[K, V]) Put(key K, value V) (V, bool, error) {
	if err := checkValue(value); err != nil {
		var zero V
		return zero, false, err
	}
	prev, ok := c.items[key]
	c.items[key] = value
	return prev, ok, nil
}

func (c *Unbounded[K, V]) Remove(key K) bool {
	v, ok := c.items[key]
	if !ok {
		return false
	}
	delete(c.items, key)
	if c.onDrop != nil {
		c.onDrop(key, v)
	}
	return true
}

func (c *Unbounded[K, V]) ContainsKey(key K) bool {
	_, ok := c.items[key]
	return ok
}

func (c *Unbounded[K, V]) Keys() []K {
	keys := make([]K, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	return keys
}

func (c *Unbounded[K, V]) Clear() {
	items := c.items
	c.items = make(map[K]V)
	if c.onDrop == nil {
		return
	}
	for k, v := range items {
		c.onDrop(k, v)
	}
}

func (c *Unbounded[K, V]) Size() int {
	return len(c.items)
}

func (c *Unbounded[K, V]) SetDropHandler(h DropHandler[K, V]) {
	c.onDrop = h
}
