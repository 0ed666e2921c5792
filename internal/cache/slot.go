package cache

// Slot holds at most one entry. Replacing the resident key drops the old
// entry; re-putting the same key does not.
type Slot[K comparable, V any] struct {
	key    K
	value  V
	full   bool
	onDrop DropHandler[K, V]
}

func NewSlot[K comparable, V any]() *Slot[K, V] {
	return &Slot[K, V]{}
}

func (s *Slot[K, V]) Get(key K) (V, bool) {
	if s.full && s.key == key {
		return s.value, true
	}
	var zero V
	return zero, false
}

func (s *Slot[K, V]) Put(key K, value V) (V, bool, error) {
	var prev V
	if err := checkValue(value); err != nil {
		return prev, false, err
	}
	if s.full && s.key == key {
		prev = s.value
		s.value = value
		return prev, true, nil
	}
	if s.full && s.onDrop != nil {
		s.onDrop(s.key, s.value)
	}
	s.key, s.value, s.full = key, value, true
	return prev, false, nil
}

func (s *Slot[K, V]) Remove(key K) bool {
	if !s.full || s.key != key {
		return false
	}
	s.reset()
	return true
}

func (s *Slot[K, V]) ContainsKey(key K) bool {
	return s.full && s.key == key
}

func (s *Slot[K, V]) Keys() []K {
	if !s.full {
		return nil
	}
	return []K{s.key}
}

func (s *Slot[K, V]) Clear() {
	if s.full && s.onDrop != nil {
		s.onDrop(s.key, s.value)
	}
	s.reset()
}

func (s *Slot[K, V]) Size() int {
	if s.full {
		return 1
	}
	return 0
}

func (s *Slot[K, V]) SetDropHandler(h DropHandler[K, V]) {
	s.onDrop = h
}

func (s *Slot[K, V]) reset() {
	var zk K
	var zv V
	s.key, s.value, s.full = zk, zv, false
}
