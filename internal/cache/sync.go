package cache

import "sync"

// Synchronized serializes every operation on the wrapped cache. Drop
// handlers run while the lock is held and must not call back into the cache.
type Synchronized[K comparable, V any] struct {
	mu    sync.Mutex
	inner Cache[K, V]
}

func NewSynchronized[K comparable, V any](c Cache[K, V]) *Synchronized[K, V] {
	return &Synchronized[K, V]{inner: c}
}

func (s *Synchronized[K, V]) Get(key K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Get(key)
}

func (s *Synchronized[K, V]) Put(key K, value V) (V, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Put(key, value)
}

func (s *Synchronized[K, V]) Remove(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Remove(key)
}

func (s *Synchronized[K, V]) ContainsKey(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.ContainsKey(key)
}

func (s *Synchronized[K, V]) Keys() []K {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Keys()
}

func (s *Synchronized[K, V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Clear()
}

func (s *Synchronized[K, V]) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Size()
}

func (s *Synchronized[K, V]) SetDropHandler(h DropHandler[K, V]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.SetDropHandler(h)
}

// Stats forwards to the wrapped cache when it keeps counters.
func (s *Synchronized[K, V]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.inner.(StatsReporter); ok {
		return r.Stats()
	}
	return Stats{Entries: s.inner.Size()}
}
