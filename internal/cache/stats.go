package cache

import "sync/atomic"

// Stats is a point-in-time snapshot of a statistics decorator.
type Stats struct {
	Entries int
	Hits    uint64
	Misses  uint64
	Ejects  uint64
}

// StatsReporter is implemented by caches that keep usage counters.
type StatsReporter interface {
	Stats() Stats
}

type counter interface {
	inc()
	load() uint64
}

type plainCounter struct{ n uint64 }

func (c *plainCounter) inc()         { c.n++ }
func (c *plainCounter) load() uint64 { return c.n }

type atomicCounter struct{ n atomic.Uint64 }

func (c *atomicCounter) inc()         { c.n.Add(1) }
func (c *atomicCounter) load() uint64 { return c.n.Load() }

// StatsCache counts hits, misses and ejects of the wrapped cache.
type StatsCache[K comparable, V any] struct {
	Cache[K, V]
	hits, misses, ejects counter
	onDrop               DropHandler[K, V]
}

// NewStats wraps c with plain counters; it is as thread-unsafe as c.
func NewStats[K comparable, V any](c Cache[K, V]) *StatsCache[K, V] {
	return newStats(c, &plainCounter{}, &plainCounter{}, &plainCounter{})
}

// NewStatsAtomic wraps c with atomic counters so Stats may be read while
// another goroutine uses the cache.
func NewStatsAtomic[K comparable, V any](c Cache[K, V]) *StatsCache[K, V] {
	return newStats(c, &atomicCounter{}, &atomicCounter{}, &atomicCounter{})
}

func newStats[K comparable, V any](c Cache[K, V], hits, misses, ejects counter) *StatsCache[K, V] {
	s := &StatsCache[K, V]{Cache: c, hits: hits, misses: misses, ejects: ejects}
	c.SetDropHandler(s.dropped)
	return s
}

func (s *StatsCache[K, V]) dropped(key K, value V) {
	s.ejects.inc()
	if s.onDrop != nil {
		s.onDrop(key, value)
	}
}

func (s *StatsCache[K, V]) Get(key K) (V, bool) {
	v, ok := s.Cache.Get(key)
	if ok {
		s.hits.inc()
	} else {
		s.misses.inc()
	}
	return v, ok
}

// SetDropHandler registers h behind the eject counter.
func (s *StatsCache[K, V]) SetDropHandler(h DropHandler[K, V]) {
	s.onDrop = h
}

func (s *StatsCache[K, V]) Stats() Stats {
	return Stats{
		Entries: s.Cache.Size(),
		Hits:    s.hits.load(),
		Misses:  s.misses.load(),
		Ejects:  s.ejects.load(),
	}
}
