package cache

// Loader computes the value for a key that is not cached.
type Loader[K comparable, V any] func(key K) (V, error)

// Getter is a read-through cache: Fetch consults the cache and falls back to
// the loader, caching what it returns.
type Getter[K comparable, V any] struct {
	Cache[K, V]
	load Loader[K, V]
}

func NewGetter[K comparable, V any](c Cache[K, V], load Loader[K, V]) *Getter[K, V] {
	return &Getter[K, V]{Cache: c, load: load}
}

func (g *Getter[K, V]) Fetch(key K) (V, error) {
	if v, ok := g.Cache.Get(key); ok {
		return v, nil
	}
	v, err := g.load(key)
	if err != nil {
		return v, err
	}
	if isNil(v) {
		return v, nil
	}
	if _, _, err := g.Cache.Put(key, v); err != nil {
		return v, err
	}
	return v, nil
}

// Stats forwards to the wrapped cache when it keeps counters.
func (g *Getter[K, V]) Stats() Stats {
	if r, ok := g.Cache.(StatsReporter); ok {
		return r.Stats()
	}
	return Stats{Entries: g.Cache.Size()}
}
