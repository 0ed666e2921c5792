package cache

// Zero is a cache that never holds anything. It lets callers disable caching
// without branching.
type Zero[K comparable, V any] struct{}

func NewZero[K comparable, V any]() *Zero[K, V] {
	return &Zero[K, V]{}
}

func (z *Zero[K, V]) Get(key K) (V, bool) {
	var zero V
	return zero, false
}

func (z *Zero[K, V]) Put(key K, value V) (V, bool, error) {
	var zero V
	return zero, false, checkValue(value)
}

func (z *Zero[K, V]) Remove(key K) bool                  { return false }
func (z *Zero[K, V]) ContainsKey(key K) bool             { return false }
func (z *Zero[K, V]) Keys() []K                          { return nil }
func (z *Zero[K, V]) Clear()                             {}
func (z *Zero[K, V]) Size() int                          { return 0 }
func (z *Zero[K, V]) SetDropHandler(h DropHandler[K, V]) {}
