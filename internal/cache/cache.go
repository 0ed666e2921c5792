// Package cache provides small generic key/value caches with an eviction
// callback, plus decorators for statistics, locking and read-through loading.
package cache

import (
	"reflect"

	"github.com/aleksaelezovic/tdbgo/pkg/store"
)

// DropHandler is called with an entry that leaves a cache through capacity
// eviction or Clear. Only one handler is registered at a time; setting a new
// one replaces the previous.
type DropHandler[K comparable, V any] func(key K, value V)

// Cache is the common contract of every cache variant.
//
// Implementations other than the synchronized decorator are not safe for
// concurrent use.
type Cache[K comparable, V any] interface {
	// Get returns the cached value and whether it was present.
	Get(key K) (V, bool)
	// Put stores value under key and returns the previous value, if any.
	// A nil value is rejected with store.ErrAbsentValue.
	Put(key K, value V) (V, bool, error)
	// Remove deletes key and reports whether it was present.
	Remove(key K) bool
	ContainsKey(key K) bool
	// Keys returns a snapshot of the resident keys.
	Keys() []K
	Clear()
	Size() int
	SetDropHandler(h DropHandler[K, V])
}

// New picks a variant by capacity: caching is disabled for sizes below one,
// a single slot is used for size one, and an LRU otherwise.
func New[K comparable, V any](size int) Cache[K, V] {
	switch {
	case size <= 0:
		return NewZero[K, V]()
	case size == 1:
		return NewSlot[K, V]()
	default:
		return NewLRU[K, V](size)
	}
}

func checkValue[V any](value V) error {
	if isNil(value) {
		return store.ErrAbsentValue
	}
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan,
		reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}
