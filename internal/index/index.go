// Package index defines ordered record indexes and a badger-backed
// implementation of them.
package index

import "github.com/aleksaelezovic/tdbgo/internal/record"

// RangeIndex is an ordered set of records keyed by their key bytes.
//
// A RangeIndex may be read from several goroutines while no writer is
// active; it does not serialize writers itself.
type RangeIndex interface {
	Factory() record.Factory
	// Insert adds r, replacing a record with an equal key. It returns the
	// replaced record, if any.
	Insert(r record.Record) (record.Record, bool, error)
	// Delete removes the record whose key equals key.
	Delete(key []byte) (record.Record, bool, error)
	Find(key []byte) (record.Record, bool, error)
	// Iterator scans [lo, hi) in ascending key order. A nil bound is open.
	Iterator(lo, hi []byte) (Iterator, error)
	Size() (int64, error)
	IsEmpty() (bool, error)
	Sync() error
	Close() error
}

// Iterator walks records in key order.
type Iterator interface {
	Next() bool
	Record() record.Record
	Err() error
	Close() error
}

// All drains an iterator over the whole index.
func All(idx RangeIndex) ([]record.Record, error) {
	it, err := idx.Iterator(nil, nil)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var out []record.Record
	for it.Next() {
		out = append(out, it.Record())
	}
	return out, it.Err()
}
