package index

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/aleksaelezovic/tdbgo/internal/record"
	badger "github.com/dgraph-io/badger/v4"
)

// KV is a RangeIndex stored as one keyspace of a badger database. Keys are
// the record keys behind the keyspace prefix; values are the record values.
type KV struct {
	db      *badger.DB
	name    string
	prefix  []byte
	factory record.Factory
}

// NewKV creates the named keyspace index. The database is owned by the
// caller and is not closed by Close.
func NewKV(db *badger.DB, name string, f record.Factory) *KV {
	return &KV{
		db:      db,
		name:    name,
		prefix:  append([]byte("idx:"+name), 0x00),
		factory: f,
	}
}

func (x *KV) prefixKey(key []byte) []byte {
	k := make([]byte, 0, len(x.prefix)+len(key))
	k = append(k, x.prefix...)
	return append(k, key...)
}

func (x *KV) Factory() record.Factory {
	return x.factory
}

func (x *KV) Insert(r record.Record) (record.Record, bool, error) {
	if err := x.factory.Check(r); err != nil {
		return record.Record{}, false, err
	}
	var prev record.Record
	var existed bool
	err := x.db.Update(func(txn *badger.Txn) error {
		var err error
		prev, existed, err = x.get(txn, r.Key)
		if err != nil {
			return err
		}
		return txn.Set(x.prefixKey(r.Key), append([]byte{}, r.Value...))
	})
	if err != nil {
		return record.Record{}, false, fmt.Errorf("insert into %s: %w", x.name, err)
	}
	return prev, existed, nil
}

func (x *KV) Delete(key []byte) (record.Record, bool, error) {
	var prev record.Record
	var existed bool
	err := x.db.Update(func(txn *badger.Txn) error {
		var err error
		prev, existed, err = x.get(txn, key)
		if err != nil || !existed {
			return err
		}
		return txn.Delete(x.prefixKey(key))
	})
	if err != nil {
		return record.Record{}, false, fmt.Errorf("delete from %s: %w", x.name, err)
	}
	return prev, existed, nil
}

func (x *KV) Find(key []byte) (record.Record, bool, error) {
	var r record.Record
	var found bool
	err := x.db.View(func(txn *badger.Txn) error {
		var err error
		r, found, err = x.get(txn, key)
		return err
	})
	return r, found, err
}

func (x *KV) get(txn *badger.Txn, key []byte) (record.Record, bool, error) {
	item, err := txn.Get(x.prefixKey(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return record.Record{}, false, nil
	}
	if err != nil {
		return record.Record{}, false, err
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return record.Record{}, false, err
	}
	r, err := x.factory.CreateKV(key, value)
	if err != nil {
		return record.Record{}, false, err
	}
	return r, true, nil
}

func (x *KV) Iterator(lo, hi []byte) (Iterator, error) {
	txn := x.db.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = x.prefix
	opts.PrefetchValues = x.factory.HasValue()

	seekKey := x.prefix
	if lo != nil {
		seekKey = x.prefixKey(lo)
	}
	var endKey []byte
	if hi != nil {
		endKey = x.prefixKey(hi)
	}
	return &kvIterator{
		txn:     txn,
		it:      txn.NewIterator(opts),
		factory: x.factory,
		strip:   len(x.prefix),
		seekKey: seekKey,
		endKey:  endKey,
	}, nil
}

func (x *KV) Size() (int64, error) {
	var n int64
	err := x.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = x.prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (x *KV) IsEmpty() (bool, error) {
	empty := true
	err := x.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = x.prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		it.Rewind()
		empty = !it.Valid()
		return nil
	})
	return empty, err
}

// Sync is a no-op; the database owner syncs.
func (x *KV) Sync() error {
	return nil
}

// Close is a no-op; the database owner closes.
func (x *KV) Close() error {
	return nil
}

type kvIterator struct {
	txn     *badger.Txn
	it      *badger.Iterator
	factory record.Factory
	strip   int
	seekKey []byte
	endKey  []byte
	started bool
	current record.Record
	err     error
	closed  bool
}

// Next advances to the next item
func (i *kvIterator) Next() bool {
	if i.closed || i.err != nil {
		return false
	}
	if !i.started {
		i.it.Seek(i.seekKey)
		i.started = true
	} else {
		i.it.Next()
	}

	if !i.it.Valid() {
		i.current = record.Record{}
		return false
	}
	item := i.it.Item()
	if i.endKey != nil && bytes.Compare(item.Key(), i.endKey) >= 0 {
		i.current = record.Record{}
		return false
	}

	var value []byte
	if i.factory.HasValue() {
		v, err := item.ValueCopy(nil)
		if err != nil {
			i.err = err
			return false
		}
		value = v
	}
	r, err := i.factory.CreateKV(item.Key()[i.strip:], value)
	if err != nil {
		i.err = err
		return false
	}
	i.current = r
	return true
}

func (i *kvIterator) Record() record.Record {
	return i.current
}

func (i *kvIterator) Err() error {
	return i.err
}

// Close closes the iterator
func (i *kvIterator) Close() error {
	if i.closed {
		return nil
	}
	i.closed = true
	i.it.Close()
	i.txn.Discard()
	return nil
}
