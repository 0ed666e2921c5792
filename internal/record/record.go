// Package record defines the fixed-width key(+value) byte tuples stored in
// every range index.
package record

import (
	"bytes"
	"fmt"

	"github.com/aleksaelezovic/tdbgo/pkg/store"
)

// Record is a key part followed by an optional value part. Records are
// ordered by their key bytes only.
type Record struct {
	Key   []byte
	Value []byte
}

// IsZero reports whether r is the empty record returned for "no record".
func (r Record) IsZero() bool {
	return r.Key == nil
}

// Bytes returns key and value concatenated.
func (r Record) Bytes() []byte {
	b := make([]byte, 0, len(r.Key)+len(r.Value))
	b = append(b, r.Key...)
	return append(b, r.Value...)
}

func (r Record) String() string {
	if len(r.Value) == 0 {
		return fmt.Sprintf("[%x]", r.Key)
	}
	return fmt.Sprintf("[%x -> %x]", r.Key, r.Value)
}

// Compare orders records by key bytes.
func Compare(a, b Record) int {
	return bytes.Compare(a.Key, b.Key)
}

// Factory fixes the shape of records. Every index over records of one shape
// must use an equal Factory.
type Factory struct {
	keyLen   int
	valueLen int
}

func NewFactory(keyLen, valueLen int) (Factory, error) {
	if keyLen <= 0 || valueLen < 0 {
		return Factory{}, fmt.Errorf("invalid record shape %d,%d", keyLen, valueLen)
	}
	return Factory{keyLen: keyLen, valueLen: valueLen}, nil
}

// MustFactory is NewFactory for shapes known to be valid.
func MustFactory(keyLen, valueLen int) Factory {
	f, err := NewFactory(keyLen, valueLen)
	if err != nil {
		panic(err)
	}
	return f
}

func (f Factory) KeyLen() int   { return f.keyLen }
func (f Factory) ValueLen() int { return f.valueLen }
func (f Factory) RecordLen() int {
	return f.keyLen + f.valueLen
}

func (f Factory) HasValue() bool {
	return f.valueLen > 0
}

// Create returns a zero-filled record of this shape.
func (f Factory) Create() Record {
	b := make([]byte, f.RecordLen())
	r := Record{Key: b[:f.keyLen:f.keyLen]}
	if f.valueLen > 0 {
		r.Value = b[f.keyLen:]
	}
	return r
}

// CreateKey builds a record from a key, leaving any value part zeroed.
func (f Factory) CreateKey(key []byte) (Record, error) {
	return f.CreateKV(key, nil)
}

// CreateKV builds a record from a key and value. A nil value is allowed and
// zero-fills the value part.
func (f Factory) CreateKV(key, value []byte) (Record, error) {
	if len(key) != f.keyLen {
		return Record{}, store.Corruptf("record", "key length %d, want %d", len(key), f.keyLen)
	}
	if value != nil && len(value) != f.valueLen {
		return Record{}, store.Corruptf("record", "value length %d, want %d", len(value), f.valueLen)
	}
	r := f.Create()
	copy(r.Key, key)
	if f.valueLen > 0 {
		copy(r.Value, value)
	}
	return r, nil
}

// FromBytes slices a raw buffer of exactly RecordLen bytes into a record.
// The buffer is copied.
func (f Factory) FromBytes(b []byte) (Record, error) {
	if len(b) != f.RecordLen() {
		return Record{}, store.Corruptf("record", "record length %d, want %d", len(b), f.RecordLen())
	}
	r := f.Create()
	copy(r.Key, b[:f.keyLen])
	if f.valueLen > 0 {
		copy(r.Value, b[f.keyLen:])
	}
	return r, nil
}

// Check reports whether r has this factory's shape.
func (f Factory) Check(r Record) error {
	if len(r.Key) != f.keyLen || len(r.Value) != f.valueLen {
		return store.Corruptf("record", "record shape %d,%d, want %d,%d",
			len(r.Key), len(r.Value), f.keyLen, f.valueLen)
	}
	return nil
}

func (f Factory) String() string {
	return fmt.Sprintf("%d,%d", f.keyLen, f.valueLen)
}
