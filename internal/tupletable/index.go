package tupletable

import (
	"fmt"

	"github.com/aleksaelezovic/tdbgo/internal/encoding"
	"github.com/aleksaelezovic/tdbgo/internal/index"
	"github.com/aleksaelezovic/tdbgo/internal/record"
	"github.com/aleksaelezovic/tdbgo/pkg/store"
)

// TupleIndex stores tuples in one physical column order. It knows nothing
// of its sibling indexes; the owning Table keeps them in step.
type TupleIndex struct {
	cmap  ColumnMap
	index index.RangeIndex
}

// NewTupleIndex wraps idx, whose records must be keys of one node id per
// column and no value.
func NewTupleIndex(cmap ColumnMap, idx index.RangeIndex) (*TupleIndex, error) {
	f := idx.Factory()
	if f.KeyLen() != cmap.Len()*encoding.NodeIDSize || f.HasValue() {
		return nil, store.ConfigErrorf("index %s has records %s, want %d,0",
			cmap.Label(), f, cmap.Len()*encoding.NodeIDSize)
	}
	return &TupleIndex{cmap: cmap, index: idx}, nil
}

func (ti *TupleIndex) Name() string { return ti.cmap.Label() }

func (ti *TupleIndex) ColumnMap() ColumnMap { return ti.cmap }

func (ti *TupleIndex) RangeIndex() index.RangeIndex { return ti.index }

func (ti *TupleIndex) key(t Tuple) ([]byte, error) {
	if len(t) != ti.cmap.Len() {
		return nil, fmt.Errorf("index %s: tuple %s has %d columns, want %d", ti.Name(), t, len(t), ti.cmap.Len())
	}
	phys := ti.cmap.Map(t)
	key := make([]byte, len(phys)*encoding.NodeIDSize)
	for i, id := range phys {
		if id.IsSpecial() {
			return nil, fmt.Errorf("index %s: tuple %s has a wildcard", ti.Name(), t)
		}
		encoding.PutNodeID(key[i*encoding.NodeIDSize:], id)
	}
	return key, nil
}

func (ti *TupleIndex) decode(r record.Record) Tuple {
	phys := make(Tuple, ti.cmap.Len())
	for i := range phys {
		phys[i] = encoding.GetNodeID(r.Key[i*encoding.NodeIDSize:])
	}
	return ti.cmap.Unmap(phys)
}

// Add stores t and reports whether it was new.
func (ti *TupleIndex) Add(t Tuple) (bool, error) {
	key, err := ti.key(t)
	if err != nil {
		return false, err
	}
	r, err := ti.index.Factory().CreateKey(key)
	if err != nil {
		return false, err
	}
	_, existed, err := ti.index.Insert(r)
	if err != nil {
		return false, fmt.Errorf("index %s: %w", ti.Name(), err)
	}
	return !existed, nil
}

// Remove deletes t and reports whether it was present.
func (ti *TupleIndex) Remove(t Tuple) (bool, error) {
	key, err := ti.key(t)
	if err != nil {
		return false, err
	}
	_, existed, err := ti.index.Delete(key)
	if err != nil {
		return false, fmt.Errorf("index %s: %w", ti.Name(), err)
	}
	return existed, nil
}

func (ti *TupleIndex) Contains(t Tuple) (bool, error) {
	key, err := ti.key(t)
	if err != nil {
		return false, err
	}
	_, found, err := ti.index.Find(key)
	return found, err
}

// Weight is the number of leading physical columns the pattern binds.
func (ti *TupleIndex) Weight(pattern Tuple) int {
	phys := ti.cmap.Map(pattern)
	n := 0
	for _, id := range phys {
		if id == encoding.NodeIDAny {
			break
		}
		n++
	}
	return n
}

// Find scans the tuples matching pattern, in this index's physical order.
// Leading bound columns become a key range; later bound columns are
// checked on each record.
func (ti *TupleIndex) Find(pattern Tuple) (*Iterator, error) {
	if len(pattern) != ti.cmap.Len() {
		return nil, fmt.Errorf("index %s: pattern %s has %d columns, want %d", ti.Name(), pattern, len(pattern), ti.cmap.Len())
	}
	phys := ti.cmap.Map(pattern)
	lead := ti.Weight(pattern)

	var lo, hi []byte
	if lead > 0 {
		lo = make([]byte, lead*encoding.NodeIDSize)
		for i := 0; i < lead; i++ {
			encoding.PutNodeID(lo[i*encoding.NodeIDSize:], phys[i])
		}
		hi = successor(lo)
	}
	it, err := ti.index.Iterator(lo, hi)
	if err != nil {
		return nil, err
	}

	var filter Tuple
	for _, id := range phys[lead:] {
		if id != encoding.NodeIDAny {
			filter = pattern
			break
		}
	}
	return &Iterator{ti: ti, it: it, filter: filter}, nil
}

// All scans every tuple.
func (ti *TupleIndex) All() (*Iterator, error) {
	return ti.Find(AnyTuple(ti.cmap.Len()))
}

func (ti *TupleIndex) Size() (int64, error) {
	return ti.index.Size()
}

func (ti *TupleIndex) Sync() error  { return ti.index.Sync() }
func (ti *TupleIndex) Close() error { return ti.index.Close() }

// successor returns the smallest key greater than every key starting with
// prefix, or nil when there is none.
func successor(prefix []byte) []byte {
	hi := append([]byte(nil), prefix...)
	for i := len(hi) - 1; i >= 0; i-- {
		if hi[i] != 0xFF {
			hi[i]++
			return hi[:i+1]
		}
	}
	return nil
}

// Iterator yields logical tuples from one index.
type Iterator struct {
	ti      *TupleIndex
	it      index.Iterator
	filter  Tuple
	current Tuple
	err     error
}

func (i *Iterator) Next() bool {
	for i.it.Next() {
		t := i.ti.decode(i.it.Record())
		if i.filter != nil && !t.Matches(i.filter) {
			continue
		}
		i.current = t
		return true
	}
	i.err = i.it.Err()
	i.current = nil
	return false
}

// Tuple returns the current tuple in logical order.
func (i *Iterator) Tuple() Tuple {
	return i.current
}

func (i *Iterator) Err() error {
	return i.err
}

func (i *Iterator) Close() error {
	return i.it.Close()
}
