package tupletable

import (
	"fmt"

	"github.com/aleksaelezovic/tdbgo/pkg/store"
)

// Table holds the same set of tuples in several indexes. The first index is
// the primary: it decides whether a tuple is new, and every other index must
// agree.
type Table struct {
	indexes []*TupleIndex
}

func NewTable(indexes ...*TupleIndex) (*Table, error) {
	if len(indexes) == 0 {
		return nil, fmt.Errorf("tuple table needs at least one index")
	}
	n := indexes[0].cmap.Len()
	for _, ti := range indexes[1:] {
		if ti.cmap.Len() != n || ti.cmap.Primary() != indexes[0].cmap.Primary() {
			return nil, fmt.Errorf("index %s does not match primary %s", ti.cmap, indexes[0].cmap)
		}
	}
	return &Table{indexes: indexes}, nil
}

func (t *Table) Columns() int {
	return t.indexes[0].cmap.Len()
}

func (t *Table) Indexes() []*TupleIndex {
	return t.indexes
}

// Add stores tup in every index. A sibling that already held a tuple the
// primary did not is reported as ErrInconsistentIndexes.
func (t *Table) Add(tup Tuple) (bool, error) {
	added, err := t.indexes[0].Add(tup)
	if err != nil || !added {
		return false, err
	}
	for _, ti := range t.indexes[1:] {
		ok, err := ti.Add(tup)
		if err != nil {
			return true, fmt.Errorf("%w: add %s to %s: %v", store.ErrInconsistentIndexes, tup, ti.Name(), err)
		}
		if !ok {
			return true, fmt.Errorf("%w: %s already held %s", store.ErrInconsistentIndexes, ti.Name(), tup)
		}
	}
	return true, nil
}

// Remove deletes tup from every index.
func (t *Table) Remove(tup Tuple) (bool, error) {
	removed, err := t.indexes[0].Remove(tup)
	if err != nil || !removed {
		return false, err
	}
	for _, ti := range t.indexes[1:] {
		ok, err := ti.Remove(tup)
		if err != nil {
			return true, fmt.Errorf("%w: remove %s from %s: %v", store.ErrInconsistentIndexes, tup, ti.Name(), err)
		}
		if !ok {
			return true, fmt.Errorf("%w: %s did not hold %s", store.ErrInconsistentIndexes, ti.Name(), tup)
		}
	}
	return true, nil
}

func (t *Table) Contains(tup Tuple) (bool, error) {
	return t.indexes[0].Contains(tup)
}

// ChooseIndex returns the index binding the most leading columns of
// pattern. Ties go to the earlier index.
func (t *Table) ChooseIndex(pattern Tuple) *TupleIndex {
	best, weight := t.indexes[0], t.indexes[0].Weight(pattern)
	for _, ti := range t.indexes[1:] {
		if w := ti.Weight(pattern); w > weight {
			best, weight = ti, w
		}
	}
	return best
}

func (t *Table) Find(pattern Tuple) (*Iterator, error) {
	if len(pattern) != t.Columns() {
		return nil, fmt.Errorf("pattern %s has %d columns, want %d", pattern, len(pattern), t.Columns())
	}
	return t.ChooseIndex(pattern).Find(pattern)
}

func (t *Table) Size() (int64, error) {
	return t.indexes[0].Size()
}

func (t *Table) Sync() error {
	for _, ti := range t.indexes {
		if err := ti.Sync(); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) Close() error {
	var first error
	for _, ti := range t.indexes {
		if err := ti.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
