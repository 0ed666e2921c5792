package tupletable

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/aleksaelezovic/tdbgo/internal/block"
	"github.com/aleksaelezovic/tdbgo/internal/bptree"
	"github.com/aleksaelezovic/tdbgo/internal/encoding"
	"github.com/aleksaelezovic/tdbgo/internal/record"
	"github.com/aleksaelezovic/tdbgo/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wild = encoding.NodeIDAny

func newIndex(t *testing.T, primary, order string) *TupleIndex {
	t.Helper()
	cmap, err := NewColumnMap(primary, order)
	require.NoError(t, err)
	f := record.MustFactory(len(order)*encoding.NodeIDSize, 0)
	p, err := bptree.NewParams(256, 0, f)
	require.NoError(t, err)
	tree, err := bptree.Open(order, p, block.NewMem(order+".idn", 256), block.NewMem(order+".dat", 256))
	require.NoError(t, err)
	ti, err := NewTupleIndex(cmap, tree)
	require.NoError(t, err)
	return ti
}

func newTable(t *testing.T, primary string, orders ...string) *Table {
	t.Helper()
	var idx []*TupleIndex
	for _, o := range orders {
		idx = append(idx, newIndex(t, primary, o))
	}
	tbl, err := NewTable(idx...)
	require.NoError(t, err)
	return tbl
}

func collect(t *testing.T, it *Iterator) []Tuple {
	t.Helper()
	defer it.Close()
	var out []Tuple
	for it.Next() {
		out = append(out, it.Tuple())
	}
	require.NoError(t, it.Err())
	return out
}

func sortTuples(ts []Tuple) []Tuple {
	sort.Slice(ts, func(i, j int) bool {
		for k := range ts[i] {
			if ts[i][k] != ts[j][k] {
				return ts[i][k] < ts[j][k]
			}
		}
		return false
	})
	return ts
}

func TestColumnMap(t *testing.T) {
	m, err := NewColumnMap("SPO", "POS")
	require.NoError(t, err)
	assert.Equal(t, "POS", m.Label())
	assert.Equal(t, 0, m.Slot(1)) // P is first
	assert.Equal(t, 2, m.Slot(0)) // S is last

	logical := Tuple{1, 2, 3}
	phys := m.Map(logical)
	assert.Equal(t, Tuple{2, 3, 1}, phys)
	assert.Equal(t, logical, m.Unmap(phys))

	for _, bad := range []string{"SP", "SPP", "SPX", ""} {
		_, err := NewColumnMap("SPO", bad)
		assert.Error(t, err, bad)
	}
	q, err := NewColumnMap("GSPO", "ospg")
	require.NoError(t, err)
	assert.Equal(t, Tuple{4, 3, 2, 1}, q.Map(Tuple{1, 2, 3, 4}))
}

func TestTupleIndex_FindPatterns(t *testing.T) {
	ti := newIndex(t, "SPO", "POS")
	tuples := []Tuple{{1, 10, 100}, {1, 10, 101}, {2, 10, 100}, {2, 11, 100}, {3, 12, 102}}
	for _, tup := range tuples {
		added, err := ti.Add(tup)
		require.NoError(t, err)
		assert.True(t, added)
	}
	added, err := ti.Add(Tuple{1, 10, 100})
	require.NoError(t, err)
	assert.False(t, added)

	tests := []struct {
		pattern Tuple
		weight  int
		want    []Tuple
	}{
		{Tuple{wild, 10, wild}, 1, []Tuple{{1, 10, 100}, {2, 10, 100}, {1, 10, 101}}},
		{Tuple{wild, 10, 100}, 2, []Tuple{{1, 10, 100}, {2, 10, 100}}},
		{Tuple{2, 10, 100}, 3, []Tuple{{2, 10, 100}}},
		{Tuple{2, wild, wild}, 0, []Tuple{{2, 10, 100}, {2, 11, 100}}},
		{Tuple{1, wild, 101}, 0, []Tuple{{1, 10, 101}}},
		{Tuple{wild, 99, wild}, 1, nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.weight, ti.Weight(tt.pattern), "%s", tt.pattern)
		it, err := ti.Find(tt.pattern)
		require.NoError(t, err)
		assert.Equal(t, tt.want, collect(t, it), "%s", tt.pattern)
	}

	_, err = ti.Add(Tuple{1, 2})
	assert.Error(t, err)
	_, err = ti.Add(Tuple{1, wild, 3})
	assert.Error(t, err)
}

func TestTable_ChooseIndex(t *testing.T) {
	tbl := newTable(t, "SPO", "SPO", "POS", "OSP")
	assert.Equal(t, "SPO", tbl.ChooseIndex(Tuple{1, wild, wild}).Name())
	assert.Equal(t, "POS", tbl.ChooseIndex(Tuple{wild, 1, wild}).Name())
	assert.Equal(t, "OSP", tbl.ChooseIndex(Tuple{wild, wild, 1}).Name())
	assert.Equal(t, "OSP", tbl.ChooseIndex(Tuple{1, wild, 1}).Name())
	assert.Equal(t, "SPO", tbl.ChooseIndex(Tuple{wild, wild, wild}).Name())
	assert.Equal(t, "SPO", tbl.ChooseIndex(Tuple{1, 1, 1}).Name())
}

func TestTable_IndexAgreement(t *testing.T) {
	tbl := newTable(t, "GSPO", "GSPO", "GPOS", "GOSP", "POSG", "OSPG", "SPOG")
	rng := rand.New(rand.NewSource(3))
	ref := map[[4]encoding.NodeID]bool{}

	for step := 0; step < 3000; step++ {
		var k [4]encoding.NodeID
		for i := range k {
			k[i] = encoding.NodeID(rng.Intn(5) + 1)
		}
		tup := Tuple(k[:])
		if rng.Intn(3) > 0 {
			added, err := tbl.Add(tup)
			require.NoError(t, err)
			assert.Equal(t, !ref[k], added)
			ref[k] = true
		} else {
			removed, err := tbl.Remove(tup)
			require.NoError(t, err)
			assert.Equal(t, ref[k], removed)
			delete(ref, k)
		}
	}

	var want []Tuple
	for k := range ref {
		want = append(want, Tuple{k[0], k[1], k[2], k[3]})
	}
	sortTuples(want)
	for _, ti := range tbl.Indexes() {
		it, err := ti.All()
		require.NoError(t, err)
		assert.Equal(t, want, sortTuples(collect(t, it)), "index %s", ti.Name())
	}

	size, err := tbl.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(len(ref)), size)

	// every pattern shape answers the same through the chosen index
	for mask := 0; mask < 16; mask++ {
		pattern := Tuple{1, 2, 3, 4}
		for i := 0; i < 4; i++ {
			if mask&(1<<i) == 0 {
				pattern[i] = wild
			}
		}
		var expect []Tuple
		for _, tup := range want {
			if tup.Matches(pattern) {
				expect = append(expect, tup)
			}
		}
		it, err := tbl.Find(pattern)
		require.NoError(t, err)
		assert.Equal(t, expect, sortTuples(collect(t, it)), "pattern %s", pattern)
	}
}

func TestTable_DetectsDisagreement(t *testing.T) {
	tbl := newTable(t, "SPO", "SPO", "POS", "OSP")
	tup := Tuple{1, 2, 3}

	// the tuple sneaks into a secondary index behind the table's back
	_, err := tbl.Indexes()[1].Add(tup)
	require.NoError(t, err)

	added, err := tbl.Add(tup)
	assert.True(t, added)
	assert.ErrorIs(t, err, store.ErrInconsistentIndexes)

	removed, err := tbl.Remove(Tuple{9, 9, 9})
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestNewTupleIndex_RejectsWrongShape(t *testing.T) {
	cmap, err := NewColumnMap("SPO", "SPO")
	require.NoError(t, err)
	f := record.MustFactory(16, 0)
	p, err := bptree.NewParams(256, 0, f)
	require.NoError(t, err)
	tree, err := bptree.Open("x", p, block.NewMem("x.idn", 256), block.NewMem("x.dat", 256))
	require.NoError(t, err)
	_, err = NewTupleIndex(cmap, tree)
	assert.ErrorIs(t, err, store.ErrConfigInconsistent)
}
