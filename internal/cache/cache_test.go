package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/aleksaelezovic/tdbgo/pkg/store"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dropped struct {
	key   string
	value int
}

func recordDrops[V any](c Cache[string, V], into *[]string) {
	c.SetDropHandler(func(k string, v V) {
		*into = append(*into, fmt.Sprintf("%s=%v", k, v))
	})
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[string, int](3)
	var drops []dropped
	c.SetDropHandler(func(k string, v int) {
		drops = append(drops, dropped{k, v})
	})

	for i, k := range []string{"a", "b", "c"} {
		_, _, err := c.Put(k, i)
		require.NoError(t, err)
	}
	// touch "a" so "b" becomes the oldest
	_, ok := c.Get("a")
	require.True(t, ok)

	_, _, err := c.Put("d", 3)
	require.NoError(t, err)

	require.Len(t, drops, 1)
	assert.Equal(t, dropped{"b", 1}, drops[0])
	_, ok = c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 3, c.Size())
	assert.ElementsMatch(t, []string{"a", "c", "d"}, c.Keys())
}

func TestLRU_PutExistingKeyReturnsPrevious(t *testing.T) {
	c := NewLRU[string, int](2)
	var drops []string
	recordDrops[int](c, &drops)

	_, had, err := c.Put("a", 1)
	require.NoError(t, err)
	assert.False(t, had)

	prev, had, err := c.Put("a", 2)
	require.NoError(t, err)
	assert.True(t, had)
	assert.Equal(t, 1, prev)
	assert.Empty(t, drops)
}

func TestLRU_RemoveDoesNotDrop(t *testing.T) {
	c := NewLRU[string, int](2)
	var drops []string
	recordDrops[int](c, &drops)

	_, _, _ = c.Put("a", 1)
	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))
	assert.Empty(t, drops)

	_, _, _ = c.Put("b", 2)
	_, _, _ = c.Put("c", 3)
	c.Clear()
	assert.Equal(t, []string{"b=2", "c=3"}, drops)
	assert.Equal(t, 0, c.Size())
}

func TestSlot_NoSpuriousDrop(t *testing.T) {
	c := NewSlot[string, int]()
	var drops []string
	recordDrops[int](c, &drops)

	_, _, _ = c.Put("k", 7)
	_, _, _ = c.Put("k", 7)
	assert.Empty(t, drops)
	assert.Equal(t, 1, c.Size())

	_, _, _ = c.Put("j", 8)
	assert.Equal(t, []string{"k=7"}, drops)
	assert.False(t, c.ContainsKey("k"))
	v, ok := c.Get("j")
	assert.True(t, ok)
	assert.Equal(t, 8, v)
}

func TestZero_NeverHolds(t *testing.T) {
	c := NewZero[string, int]()
	_, had, err := c.Put("a", 1)
	require.NoError(t, err)
	assert.False(t, had)
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
	assert.Empty(t, c.Keys())
}

func TestUnbounded_DropsOnRemove(t *testing.T) {
	c := NewUnbounded[string, int]()
	var drops []string
	recordDrops[int](c, &drops)

	for i := 0; i < 100; i++ {
		_, _, err := c.Put(fmt.Sprint(i), i)
		require.NoError(t, err)
	}
	assert.Equal(t, 100, c.Size())
	assert.Empty(t, drops)

	assert.True(t, c.Remove("5"))
	assert.Equal(t, []string{"5=5"}, drops)

	c.Clear()
	assert.Len(t, drops, 100)
	assert.Equal(t, 0, c.Size())
}

func TestNew_PicksVariant(t *testing.T) {
	assert.IsType(t, &Zero[string, int]{}, New[string, int](-1))
	assert.IsType(t, &Zero[string, int]{}, New[string, int](0))
	assert.IsType(t, &Slot[string, int]{}, New[string, int](1))
	assert.IsType(t, &LRU[string, int]{}, New[string, int](10))
}

func TestPut_RejectsAbsentValue(t *testing.T) {
	caches := map[string]Cache[string, *int]{
		"zero":      NewZero[string, *int](),
		"slot":      NewSlot[string, *int](),
		"lru":       NewLRU[string, *int](4),
		"unbounded": NewUnbounded[string, *int](),
	}
	for name, c := range caches {
		t.Run(name, func(t *testing.T) {
			_, _, err := c.Put("k", nil)
			assert.ErrorIs(t, err, store.ErrAbsentValue)
			assert.False(t, c.ContainsKey("k"))
		})
	}

	var slice []byte
	_, _, err := NewLRU[string, []byte](2).Put("k", slice)
	assert.ErrorIs(t, err, store.ErrAbsentValue)
}

func TestStats_CountsHitsMissesEjects(t *testing.T) {
	for name, c := range map[string]*StatsCache[string, int]{
		"plain":  NewStats[string, int](NewLRU[string, int](2)),
		"atomic": NewStatsAtomic[string, int](NewLRU[string, int](2)),
	} {
		t.Run(name, func(t *testing.T) {
			var drops []string
			recordDrops[int](c, &drops)

			_, _, _ = c.Put("a", 1)
			_, _, _ = c.Put("b", 2)
			c.Get("a")
			c.Get("x")
			_, _, _ = c.Put("c", 3)

			s := c.Stats()
			assert.Equal(t, uint64(1), s.Hits)
			assert.Equal(t, uint64(1), s.Misses)
			assert.Equal(t, uint64(1), s.Ejects)
			assert.Equal(t, 2, s.Entries)
			assert.Equal(t, []string{"b=2"}, drops)
		})
	}
}

func TestSynchronized_ConcurrentPuts(t *testing.T) {
	c := NewSynchronized[int, int](NewStatsAtomic[int, int](NewLRU[int, int](64)))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				_, _, _ = c.Put(w*1000+i, i)
				c.Get(w*1000 + i)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 64, c.Size())
	s := c.Stats()
	assert.Equal(t, uint64(8*500), s.Hits+s.Misses)
	assert.Equal(t, uint64(8*500-64), s.Ejects)
}

func TestGetter_LoadsOnMiss(t *testing.T) {
	loads := 0
	g := NewGetter[int, string](NewLRU[int, string](4), func(k int) (string, error) {
		loads++
		if k < 0 {
			return "", fmt.Errorf("negative key %d", k)
		}
		return fmt.Sprint(k * 2), nil
	})

	v, err := g.Fetch(21)
	require.NoError(t, err)
	assert.Equal(t, "42", v)
	v, err = g.Fetch(21)
	require.NoError(t, err)
	assert.Equal(t, "42", v)
	assert.Equal(t, 1, loads)

	_, err = g.Fetch(-1)
	assert.Error(t, err)
	assert.False(t, g.ContainsKey(-1))
}

func TestCollector_ExportsNamedCaches(t *testing.T) {
	lru := NewStats[string, int](NewLRU[string, int](2))
	_, _, _ = lru.Put("a", 1)
	lru.Get("a")

	col := NewCollector()
	col.Add("node2id", lru)
	col.Add("id2node", NewStats[string, int](NewZero[string, int]()))

	assert.Equal(t, []string{"id2node", "node2id"}, col.Names())
	assert.Equal(t, 8, testutil.CollectAndCount(col))
	assert.Equal(t, uint64(1), col.Snapshot()["node2id"].Hits)
}
