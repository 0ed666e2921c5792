package block

import (
	"bytes"
	"testing"

	"github.com/aleksaelezovic/tdbgo/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(size int, b byte) []byte {
	return bytes.Repeat([]byte{b}, size)
}

func exerciseMgr(t *testing.T, m Mgr) {
	t.Helper()
	assert.True(t, m.IsEmpty())

	a, err := m.Allocate()
	require.NoError(t, err)
	b, err := m.Allocate()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.False(t, m.IsEmpty())

	_, err = m.Read(a)
	assert.ErrorIs(t, err, store.ErrCorrupt)

	require.NoError(t, m.Write(a, fill(m.BlockSize(), 1)))
	require.NoError(t, m.Write(b, fill(m.BlockSize(), 2)))
	assert.ErrorIs(t, m.Write(a, fill(3, 1)), store.ErrCorrupt)

	got, err := m.Read(a)
	require.NoError(t, err)
	assert.Equal(t, fill(m.BlockSize(), 1), got)

	require.NoError(t, m.Write(a, fill(m.BlockSize(), 9)))
	got, err = m.Read(a)
	require.NoError(t, err)
	assert.Equal(t, fill(m.BlockSize(), 9), got)

	require.NoError(t, m.Free(b))
	_, err = m.Read(b)
	assert.ErrorIs(t, err, store.ErrCorrupt)
	require.NoError(t, m.Sync())
}

func TestMem(t *testing.T) {
	exerciseMgr(t, NewMem("test", 64))
}

func TestBadgerMgr(t *testing.T) {
	s, err := OpenBadger(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	m, err := s.Mgr("SPO.idn", 64)
	require.NoError(t, err)
	exerciseMgr(t, m)

	// a second file in the same store has its own keyspace
	other, err := s.Mgr("SPOG.idn", 64)
	require.NoError(t, err)
	assert.True(t, other.IsEmpty())
}

func TestBadgerMgr_Reopen(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenBadger(dir)
	require.NoError(t, err)
	m, err := s.Mgr("node2id.dat", 32)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		id, err := m.Allocate()
		require.NoError(t, err)
		require.NoError(t, m.Write(id, fill(32, byte(i))))
	}
	require.NoError(t, s.Close())

	s, err = OpenBadger(dir)
	require.NoError(t, err)
	defer s.Close()
	m, err = s.Mgr("node2id.dat", 32)
	require.NoError(t, err)
	got, err := m.Read(4)
	require.NoError(t, err)
	assert.Equal(t, fill(32, 4), got)

	id, err := m.Allocate()
	require.NoError(t, err)
	assert.Equal(t, ID(5), id)
}

func TestCached(t *testing.T) {
	exerciseMgr(t, NewCached(NewMem("test", 64), "test", 4, 4, nil))
	exerciseMgr(t, NewCached(NewMem("test", 64), "test", 0, 0, nil))
}

func TestCached_WriteBehind(t *testing.T) {
	base := NewMem("test", 16)
	c := NewCached(base, "test", 2, 2, nil)

	ids := make([]ID, 3)
	for i := range ids {
		id, err := c.Allocate()
		require.NoError(t, err)
		ids[i] = id
		require.NoError(t, c.Write(id, fill(16, byte(i+1))))
	}

	// the first block was evicted from the write cache and written back
	got, err := base.Read(ids[0])
	require.NoError(t, err)
	assert.Equal(t, fill(16, 1), got)
	_, err = base.Read(ids[2])
	assert.ErrorIs(t, err, store.ErrCorrupt)

	// dirty blocks are visible through the cache before Sync
	got, err = c.Read(ids[2])
	require.NoError(t, err)
	assert.Equal(t, fill(16, 3), got)

	require.NoError(t, c.Sync())
	for i, id := range ids {
		got, err := base.Read(id)
		require.NoError(t, err)
		assert.Equal(t, fill(16, byte(i+1)), got)
	}
	assert.Equal(t, uint64(1), c.WriteStats().Stats().Ejects)
}
