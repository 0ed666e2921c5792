package nodetable

import (
	"fmt"
	"testing"

	"github.com/aleksaelezovic/tdbgo/internal/block"
	"github.com/aleksaelezovic/tdbgo/internal/bptree"
	"github.com/aleksaelezovic/tdbgo/internal/encoding"
	"github.com/aleksaelezovic/tdbgo/internal/objectfile"
	"github.com/aleksaelezovic/tdbgo/internal/record"
	"github.com/aleksaelezovic/tdbgo/pkg/rdf"
	"github.com/aleksaelezovic/tdbgo/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNative(t *testing.T) *Native {
	t.Helper()
	f := record.MustFactory(encoding.HashSize, encoding.NodeIDSize)
	p, err := bptree.NewParams(1024, 0, f)
	require.NoError(t, err)
	tree, err := bptree.Open("node2id", p, block.NewMem("node2id.idn", 1024), block.NewMem("node2id.dat", 1024))
	require.NoError(t, err)
	n, err := NewNative(tree, objectfile.NewMem())
	require.NoError(t, err)
	return n
}

func sampleTerms() []rdf.Term {
	terms := []rdf.Term{
		rdf.NewNamedNode("http://example.org/a"),
		rdf.NewNamedNode("http://example.org/p"),
		rdf.NewBlankNode("b1"),
		rdf.NewLiteral("lit"),
		rdf.NewLiteral("a plain literal too long to inline"),
		rdf.NewLiteralWithLanguage("chat", "fr"),
		rdf.NewLiteralWithLanguage("chat", "en"),
		rdf.NewLiteralWithDatatype("lit", rdf.XSDString),
		rdf.NewIntegerLiteral(42),
		rdf.NewLiteralWithDatatype("0042", rdf.XSDInteger),
		rdf.NewLiteralWithDatatype("2.50", rdf.XSDDecimal),
		rdf.NewLiteralWithDatatype("2024-01-01", rdf.XSDDate),
		rdf.NewBooleanLiteral(true),
	}
	for i := 0; i < 200; i++ {
		terms = append(terms, rdf.NewNamedNode(fmt.Sprintf("http://example.org/resource/%d", i)))
	}
	return terms
}

func TestNodeTable_Bijection(t *testing.T) {
	nt := New(newNative(t), Sizes{NodeToID: 16, IDToNode: 16, Miss: 8})

	ids := map[encoding.NodeID]rdf.Term{}
	for _, term := range sampleTerms() {
		id, err := nt.NodeIDForNode(term, true)
		require.NoError(t, err)
		if prev, dup := ids[id]; dup {
			t.Fatalf("%s and %s share %s", prev, term, id)
		}
		ids[id] = term
	}

	for id, term := range ids {
		back, err := nt.NodeForNodeID(id)
		require.NoError(t, err)
		assert.True(t, back.Equals(term), "%s resolved to %s", id, back)

		again, err := nt.NodeIDForNode(back, false)
		require.NoError(t, err)
		assert.Equal(t, id, again)
	}
}

func TestNodeTable_NoDuplicateEntries(t *testing.T) {
	native := newNative(t)
	nt := New(native, Sizes{NodeToID: 2, IDToNode: 2, Miss: 2})

	a := rdf.NewNamedNode("http://example.org/a")
	first, err := nt.NodeIDForNode(a, true)
	require.NoError(t, err)
	length := native.Objects().Length()

	// push a out of the tiny caches, then ask again
	for i := 0; i < 10; i++ {
		_, err := nt.NodeIDForNode(rdf.NewNamedNode(fmt.Sprintf("http://example.org/x%d", i)), true)
		require.NoError(t, err)
	}
	grown := native.Objects().Length()
	second, err := nt.NodeIDForNode(rdf.NewNamedNode("http://example.org/a"), true)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, grown, native.Objects().Length())
	assert.Greater(t, grown, length)
}

func TestNodeTable_InlineWritesNothing(t *testing.T) {
	native := newNative(t)
	nt := New(native, Sizes{NodeToID: 16, IDToNode: 16, Miss: 8})

	for _, term := range []rdf.Term{
		rdf.NewIntegerLiteral(-7),
		rdf.NewLiteral("abc"),
		rdf.NewBooleanLiteral(false),
		rdf.NewLiteralWithDatatype("1999-12-31", rdf.XSDDate),
		rdf.NewLiteralWithDatatype("-1.25", rdf.XSDDecimal),
	} {
		id, err := nt.NodeIDForNode(term, true)
		require.NoError(t, err)
		assert.True(t, id.IsInline())
		back, err := nt.NodeForNodeID(id)
		require.NoError(t, err)
		assert.True(t, back.Equals(term))
	}
	assert.Equal(t, int64(0), native.Objects().Length())
	size, err := native.Index().Size()
	require.NoError(t, err)
	assert.Equal(t, int64(0), size)
}

func TestNodeTable_NotFoundAndMissCache(t *testing.T) {
	native := newNative(t)
	c := NewCache(native, Sizes{NodeToID: 4, IDToNode: 4, Miss: 4})
	nt := NewInline(c)

	b := rdf.NewNamedNode("http://example.org/b")
	_, err := nt.NodeIDForNode(b, false)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = nt.NodeIDForNode(b, false)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 1, c.Stats()["nodemiss"].Stats().Entries)

	// creating the term clears its miss entry
	id, err := nt.NodeIDForNode(b, true)
	require.NoError(t, err)
	got, err := nt.NodeIDForNode(b, false)
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, 0, c.Stats()["nodemiss"].Stats().Entries)
}

func TestNodeTable_UnknownID(t *testing.T) {
	native := newNative(t)
	nt := New(native, Sizes{NodeToID: 4, IDToNode: 4, Miss: 4})

	a, err := nt.NodeIDForNode(rdf.NewNamedNode("http://example.org/a"), true)
	require.NoError(t, err)

	bogus, err := encoding.DictionaryID(a.Offset() + 3)
	require.NoError(t, err)
	past, err := encoding.DictionaryID(native.Objects().Length() + 100)
	require.NoError(t, err)

	for _, id := range []encoding.NodeID{bogus, past, encoding.NodeIDAny, encoding.NodeIDNone} {
		_, err := nt.NodeForNodeID(id)
		assert.ErrorIs(t, err, store.ErrUnknownNodeID, "%s", id)
	}

	// an id minted by another dictionary does not resolve here
	other := New(newNative(t), Sizes{})
	for i := 0; i < 3; i++ {
		_, err := other.NodeIDForNode(rdf.NewNamedNode(fmt.Sprintf("http://example.org/other/%d", i)), true)
		require.NoError(t, err)
	}
	foreign, err := other.NodeIDForNode(rdf.NewNamedNode("http://example.org/a-longer-name"), true)
	require.NoError(t, err)
	_, err = nt.NodeForNodeID(foreign)
	assert.ErrorIs(t, err, store.ErrUnknownNodeID)
}

func TestNewNative_RejectsWrongShape(t *testing.T) {
	f := record.MustFactory(8, 0)
	p, err := bptree.NewParams(256, 0, f)
	require.NoError(t, err)
	tree, err := bptree.Open("bad", p, block.NewMem("bad.idn", 256), block.NewMem("bad.dat", 256))
	require.NoError(t, err)
	_, err = NewNative(tree, objectfile.NewMem())
	assert.ErrorIs(t, err, store.ErrConfigInconsistent)
}
