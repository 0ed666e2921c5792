// Package bptree implements a block-encoded B+Tree range index. Branch nodes
// live in one block file and leaf (record) blocks in another; the root branch
// is always block 0 of the branch file.
package bptree

import (
	"bytes"
	"fmt"

	"github.com/aleksaelezovic/tdbgo/internal/block"
	"github.com/aleksaelezovic/tdbgo/internal/index"
	"github.com/aleksaelezovic/tdbgo/internal/record"
	"github.com/aleksaelezovic/tdbgo/pkg/store"
)

const rootID block.ID = 0

func compareKeys(a, b []byte) int {
	return bytes.Compare(a, b)
}

// Tree is a B+Tree over records of one shape.
type Tree struct {
	name   string
	params Params
	idn    block.Mgr
	dat    block.Mgr
}

var _ index.RangeIndex = (*Tree)(nil)

type split struct {
	key   []byte
	right block.ID
}

// Open attaches a tree to its branch (idn) and record (dat) block files,
// formatting them when they are empty.
func Open(name string, params Params, idn, dat block.Mgr) (*Tree, error) {
	if idn.BlockSize() != params.BlockSize || dat.BlockSize() != params.BlockSize {
		return nil, store.ConfigErrorf("%s: block managers use %d/%d byte blocks, tree expects %d",
			name, idn.BlockSize(), dat.BlockSize(), params.BlockSize)
	}
	t := &Tree{name: name, params: params, idn: idn, dat: dat}

	if idn.IsEmpty() {
		if err := t.format(); err != nil {
			return nil, fmt.Errorf("format %s: %w", name, err)
		}
		return t, nil
	}
	if _, err := t.readBranch(rootID); err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return t, nil
}

func (t *Tree) format() error {
	id, err := t.idn.Allocate()
	if err != nil {
		return err
	}
	if id != rootID {
		return store.Corruptf(t.name, "root allocated at block %d", id)
	}
	lf, err := t.newLeaf(nil, block.NoBlock)
	if err != nil {
		return err
	}
	if err := t.writeLeaf(lf); err != nil {
		return err
	}
	return t.writeBranch(&branch{id: rootID, leafChildren: true, ptrs: []block.ID{lf.id}})
}

func (t *Tree) Name() string {
	return t.name
}

func (t *Tree) Params() Params {
	return t.params
}

func (t *Tree) Factory() record.Factory {
	return t.params.Factory
}

// Find returns the record whose key equals key.
func (t *Tree) Find(key []byte) (record.Record, bool, error) {
	lf, err := t.findLeaf(key)
	if err != nil {
		return record.Record{}, false, err
	}
	i, found := lf.search(key)
	if !found {
		return record.Record{}, false, nil
	}
	return lf.recs[i], true, nil
}

// findLeaf descends to the leaf whose range holds key. A nil key selects
// the leftmost leaf.
func (t *Tree) findLeaf(key []byte) (*leaf, error) {
	b, err := t.readBranch(rootID)
	if err != nil {
		return nil, err
	}
	for {
		i := 0
		if key != nil {
			i = b.childIndex(key)
		}
		if b.leafChildren {
			return t.readLeaf(b.ptrs[i])
		}
		if b, err = t.readBranch(b.ptrs[i]); err != nil {
			return nil, err
		}
	}
}

// Insert adds r or replaces the record with the same key.
func (t *Tree) Insert(r record.Record) (record.Record, bool, error) {
	if err := t.params.Factory.Check(r); err != nil {
		return record.Record{}, false, err
	}
	root, err := t.readBranch(rootID)
	if err != nil {
		return record.Record{}, false, err
	}
	prev, existed, _, err := t.insertBranch(root, r)
	return prev, existed, err
}

func (t *Tree) insertBranch(b *branch, r record.Record) (record.Record, bool, *split, error) {
	i := b.childIndex(r.Key)

	var (
		prev    record.Record
		existed bool
		sp      *split
		err     error
	)
	if b.leafChildren {
		var lf *leaf
		if lf, err = t.readLeaf(b.ptrs[i]); err != nil {
			return prev, false, nil, err
		}
		prev, existed, sp, err = t.insertLeaf(lf, r)
	} else {
		var child *branch
		if child, err = t.readBranch(b.ptrs[i]); err != nil {
			return prev, false, nil, err
		}
		prev, existed, sp, err = t.insertBranch(child, r)
	}
	if err != nil || sp == nil {
		return prev, existed, nil, err
	}

	b.insertAt(i, sp.key, sp.right)
	if len(b.keys) <= t.params.MaxKeys() {
		return prev, existed, nil, t.writeBranch(b)
	}
	sp, err = t.splitBranch(b)
	return prev, existed, sp, err
}

func (t *Tree) insertLeaf(lf *leaf, r record.Record) (record.Record, bool, *split, error) {
	i, found := lf.search(r.Key)
	if found {
		prev := lf.recs[i]
		lf.recs[i] = r
		return prev, true, nil, t.writeLeaf(lf)
	}
	lf.insertAt(i, r)
	if len(lf.recs) <= t.params.LeafCapacity() {
		return record.Record{}, false, nil, t.writeLeaf(lf)
	}

	mid := len(lf.recs) / 2
	right, err := t.newLeaf(append([]record.Record(nil), lf.recs[mid:]...), lf.next)
	if err != nil {
		return record.Record{}, false, nil, err
	}
	lf.recs = lf.recs[:mid]
	lf.next = right.id
	if err := t.writeLeaf(right); err != nil {
		return record.Record{}, false, nil, err
	}
	if err := t.writeLeaf(lf); err != nil {
		return record.Record{}, false, nil, err
	}
	sep := append([]byte(nil), right.recs[0].Key...)
	return record.Record{}, false, &split{key: sep, right: right.id}, nil
}

// splitBranch splits an overfull branch around its middle key. The root
// stays at block 0: its halves move to two new blocks and it becomes their
// parent, so the tree grows by one level and no split is returned.
func (t *Tree) splitBranch(b *branch) (*split, error) {
	mid := len(b.keys) / 2
	sep := b.keys[mid]
	rightKeys := append([][]byte(nil), b.keys[mid+1:]...)
	rightPtrs := append([]block.ID(nil), b.ptrs[mid+1:]...)
	leftKeys := append([][]byte(nil), b.keys[:mid]...)
	leftPtrs := append([]block.ID(nil), b.ptrs[:mid+1]...)

	right, err := t.newBranch(b.leafChildren, rightKeys, rightPtrs)
	if err != nil {
		return nil, err
	}
	if err := t.writeBranch(right); err != nil {
		return nil, err
	}

	if b.id == rootID {
		left, err := t.newBranch(b.leafChildren, leftKeys, leftPtrs)
		if err != nil {
			return nil, err
		}
		if err := t.writeBranch(left); err != nil {
			return nil, err
		}
		b.leafChildren = false
		b.keys = [][]byte{sep}
		b.ptrs = []block.ID{left.id, right.id}
		return nil, t.writeBranch(b)
	}

	b.keys, b.ptrs = leftKeys, leftPtrs
	if err := t.writeBranch(b); err != nil {
		return nil, err
	}
	return &split{key: sep, right: right.id}, nil
}

// Iterator scans [lo, hi) lazily, one leaf block at a time.
func (t *Tree) Iterator(lo, hi []byte) (index.Iterator, error) {
	lf, err := t.findLeaf(lo)
	if err != nil {
		return nil, err
	}
	pos := 0
	if lo != nil {
		pos, _ = lf.search(lo)
	}
	return &iterator{tree: t, leaf: lf, pos: pos, hi: hi}, nil
}

// Size counts the records by walking the leaf chain.
func (t *Tree) Size() (int64, error) {
	lf, err := t.findLeaf(nil)
	if err != nil {
		return 0, err
	}
	var n int64
	for {
		n += int64(len(lf.recs))
		if lf.next == block.NoBlock {
			return n, nil
		}
		if lf, err = t.readLeaf(lf.next); err != nil {
			return 0, err
		}
	}
}

func (t *Tree) IsEmpty() (bool, error) {
	it, err := t.Iterator(nil, nil)
	if err != nil {
		return false, err
	}
	defer it.Close()
	return !it.Next(), it.Err()
}

func (t *Tree) Sync() error {
	if err := t.idn.Sync(); err != nil {
		return err
	}
	return t.dat.Sync()
}

func (t *Tree) Close() error {
	err := t.idn.Close()
	if derr := t.dat.Close(); err == nil {
		err = derr
	}
	return err
}

type iterator struct {
	tree    *Tree
	leaf    *leaf
	pos     int
	hi      []byte
	current record.Record
	err     error
	done    bool
}

func (it *iterator) Next() bool {
	if it.done {
		return false
	}
	for it.pos >= len(it.leaf.recs) {
		if it.leaf.next == block.NoBlock {
			it.finish()
			return false
		}
		lf, err := it.tree.readLeaf(it.leaf.next)
		if err != nil {
			it.err = err
			it.finish()
			return false
		}
		it.leaf, it.pos = lf, 0
	}
	r := it.leaf.recs[it.pos]
	if it.hi != nil && compareKeys(r.Key, it.hi) >= 0 {
		it.finish()
		return false
	}
	it.current = r
	it.pos++
	return true
}

func (it *iterator) finish() {
	it.done = true
	it.leaf = nil
	it.current = record.Record{}
}

func (it *iterator) Record() record.Record {
	return it.current
}

func (it *iterator) Err() error {
	return it.err
}

func (it *iterator) Close() error {
	it.finish()
	return nil
}
