package bptree

import (
	"github.com/aleksaelezovic/tdbgo/internal/block"
	"github.com/aleksaelezovic/tdbgo/pkg/store"
)

// Check walks the whole tree and verifies key order, separator bounds,
// uniform leaf depth, node occupancy and the leaf chain.
func (t *Tree) Check() error {
	root, err := t.readBranch(rootID)
	if err != nil {
		return err
	}
	c := &checker{tree: t, leafDepth: -1}
	if err := c.branch(root, nil, nil, 0, true); err != nil {
		return err
	}
	for i, id := range c.leaves {
		want := block.NoBlock
		if i+1 < len(c.leaves) {
			want = c.leaves[i+1]
		}
		if c.next[i] != want {
			return store.Corruptf(t.name, "leaf %d links to %d, want %d", id, c.next[i], want)
		}
	}
	return nil
}

type checker struct {
	tree      *Tree
	leafDepth int
	leaves    []block.ID
	next      []block.ID
}

func (c *checker) inBounds(key, lo, hi []byte) bool {
	return (lo == nil || compareKeys(key, lo) >= 0) && (hi == nil || compareKeys(key, hi) < 0)
}

func (c *checker) branch(b *branch, lo, hi []byte, depth int, isRoot bool) error {
	p := c.tree.params
	name := c.tree.name
	if len(b.ptrs) != len(b.keys)+1 {
		return store.Corruptf(name, "branch %d has %d keys and %d pointers", b.id, len(b.keys), len(b.ptrs))
	}
	if len(b.keys) > p.MaxKeys() || (!isRoot && len(b.keys) < p.MinKeys()) {
		return store.Corruptf(name, "branch %d holds %d keys", b.id, len(b.keys))
	}
	for i, k := range b.keys {
		if !c.inBounds(k, lo, hi) {
			return store.Corruptf(name, "branch %d key %d out of bounds", b.id, i)
		}
		if i > 0 && compareKeys(b.keys[i-1], k) >= 0 {
			return store.Corruptf(name, "branch %d keys out of order at %d", b.id, i)
		}
	}
	for i, ptr := range b.ptrs {
		clo, chi := lo, hi
		if i > 0 {
			clo = b.keys[i-1]
		}
		if i < len(b.keys) {
			chi = b.keys[i]
		}
		if b.leafChildren {
			lf, err := c.tree.readLeaf(ptr)
			if err != nil {
				return err
			}
			if err := c.leaf(lf, clo, chi, depth+1, len(b.ptrs) == 1); err != nil {
				return err
			}
			continue
		}
		child, err := c.tree.readBranch(ptr)
		if err != nil {
			return err
		}
		if err := c.branch(child, clo, chi, depth+1, false); err != nil {
			return err
		}
	}
	return nil
}

func (c *checker) leaf(lf *leaf, lo, hi []byte, depth int, lone bool) error {
	p := c.tree.params
	name := c.tree.name
	if c.leafDepth < 0 {
		c.leafDepth = depth
	} else if c.leafDepth != depth {
		return store.Corruptf(name, "leaf %d at depth %d, others at %d", lf.id, depth, c.leafDepth)
	}
	if len(lf.recs) > p.LeafCapacity() || (!lone && len(lf.recs) < p.MinRecords()) {
		return store.Corruptf(name, "leaf %d holds %d records", lf.id, len(lf.recs))
	}
	for i, r := range lf.recs {
		if !c.inBounds(r.Key, lo, hi) {
			return store.Corruptf(name, "leaf %d record %d out of bounds", lf.id, i)
		}
		if i > 0 && compareKeys(lf.recs[i-1].Key, r.Key) >= 0 {
			return store.Corruptf(name, "leaf %d records out of order at %d", lf.id, i)
		}
	}
	c.leaves = append(c.leaves, lf.id)
	c.next = append(c.next, lf.next)
	return nil
}
