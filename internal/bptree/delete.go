package bptree

import (
	"github.com/aleksaelezovic/tdbgo/internal/block"
	"github.com/aleksaelezovic/tdbgo/internal/record"
)

// Delete removes the record whose key equals key. Underfull nodes borrow
// from or merge with a sibling; the tree loses a level when the root is left
// with a single branch child.
func (t *Tree) Delete(key []byte) (record.Record, bool, error) {
	root, err := t.readBranch(rootID)
	if err != nil {
		return record.Record{}, false, err
	}
	removed, existed, err := t.deleteBranch(root, key)
	if err != nil || !existed {
		return removed, existed, err
	}

	if len(root.keys) == 0 && !root.leafChildren {
		child, err := t.readBranch(root.ptrs[0])
		if err != nil {
			return removed, true, err
		}
		root.leafChildren = child.leafChildren
		root.keys = child.keys
		root.ptrs = child.ptrs
		if err := t.writeBranch(root); err != nil {
			return removed, true, err
		}
		if err := t.idn.Free(child.id); err != nil {
			return removed, true, err
		}
	}
	return removed, true, nil
}

// deleteBranch deletes below b and repairs any child left underfull. The
// caller repairs b itself.
func (t *Tree) deleteBranch(b *branch, key []byte) (record.Record, bool, error) {
	i := b.childIndex(key)

	if b.leafChildren {
		lf, err := t.readLeaf(b.ptrs[i])
		if err != nil {
			return record.Record{}, false, err
		}
		pos, found := lf.search(key)
		if !found {
			return record.Record{}, false, nil
		}
		removed := lf.removeAt(pos)
		// a lone leaf under the root may hold any number of records
		if len(lf.recs) >= t.params.MinRecords() || len(b.ptrs) == 1 {
			return removed, true, t.writeLeaf(lf)
		}
		return removed, true, t.rebalanceLeaf(b, i, lf)
	}

	child, err := t.readBranch(b.ptrs[i])
	if err != nil {
		return record.Record{}, false, err
	}
	removed, existed, err := t.deleteBranch(child, key)
	if err != nil || !existed {
		return removed, existed, err
	}
	if len(child.keys) >= t.params.MinKeys() {
		return removed, true, nil
	}
	return removed, true, t.rebalanceBranch(b, i, child)
}

func (t *Tree) rebalanceLeaf(parent *branch, i int, lf *leaf) error {
	minRecs := t.params.MinRecords()

	var left, right *leaf
	var err error
	if i > 0 {
		if left, err = t.readLeaf(parent.ptrs[i-1]); err != nil {
			return err
		}
		if len(left.recs) > minRecs {
			r := left.recs[len(left.recs)-1]
			left.recs = left.recs[:len(left.recs)-1]
			lf.insertAt(0, r)
			parent.keys[i-1] = append([]byte(nil), r.Key...)
			return t.writeAll(parent, left, lf)
		}
	}
	if i < len(parent.ptrs)-1 {
		if right, err = t.readLeaf(parent.ptrs[i+1]); err != nil {
			return err
		}
		if len(right.recs) > minRecs {
			r := right.removeAt(0)
			lf.recs = append(lf.recs, r)
			parent.keys[i] = append([]byte(nil), right.recs[0].Key...)
			return t.writeAll(parent, right, lf)
		}
	}

	if left != nil {
		left.recs = append(left.recs, lf.recs...)
		left.next = lf.next
		parent.removeAt(i - 1)
		if err := t.writeAll(parent, left); err != nil {
			return err
		}
		return t.dat.Free(lf.id)
	}
	lf.recs = append(lf.recs, right.recs...)
	lf.next = right.next
	parent.removeAt(i)
	if err := t.writeAll(parent, lf); err != nil {
		return err
	}
	return t.dat.Free(right.id)
}

func (t *Tree) rebalanceBranch(parent *branch, i int, child *branch) error {
	minKeys := t.params.MinKeys()

	var left, right *branch
	var err error
	if i > 0 {
		if left, err = t.readBranch(parent.ptrs[i-1]); err != nil {
			return err
		}
		if len(left.keys) > minKeys {
			last := len(left.keys) - 1
			child.keys = append([][]byte{parent.keys[i-1]}, child.keys...)
			child.ptrs = append([]block.ID{left.ptrs[last+1]}, child.ptrs...)
			parent.keys[i-1] = left.keys[last]
			left.keys = left.keys[:last]
			left.ptrs = left.ptrs[:last+1]
			return t.writeBranches(parent, left, child)
		}
	}
	if i < len(parent.ptrs)-1 {
		if right, err = t.readBranch(parent.ptrs[i+1]); err != nil {
			return err
		}
		if len(right.keys) > minKeys {
			child.keys = append(child.keys, parent.keys[i])
			child.ptrs = append(child.ptrs, right.ptrs[0])
			parent.keys[i] = right.keys[0]
			right.keys = right.keys[1:]
			right.ptrs = right.ptrs[1:]
			return t.writeBranches(parent, right, child)
		}
	}

	if left != nil {
		left.keys = append(append(left.keys, parent.keys[i-1]), child.keys...)
		left.ptrs = append(left.ptrs, child.ptrs...)
		parent.removeAt(i - 1)
		if err := t.writeBranches(parent, left); err != nil {
			return err
		}
		return t.idn.Free(child.id)
	}
	child.keys = append(append(child.keys, parent.keys[i]), right.keys...)
	child.ptrs = append(child.ptrs, right.ptrs...)
	parent.removeAt(i)
	if err := t.writeBranches(parent, child); err != nil {
		return err
	}
	return t.idn.Free(right.id)
}

func (t *Tree) writeAll(parent *branch, leaves ...*leaf) error {
	for _, l := range leaves {
		if err := t.writeLeaf(l); err != nil {
			return err
		}
	}
	return t.writeBranch(parent)
}

func (t *Tree) writeBranches(bs ...*branch) error {
	for _, b := range bs {
		if err := t.writeBranch(b); err != nil {
			return err
		}
	}
	return nil
}
