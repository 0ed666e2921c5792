package bptree

import (
	"encoding/binary"
	"sort"

	"github.com/aleksaelezovic/tdbgo/internal/block"
	"github.com/aleksaelezovic/tdbgo/internal/record"
	"github.com/aleksaelezovic/tdbgo/pkg/store"
)

var bin = binary.BigEndian

const (
	kindBranch = 1
	kindLeaf   = 2
)

// branch is an interior node. keys[i] separates ptrs[i] (keys below it) from
// ptrs[i+1] (keys at or above it).
type branch struct {
	id           block.ID
	leafChildren bool
	keys         [][]byte
	ptrs         []block.ID
}

// childIndex returns the position of the child whose key range holds key.
func (b *branch) childIndex(key []byte) int {
	return sort.Search(len(b.keys), func(i int) bool {
		return compareKeys(b.keys[i], key) > 0
	})
}

func (b *branch) insertAt(i int, key []byte, right block.ID) {
	b.keys = append(b.keys, nil)
	copy(b.keys[i+1:], b.keys[i:])
	b.keys[i] = key
	b.ptrs = append(b.ptrs, 0)
	copy(b.ptrs[i+2:], b.ptrs[i+1:])
	b.ptrs[i+1] = right
}

// removeAt drops keys[i] and the pointer to its right.
func (b *branch) removeAt(i int) {
	b.keys = append(b.keys[:i], b.keys[i+1:]...)
	b.ptrs = append(b.ptrs[:i+1], b.ptrs[i+2:]...)
}

type leaf struct {
	id   block.ID
	next block.ID
	recs []record.Record
}

// search returns the position of the first record whose key is >= key, and
// whether that record's key equals key.
func (l *leaf) search(key []byte) (int, bool) {
	i := sort.Search(len(l.recs), func(i int) bool {
		return compareKeys(l.recs[i].Key, key) >= 0
	})
	return i, i < len(l.recs) && compareKeys(l.recs[i].Key, key) == 0
}

func (l *leaf) insertAt(i int, r record.Record) {
	l.recs = append(l.recs, record.Record{})
	copy(l.recs[i+1:], l.recs[i:])
	l.recs[i] = r
}

func (l *leaf) removeAt(i int) record.Record {
	r := l.recs[i]
	l.recs = append(l.recs[:i], l.recs[i+1:]...)
	return r
}

func (t *Tree) encodeBranch(b *branch) []byte {
	buf := make([]byte, t.params.BlockSize)
	buf[0] = kindBranch
	if b.leafChildren {
		buf[1] = 1
	}
	bin.PutUint16(buf[2:], uint16(len(b.keys)))
	off := branchHeader
	for _, k := range b.keys {
		off += copy(buf[off:], k)
	}
	for _, p := range b.ptrs {
		bin.PutUint32(buf[off:], uint32(p))
		off += ptrLen
	}
	return buf
}

func (t *Tree) decodeBranch(id block.ID, buf []byte) (*branch, error) {
	if len(buf) < branchHeader || buf[0] != kindBranch {
		return nil, store.Corruptf(t.name, "block %d is not a branch node", id)
	}
	n := int(bin.Uint16(buf[2:]))
	keyLen := t.params.Factory.KeyLen()
	if n > t.params.MaxKeys() || branchHeader+n*keyLen+(n+1)*ptrLen > len(buf) {
		return nil, store.Corruptf(t.name, "branch %d claims %d keys", id, n)
	}
	b := &branch{
		id:           id,
		leafChildren: buf[1] == 1,
		keys:         make([][]byte, n, n+1),
		ptrs:         make([]block.ID, n+1, n+2),
	}
	off := branchHeader
	for i := range b.keys {
		b.keys[i] = append([]byte(nil), buf[off:off+keyLen]...)
		off += keyLen
	}
	for i := range b.ptrs {
		b.ptrs[i] = block.ID(int32(bin.Uint32(buf[off:])))
		off += ptrLen
	}
	return b, nil
}

func (t *Tree) encodeLeaf(l *leaf) []byte {
	buf := make([]byte, t.params.BlockSize)
	buf[0] = kindLeaf
	bin.PutUint16(buf[2:], uint16(len(l.recs)))
	bin.PutUint32(buf[4:], uint32(l.next))
	off := leafHeader
	for _, r := range l.recs {
		off += copy(buf[off:], r.Key)
		off += copy(buf[off:], r.Value)
	}
	return buf
}

func (t *Tree) decodeLeaf(id block.ID, buf []byte) (*leaf, error) {
	if len(buf) < leafHeader || buf[0] != kindLeaf {
		return nil, store.Corruptf(t.name, "block %d is not a leaf", id)
	}
	n := int(bin.Uint16(buf[2:]))
	recLen := t.params.Factory.RecordLen()
	if n > t.params.LeafCapacity() {
		return nil, store.Corruptf(t.name, "leaf %d claims %d records", id, n)
	}
	l := &leaf{
		id:   id,
		next: block.ID(int32(bin.Uint32(buf[4:]))),
		recs: make([]record.Record, n, n+1),
	}
	off := leafHeader
	for i := range l.recs {
		r, err := t.params.Factory.FromBytes(buf[off : off+recLen])
		if err != nil {
			return nil, err
		}
		l.recs[i] = r
		off += recLen
	}
	return l, nil
}

func (t *Tree) readBranch(id block.ID) (*branch, error) {
	buf, err := t.idn.Read(id)
	if err != nil {
		return nil, err
	}
	return t.decodeBranch(id, buf)
}

func (t *Tree) writeBranch(b *branch) error {
	return t.idn.Write(b.id, t.encodeBranch(b))
}

func (t *Tree) newBranch(leafChildren bool, keys [][]byte, ptrs []block.ID) (*branch, error) {
	id, err := t.idn.Allocate()
	if err != nil {
		return nil, err
	}
	return &branch{id: id, leafChildren: leafChildren, keys: keys, ptrs: ptrs}, nil
}

func (t *Tree) readLeaf(id block.ID) (*leaf, error) {
	buf, err := t.dat.Read(id)
	if err != nil {
		return nil, err
	}
	return t.decodeLeaf(id, buf)
}

func (t *Tree) writeLeaf(l *leaf) error {
	return t.dat.Write(l.id, t.encodeLeaf(l))
}

func (t *Tree) newLeaf(recs []record.Record, next block.ID) (*leaf, error) {
	id, err := t.dat.Allocate()
	if err != nil {
		return nil, err
	}
	return &leaf{id: id, next: next, recs: recs}, nil
}
