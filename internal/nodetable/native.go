package nodetable

import (
	"errors"
	"fmt"

	"github.com/aleksaelezovic/tdbgo/internal/encoding"
	"github.com/aleksaelezovic/tdbgo/internal/index"
	"github.com/aleksaelezovic/tdbgo/internal/objectfile"
	"github.com/aleksaelezovic/tdbgo/pkg/rdf"
	"github.com/aleksaelezovic/tdbgo/pkg/store"
)

// Native stores terms in an object file and finds them again through the
// node2id index, keyed by the 128-bit hash of their canonical bytes.
type Native struct {
	index   index.RangeIndex
	objects objectfile.ObjectFile
}

func NewNative(idx index.RangeIndex, objects objectfile.ObjectFile) (*Native, error) {
	f := idx.Factory()
	if f.KeyLen() != encoding.HashSize || f.ValueLen() != encoding.NodeIDSize {
		return nil, store.ConfigErrorf("node2id records are %s, want %d,%d", f, encoding.HashSize, encoding.NodeIDSize)
	}
	return &Native{index: idx, objects: objects}, nil
}

func (n *Native) NodeIDForNode(term rdf.Term, create bool) (encoding.NodeID, error) {
	canonical, err := encoding.EncodeTerm(term)
	if err != nil {
		return encoding.NodeIDNone, err
	}
	h := encoding.Hash(canonical)

	r, found, err := n.index.Find(h[:])
	if err != nil {
		return encoding.NodeIDNone, err
	}
	if found {
		return encoding.GetNodeID(r.Value), nil
	}
	if !create {
		return encoding.NodeIDNone, store.ErrNotFound
	}

	offset, err := n.objects.Write(canonical)
	if err != nil {
		return encoding.NodeIDNone, fmt.Errorf("append node: %w", err)
	}
	id, err := encoding.DictionaryID(offset)
	if err != nil {
		return encoding.NodeIDNone, err
	}
	rec, err := n.index.Factory().CreateKV(h[:], id.Bytes())
	if err != nil {
		return encoding.NodeIDNone, err
	}
	if _, _, err := n.index.Insert(rec); err != nil {
		return encoding.NodeIDNone, fmt.Errorf("index node: %w", err)
	}
	return id, nil
}

// NodeForNodeID reads the entry at the id's offset and checks that the index
// maps the term back to the same id, so ids from another dictionary are
// rejected rather than resolved to an unrelated term.
func (n *Native) NodeForNodeID(id encoding.NodeID) (rdf.Term, error) {
	if id.IsSpecial() || !id.IsDictionary() {
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownNodeID, id)
	}
	canonical, err := n.objects.Read(id.Offset())
	if err != nil {
		return nil, err
	}
	term, err := encoding.DecodeTerm(canonical)
	if err != nil {
		if errors.Is(err, store.ErrCorrupt) {
			return nil, fmt.Errorf("%w: %s: %v", store.ErrUnknownNodeID, id, err)
		}
		return nil, err
	}

	h := encoding.Hash(canonical)
	r, found, err := n.index.Find(h[:])
	if err != nil {
		return nil, err
	}
	if !found || encoding.GetNodeID(r.Value) != id {
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownNodeID, id)
	}
	return term, nil
}

// Objects exposes the object file, mostly for statistics.
func (n *Native) Objects() objectfile.ObjectFile {
	return n.objects
}

func (n *Native) Index() index.RangeIndex {
	return n.index
}

func (n *Native) Sync() error {
	if err := n.objects.Sync(); err != nil {
		return err
	}
	return n.index.Sync()
}

func (n *Native) Close() error {
	err := n.objects.Close()
	if ierr := n.index.Close(); err == nil {
		err = ierr
	}
	return err
}
