package nodetable

import (
	"fmt"

	"github.com/aleksaelezovic/tdbgo/internal/encoding"
	"github.com/aleksaelezovic/tdbgo/pkg/rdf"
	"github.com/aleksaelezovic/tdbgo/pkg/store"
)

// Inline answers inlinable terms without touching the wrapped table.
type Inline struct {
	base NodeTable
}

func NewInline(base NodeTable) *Inline {
	return &Inline{base: base}
}

func (n *Inline) NodeIDForNode(term rdf.Term, create bool) (encoding.NodeID, error) {
	if id, ok := encoding.Inline(term); ok {
		return id, nil
	}
	return n.base.NodeIDForNode(term, create)
}

func (n *Inline) NodeForNodeID(id encoding.NodeID) (rdf.Term, error) {
	if id.IsSpecial() {
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownNodeID, id)
	}
	if id.IsInline() {
		return encoding.DecodeInline(id)
	}
	return n.base.NodeForNodeID(id)
}

func (n *Inline) Base() NodeTable {
	return n.base
}

func (n *Inline) Sync() error  { return n.base.Sync() }
func (n *Inline) Close() error { return n.base.Close() }

// New layers a native table as Inline(Cache(native)).
func New(native *Native, sizes Sizes) *Inline {
	return NewInline(NewCache(native, sizes))
}
