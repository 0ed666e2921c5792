// Package nodetable maps RDF terms to NodeIDs and back. A full node table is
// layered Inline(Cache(Native)): small literals never leave the inline layer,
// hot terms are answered by the cache, and only misses reach the index and
// the object file.
package nodetable

import (
	"github.com/aleksaelezovic/tdbgo/internal/encoding"
	"github.com/aleksaelezovic/tdbgo/pkg/rdf"
)

// NodeTable is the term dictionary.
type NodeTable interface {
	// NodeIDForNode returns the id of term. When the term is unknown it is
	// added if create is set, otherwise store.ErrNotFound is returned.
	NodeIDForNode(term rdf.Term, create bool) (encoding.NodeID, error)
	// NodeForNodeID returns the term of id, or store.ErrUnknownNodeID.
	NodeForNodeID(id encoding.NodeID) (rdf.Term, error)
	Sync() error
	Close() error
}

// Sizes configures the cache layer. A size below one disables that cache.
type Sizes struct {
	NodeToID int
	IDToNode int
	Miss     int
}
