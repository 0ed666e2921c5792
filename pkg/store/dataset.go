package store

import (
	"iter"

	"github.com/aleksaelezovic/tdbgo/pkg/rdf"
)

// GraphFinder is the pattern-scan capability consumed by query evaluation
// and path evaluation. A nil term in a pattern matches anything.
type GraphFinder interface {
	FindTriples(s, p, o rdf.Term) iter.Seq2[*rdf.Triple, error]
}

// Dataset is the storage surface handed to a query engine.
//
// Quads in the default graph and triples are the same statements: adding a
// quad whose graph is rdf.DefaultGraph is equivalent to AddTriple.
type Dataset interface {
	GraphFinder

	AddTriple(t *rdf.Triple) (bool, error)
	DeleteTriple(t *rdf.Triple) (bool, error)
	ContainsTriple(t *rdf.Triple) (bool, error)

	AddQuad(q *rdf.Quad) (bool, error)
	DeleteQuad(q *rdf.Quad) (bool, error)
	ContainsQuad(q *rdf.Quad) (bool, error)
	FindQuads(g, s, p, o rdf.Term) iter.Seq2[*rdf.Quad, error]
	ListGraphs() iter.Seq2[rdf.Term, error]

	CountTriples() (int64, error)
	CountQuads() (int64, error)

	Sync() error
	Close() error
}
