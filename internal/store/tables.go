package store

import (
	"errors"
	"fmt"
	"iter"

	"github.com/aleksaelezovic/tdbgo/internal/encoding"
	"github.com/aleksaelezovic/tdbgo/internal/nodetable"
	"github.com/aleksaelezovic/tdbgo/internal/tupletable"
	"github.com/aleksaelezovic/tdbgo/pkg/rdf"
	tdb "github.com/aleksaelezovic/tdbgo/pkg/store"
)

// nodeTupleTable stores statements as tuples of NodeIDs. The node table is
// shared and is not closed with the tuples.
type nodeTupleTable struct {
	nodes  nodetable.NodeTable
	tuples *tupletable.Table
}

func (t *nodeTupleTable) ids(terms []rdf.Term, create bool) (tupletable.Tuple, error) {
	tup := make(tupletable.Tuple, len(terms))
	for i, term := range terms {
		if term == nil {
			return nil, fmt.Errorf("column %d: nil term in concrete statement", i)
		}
		id, err := t.nodes.NodeIDForNode(term, create)
		if err != nil {
			return nil, err
		}
		tup[i] = id
	}
	return tup, nil
}

func (t *nodeTupleTable) add(terms ...rdf.Term) (bool, error) {
	tup, err := t.ids(terms, true)
	if err != nil {
		return false, err
	}
	return t.tuples.Add(tup)
}

func (t *nodeTupleTable) delete(terms ...rdf.Term) (bool, error) {
	tup, err := t.ids(terms, false)
	if errors.Is(err, tdb.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return t.tuples.Remove(tup)
}

func (t *nodeTupleTable) contains(terms ...rdf.Term) (bool, error) {
	tup, err := t.ids(terms, false)
	if errors.Is(err, tdb.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return t.tuples.Contains(tup)
}

// pattern maps terms to ids, nil meaning any. ok is false when a bound term
// has never been stored, so nothing can match.
func (t *nodeTupleTable) pattern(terms ...rdf.Term) (pat tupletable.Tuple, ok bool, err error) {
	pat = make(tupletable.Tuple, len(terms))
	for i, term := range terms {
		if term == nil {
			pat[i] = encoding.NodeIDAny
			continue
		}
		id, err := t.nodes.NodeIDForNode(term, false)
		if errors.Is(err, tdb.ErrNotFound) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		pat[i] = id
	}
	return pat, true, nil
}

func (t *nodeTupleTable) terms(tup tupletable.Tuple) ([]rdf.Term, error) {
	out := make([]rdf.Term, len(tup))
	for i, id := range tup {
		term, err := t.nodes.NodeForNodeID(id)
		if err != nil {
			return nil, fmt.Errorf("column %d (%s): %w", i, id, err)
		}
		out[i] = term
	}
	return out, nil
}

func scanTerms[T any](t *nodeTupleTable, build func([]rdf.Term) T, terms ...rdf.Term) (*Scan[T], error) {
	pat, ok, err := t.pattern(terms...)
	if err != nil {
		return nil, err
	}
	if !ok {
		return emptyScan[T](), nil
	}
	it, err := t.tuples.Find(pat)
	if err != nil {
		return nil, err
	}
	return &Scan[T]{
		it: it,
		resolve: func(tup tupletable.Tuple) (T, error) {
			var zero T
			ts, err := t.terms(tup)
			if err != nil {
				return zero, err
			}
			return build(ts), nil
		},
	}, nil
}

func (t *nodeTupleTable) Tuples() *tupletable.Table { return t.tuples }

func (t *nodeTupleTable) Size() (int64, error) { return t.tuples.Size() }

func (t *nodeTupleTable) Sync() error  { return t.tuples.Sync() }
func (t *nodeTupleTable) Close() error { return t.tuples.Close() }

// TripleTable holds the default graph, columns S, P, O.
type TripleTable struct {
	nodeTupleTable
}

func NewTripleTable(nodes nodetable.NodeTable, tuples *tupletable.Table) (*TripleTable, error) {
	if tuples.Columns() != 3 {
		return nil, tdb.ConfigErrorf("triple table needs 3 columns, got %d", tuples.Columns())
	}
	return &TripleTable{nodeTupleTable{nodes: nodes, tuples: tuples}}, nil
}

func (t *TripleTable) Add(tr *rdf.Triple) (bool, error) {
	return t.add(tr.Subject, tr.Predicate, tr.Object)
}

func (t *TripleTable) Delete(tr *rdf.Triple) (bool, error) {
	return t.delete(tr.Subject, tr.Predicate, tr.Object)
}

func (t *TripleTable) Contains(tr *rdf.Triple) (bool, error) {
	return t.contains(tr.Subject, tr.Predicate, tr.Object)
}

// Scan opens a cursor over triples matching the pattern; nil matches any.
func (t *TripleTable) Scan(s, p, o rdf.Term) (*Scan[*rdf.Triple], error) {
	return scanTerms(&t.nodeTupleTable, func(ts []rdf.Term) *rdf.Triple {
		return rdf.NewTriple(ts[0], ts[1], ts[2])
	}, s, p, o)
}

func (t *TripleTable) Find(s, p, o rdf.Term) iter.Seq2[*rdf.Triple, error] {
	return scanSeq(noGuard{}, func() (*Scan[*rdf.Triple], error) { return t.Scan(s, p, o) })
}

// QuadTable holds the named graphs, columns G, S, P, O.
type QuadTable struct {
	nodeTupleTable
}

func NewQuadTable(nodes nodetable.NodeTable, tuples *tupletable.Table) (*QuadTable, error) {
	if tuples.Columns() != 4 {
		return nil, tdb.ConfigErrorf("quad table needs 4 columns, got %d", tuples.Columns())
	}
	return &QuadTable{nodeTupleTable{nodes: nodes, tuples: tuples}}, nil
}

func checkNamed(q *rdf.Quad) error {
	if q.Graph == nil || rdf.IsDefaultGraph(q.Graph) {
		return fmt.Errorf("quad table holds named graphs only: %s", q)
	}
	return nil
}

func (t *QuadTable) Add(q *rdf.Quad) (bool, error) {
	if err := checkNamed(q); err != nil {
		return false, err
	}
	return t.add(q.Graph, q.Subject, q.Predicate, q.Object)
}

func (t *QuadTable) Delete(q *rdf.Quad) (bool, error) {
	if err := checkNamed(q); err != nil {
		return false, err
	}
	return t.delete(q.Graph, q.Subject, q.Predicate, q.Object)
}

func (t *QuadTable) Contains(q *rdf.Quad) (bool, error) {
	if err := checkNamed(q); err != nil {
		return false, err
	}
	return t.contains(q.Graph, q.Subject, q.Predicate, q.Object)
}

// Scan opens a cursor over quads matching the pattern; nil matches any.
func (t *QuadTable) Scan(g, s, p, o rdf.Term) (*Scan[*rdf.Quad], error) {
	return scanTerms(&t.nodeTupleTable, func(ts []rdf.Term) *rdf.Quad {
		return rdf.NewQuad(ts[1], ts[2], ts[3], ts[0])
	}, g, s, p, o)
}

func (t *QuadTable) Find(g, s, p, o rdf.Term) iter.Seq2[*rdf.Quad, error] {
	return scanSeq(noGuard{}, func() (*Scan[*rdf.Quad], error) { return t.Scan(g, s, p, o) })
}

// graphIndex returns an index led by the graph column, if there is one.
func (t *QuadTable) graphIndex() *tupletable.TupleIndex {
	for _, ti := range t.tuples.Indexes() {
		if ti.ColumnMap().Slot(0) == 0 {
			return ti
		}
	}
	return nil
}

// ScanGraphs opens a cursor over the distinct graph names.
func (t *QuadTable) ScanGraphs() (*Scan[rdf.Term], error) {
	ti := t.graphIndex()
	var it *tupletable.Iterator
	var err error
	if ti != nil {
		it, err = ti.All()
	} else {
		it, err = t.tuples.Find(tupletable.AnyTuple(4))
	}
	if err != nil {
		return nil, err
	}

	// Graph-led order makes duplicates adjacent; otherwise remember them all.
	seen := map[encoding.NodeID]struct{}{}
	last := encoding.NodeIDNone
	return &Scan[rdf.Term]{
		it: &dedupIterator{tupleCursor: it, skip: func(tup tupletable.Tuple) bool {
			g := tup[0]
			if ti != nil {
				dup := g == last
				last = g
				return dup
			}
			if _, ok := seen[g]; ok {
				return true
			}
			seen[g] = struct{}{}
			return false
		}},
		resolve: func(tup tupletable.Tuple) (rdf.Term, error) {
			return t.nodes.NodeForNodeID(tup[0])
		},
	}, nil
}

func (t *QuadTable) ListGraphs() iter.Seq2[rdf.Term, error] {
	return scanSeq(noGuard{}, t.ScanGraphs)
}
