package store

import (
	"errors"
	"slices"
	"sync"

	"github.com/aleksaelezovic/tdbgo/internal/nodetable"
	"github.com/aleksaelezovic/tdbgo/internal/tupletable"
	"github.com/aleksaelezovic/tdbgo/pkg/rdf"
	tdb "github.com/aleksaelezovic/tdbgo/pkg/store"
)

// PrefixTable holds the prefix mappings of each graph as (graph, prefix,
// IRI) tuples, columns G, P, U. Graph names are IRIs and "" names the
// default graph. A graph maps each prefix to at most one IRI.
//
// The node table belongs to the prefix table and is closed with it.
type PrefixTable struct {
	mu sync.RWMutex
	nodeTupleTable
}

func NewPrefixTable(nodes nodetable.NodeTable, tuples *tupletable.Table) (*PrefixTable, error) {
	if tuples.Columns() != 3 {
		return nil, tdb.ConfigErrorf("prefix table needs 3 columns, got %d", tuples.Columns())
	}
	return &PrefixTable{nodeTupleTable: nodeTupleTable{nodes: nodes, tuples: tuples}}, nil
}

func graphTerm(graph string) rdf.Term   { return rdf.NewNamedNode(graph) }
func prefixTerm(prefix string) rdf.Term { return rdf.NewLiteral(prefix) }

func lexical(term rdf.Term) string {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return t.IRI
	case *rdf.Literal:
		return t.Value
	default:
		return term.String()
	}
}

// rows collects the stored tuples matching the pattern; nil matches any.
func (t *PrefixTable) rows(g, p, u rdf.Term) ([][]rdf.Term, error) {
	sc, err := scanTerms(&t.nodeTupleTable, func(ts []rdf.Term) []rdf.Term { return ts }, g, p, u)
	if err != nil {
		return nil, err
	}
	var out [][]rdf.Term
	for sc.Next() {
		out = append(out, sc.Item())
	}
	return out, errors.Join(sc.Err(), sc.Close())
}

// Set maps prefix to iri in graph, replacing any earlier mapping.
func (t *PrefixTable) Set(graph, prefix, iri string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	g, p, u := graphTerm(graph), prefixTerm(prefix), rdf.NewNamedNode(iri)
	old, err := t.rows(g, p, nil)
	if err != nil {
		return err
	}
	for _, r := range old {
		if r[2].Equals(u) {
			return nil
		}
		if _, err := t.delete(r...); err != nil {
			return err
		}
	}
	_, err = t.add(g, p, u)
	return err
}

// Get returns the IRI prefix maps to in graph.
func (t *PrefixTable) Get(graph, prefix string) (string, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rows, err := t.rows(graphTerm(graph), prefixTerm(prefix), nil)
	if err != nil || len(rows) == 0 {
		return "", false, err
	}
	return lexical(rows[0][2]), true, nil
}

// PrefixFor returns a prefix mapped to iri in graph.
func (t *PrefixTable) PrefixFor(graph, iri string) (string, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rows, err := t.rows(graphTerm(graph), nil, rdf.NewNamedNode(iri))
	if err != nil || len(rows) == 0 {
		return "", false, err
	}
	return lexical(rows[0][1]), true, nil
}

// Remove drops the mapping of prefix in graph.
func (t *PrefixTable) Remove(graph, prefix string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rows, err := t.rows(graphTerm(graph), prefixTerm(prefix), nil)
	if err != nil {
		return false, err
	}
	removed := false
	for _, r := range rows {
		ok, err := t.delete(r...)
		if err != nil {
			return removed, err
		}
		removed = removed || ok
	}
	return removed, nil
}

// Mapping returns every prefix of graph with its IRI.
func (t *PrefixTable) Mapping(graph string) (map[string]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rows, err := t.rows(graphTerm(graph), nil, nil)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(rows))
	for _, r := range rows {
		m[lexical(r[1])] = lexical(r[2])
	}
	return m, nil
}

// Graphs returns the sorted names of graphs with at least one mapping.
func (t *PrefixTable) Graphs() ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rows, err := t.rows(nil, nil, nil)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, lexical(r[0]))
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

func (t *PrefixTable) Sync() error {
	return errors.Join(t.tuples.Sync(), t.nodes.Sync())
}

func (t *PrefixTable) Close() error {
	return errors.Join(t.tuples.Close(), t.nodes.Close())
}
