package store

import (
	"cmp"
	"iter"
	"maps"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/aleksaelezovic/tdbgo/internal/cache"
	"github.com/aleksaelezovic/tdbgo/internal/location"
	"github.com/aleksaelezovic/tdbgo/internal/nodetable"
	"github.com/aleksaelezovic/tdbgo/pkg/rdf"
	tdb "github.com/aleksaelezovic/tdbgo/pkg/store"
)

// Options carries what the dataset needs beyond its tables.
type Options struct {
	// Location is where the dataset lives; nil is an in-memory dataset.
	Location *location.Location
	// Prefixes holds the prefix mappings. It is closed with the dataset.
	Prefixes *PrefixTable
	// Params is a snapshot of the persisted layout parameters.
	Params map[string]string
	// Caches reports the node and block caches.
	Caches *cache.Collector
	Logger *logrus.Logger
	// OnSync runs after the tables are synced, OnClose after they are closed.
	OnSync  func() error
	OnClose func() error
}

// DatasetGraph is the default graph plus named graphs over one shared node
// table.
//
// Many readers or one writer: writers take the lock exclusively and bump an
// epoch. A lazy scan holds the shared lock only while it steps, and fails
// with ErrConcurrentModification if a write landed since it started.
type DatasetGraph struct {
	mu     sync.RWMutex
	epoch  uint64
	closed bool

	triples *TripleTable
	quads   *QuadTable
	nodes   nodetable.NodeTable
	opts    Options
	log     *logrus.Logger
}

var _ tdb.Dataset = (*DatasetGraph)(nil)

func NewDatasetGraph(triples *TripleTable, quads *QuadTable, nodes nodetable.NodeTable, opts Options) *DatasetGraph {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.Caches == nil {
		opts.Caches = cache.NewCollector()
	}
	if opts.Location == nil {
		opts.Location = location.Mem()
	}
	return &DatasetGraph{triples: triples, quads: quads, nodes: nodes, opts: opts, log: log}
}

func (d *DatasetGraph) enter(fn func() error) (uint64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return 0, tdb.ErrClosed
	}
	return d.epoch, fn()
}

func (d *DatasetGraph) step(token uint64, fn func() error) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return tdb.ErrClosed
	}
	if d.epoch != token {
		return tdb.ErrConcurrentModification
	}
	return fn()
}

func (d *DatasetGraph) write(fn func() (bool, error)) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false, tdb.ErrClosed
	}
	changed, err := fn()
	if changed || err != nil {
		d.epoch++
	}
	return changed, err
}

func (d *DatasetGraph) read(fn func() (bool, error)) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false, tdb.ErrClosed
	}
	return fn()
}

func (d *DatasetGraph) AddTriple(t *rdf.Triple) (bool, error) {
	return d.write(func() (bool, error) { return d.triples.Add(t) })
}

func (d *DatasetGraph) DeleteTriple(t *rdf.Triple) (bool, error) {
	return d.write(func() (bool, error) { return d.triples.Delete(t) })
}

func (d *DatasetGraph) ContainsTriple(t *rdf.Triple) (bool, error) {
	return d.read(func() (bool, error) { return d.triples.Contains(t) })
}

func inDefaultGraph(q *rdf.Quad) bool {
	return q.Graph == nil || rdf.IsDefaultGraph(q.Graph)
}

// AddQuad stores q; quads in the default graph go to the triple table.
func (d *DatasetGraph) AddQuad(q *rdf.Quad) (bool, error) {
	return d.write(func() (bool, error) {
		if inDefaultGraph(q) {
			return d.triples.Add(q.Triple())
		}
		return d.quads.Add(q)
	})
}

func (d *DatasetGraph) DeleteQuad(q *rdf.Quad) (bool, error) {
	return d.write(func() (bool, error) {
		if inDefaultGraph(q) {
			return d.triples.Delete(q.Triple())
		}
		return d.quads.Delete(q)
	})
}

func (d *DatasetGraph) ContainsQuad(q *rdf.Quad) (bool, error) {
	return d.read(func() (bool, error) {
		if inDefaultGraph(q) {
			return d.triples.Contains(q.Triple())
		}
		return d.quads.Contains(q)
	})
}

func (d *DatasetGraph) FindTriples(s, p, o rdf.Term) iter.Seq2[*rdf.Triple, error] {
	return scanSeq(d, func() (*Scan[*rdf.Triple], error) { return d.triples.Scan(s, p, o) })
}

func (d *DatasetGraph) defaultQuads(s, p, o rdf.Term) iter.Seq2[*rdf.Quad, error] {
	return func(yield func(*rdf.Quad, error) bool) {
		dg := rdf.NewDefaultGraph()
		for t, err := range d.FindTriples(s, p, o) {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(rdf.NewQuad(t.Subject, t.Predicate, t.Object, dg), nil) {
				return
			}
		}
	}
}

// FindQuads matches across the dataset. A nil graph yields the named graphs
// first and then the default graph; rdf.DefaultGraph restricts to it.
func (d *DatasetGraph) FindQuads(g, s, p, o rdf.Term) iter.Seq2[*rdf.Quad, error] {
	named := scanSeq(d, func() (*Scan[*rdf.Quad], error) { return d.quads.Scan(g, s, p, o) })
	switch {
	case rdf.IsDefaultGraph(g):
		return d.defaultQuads(s, p, o)
	case g == nil:
		return concat(named, d.defaultQuads(s, p, o))
	default:
		return named
	}
}

// ListGraphs yields each named graph once.
func (d *DatasetGraph) ListGraphs() iter.Seq2[rdf.Term, error] {
	return scanSeq(d, d.quads.ScanGraphs)
}

func (d *DatasetGraph) CountTriples() (int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return 0, tdb.ErrClosed
	}
	return d.triples.Size()
}

// CountQuads counts the statements in named graphs.
func (d *DatasetGraph) CountQuads() (int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return 0, tdb.ErrClosed
	}
	return d.quads.Size()
}

// PredicateCount is one row of PredicateStats.
type PredicateCount struct {
	Predicate rdf.Term
	Count     int64
}

// PredicateStats counts statements per predicate over the whole dataset,
// most frequent first.
func (d *DatasetGraph) PredicateStats() ([]PredicateCount, error) {
	counts := map[string]*PredicateCount{}
	for q, err := range d.FindQuads(nil, nil, nil, nil) {
		if err != nil {
			return nil, err
		}
		key := q.Predicate.String()
		pc, ok := counts[key]
		if !ok {
			pc = &PredicateCount{Predicate: q.Predicate}
			counts[key] = pc
		}
		pc.Count++
	}

	out := make([]PredicateCount, 0, len(counts))
	for _, pc := range counts {
		out = append(out, *pc)
	}
	slices.SortFunc(out, func(a, b PredicateCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Predicate.String(), b.Predicate.String())
	})
	return out, nil
}

// CacheStats snapshots every registered cache.
func (d *DatasetGraph) CacheStats() map[string]cache.Stats {
	return d.opts.Caches.Snapshot()
}

// Location names the dataset directory, "mem" for an in-memory dataset.
func (d *DatasetGraph) Location() string {
	return d.opts.Location.String()
}

func (d *DatasetGraph) IsMem() bool {
	return d.opts.Location.IsMem()
}

// Files lists the files of the location; none for an in-memory dataset.
func (d *DatasetGraph) Files() ([]location.File, error) {
	return d.opts.Location.Files()
}

func (d *DatasetGraph) Params() map[string]string {
	return maps.Clone(d.opts.Params)
}

func (d *DatasetGraph) Triples() *TripleTable { return d.triples }
func (d *DatasetGraph) Quads() *QuadTable     { return d.quads }

// Prefixes returns the prefix mappings, nil if the dataset has none.
func (d *DatasetGraph) Prefixes() *PrefixTable { return d.opts.Prefixes }

// tables lists what Sync and Close visit, in order.
func (d *DatasetGraph) tables() []interface {
	Sync() error
	Close() error
} {
	ts := []interface {
		Sync() error
		Close() error
	}{d.triples, d.quads, d.nodes}
	if d.opts.Prefixes != nil {
		ts = append(ts, d.opts.Prefixes)
	}
	return ts
}

func (d *DatasetGraph) Sync() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return tdb.ErrClosed
	}
	return d.sync()
}

func (d *DatasetGraph) sync() error {
	for _, s := range d.tables() {
		if err := s.Sync(); err != nil {
			return err
		}
	}
	if d.opts.OnSync != nil {
		return d.opts.OnSync()
	}
	return nil
}

// Close syncs and releases everything. Closing twice is a no-op.
func (d *DatasetGraph) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.epoch++

	first := d.sync()
	for _, c := range d.tables() {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	if d.opts.OnClose != nil {
		if err := d.opts.OnClose(); err != nil && first == nil {
			first = err
		}
	}
	if first != nil {
		d.log.WithError(first).WithField("location", d.Location()).Error("Dataset close failed")
	} else {
		d.log.WithField("location", d.Location()).Debug("Dataset closed")
	}
	return first
}
