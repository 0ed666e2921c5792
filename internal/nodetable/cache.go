package nodetable

import (
	"errors"

	"github.com/aleksaelezovic/tdbgo/internal/cache"
	"github.com/aleksaelezovic/tdbgo/internal/encoding"
	"github.com/aleksaelezovic/tdbgo/pkg/rdf"
	"github.com/aleksaelezovic/tdbgo/pkg/store"
)

// Cache fronts another node table with a term-to-id cache, an id-to-term
// read-through cache and a cache of terms known to be absent. All three are
// synchronized so concurrent readers may share them.
type Cache struct {
	base    NodeTable
	node2id cache.Cache[string, encoding.NodeID]
	id2node *cache.Getter[encoding.NodeID, rdf.Term]
	miss    cache.Cache[string, bool]

	stats map[string]cache.StatsReporter
}

func NewCache(base NodeTable, sizes Sizes) *Cache {
	n2i := cache.NewStatsAtomic[string, encoding.NodeID](cache.New[string, encoding.NodeID](sizes.NodeToID))
	i2n := cache.NewStatsAtomic[encoding.NodeID, rdf.Term](cache.New[encoding.NodeID, rdf.Term](sizes.IDToNode))
	miss := cache.NewStatsAtomic[string, bool](cache.New[string, bool](sizes.Miss))

	return &Cache{
		base:    base,
		node2id: cache.NewSynchronized[string, encoding.NodeID](n2i),
		id2node: cache.NewGetter[encoding.NodeID, rdf.Term](
			cache.NewSynchronized[encoding.NodeID, rdf.Term](i2n), base.NodeForNodeID),
		miss: cache.NewSynchronized[string, bool](miss),
		stats: map[string]cache.StatsReporter{
			"node2id":  n2i,
			"id2node":  i2n,
			"nodemiss": miss,
		},
	}
}

func (c *Cache) NodeIDForNode(term rdf.Term, create bool) (encoding.NodeID, error) {
	canonical, err := encoding.EncodeTerm(term)
	if err != nil {
		return encoding.NodeIDNone, err
	}
	key := string(canonical)

	if id, ok := c.node2id.Get(key); ok {
		return id, nil
	}
	if !create && c.miss.ContainsKey(key) {
		return encoding.NodeIDNone, store.ErrNotFound
	}

	id, err := c.base.NodeIDForNode(term, create)
	if errors.Is(err, store.ErrNotFound) {
		if _, _, perr := c.miss.Put(key, true); perr != nil {
			return encoding.NodeIDNone, perr
		}
		return encoding.NodeIDNone, err
	}
	if err != nil {
		return encoding.NodeIDNone, err
	}

	c.miss.Remove(key)
	if _, _, err := c.node2id.Put(key, id); err != nil {
		return encoding.NodeIDNone, err
	}
	if _, _, err := c.id2node.Put(id, term); err != nil {
		return encoding.NodeIDNone, err
	}
	return id, nil
}

func (c *Cache) NodeForNodeID(id encoding.NodeID) (rdf.Term, error) {
	return c.id2node.Fetch(id)
}

// Stats returns the counters of the three caches by name.
func (c *Cache) Stats() map[string]cache.StatsReporter {
	return c.stats
}

func (c *Cache) Sync() error {
	return c.base.Sync()
}

func (c *Cache) Close() error {
	c.node2id.Clear()
	c.id2node.Clear()
	c.miss.Clear()
	return c.base.Close()
}
