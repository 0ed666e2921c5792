// Package setup assembles a dataset from a location: it settles the layout
// recorded in the location's metafiles and builds every index and table.
package setup

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/aleksaelezovic/tdbgo/internal/bptree"
)

const (
	ImplBPlusTree = "bplustree"
	ImplBadger    = "badger"
)

// Location metafile keys.
const (
	KeyCreateVersion    = "tdb.create.version"
	KeyCreated          = "tdb.created"
	KeyCreateID         = "tdb.create.id"
	KeyLayout           = "tdb.layout"
	KeyType             = "tdb.type"
	KeyTriplesPrimary   = "tdb.indexes.triples.primary"
	KeyTriples          = "tdb.indexes.triples"
	KeyQuadsPrimary     = "tdb.indexes.quads.primary"
	KeyQuads            = "tdb.indexes.quads"
	KeyNode2ID          = "tdb.nodetable.mapping.node2id"
	KeyID2Node          = "tdb.nodetable.mapping.id2node"
	KeyPrefixIndexFile  = "tdb.prefixes.index.file"
	KeyPrefixPrimary    = "tdb.prefixes.primary"
	KeyPrefixIndexes    = "tdb.prefixes.indexes"
	KeyPrefixNode2ID    = "tdb.prefixes.nodetable.mapping.node2id"
	KeyPrefixID2Node    = "tdb.prefixes.nodetable.mapping.id2node"
	KeyFileImpl         = "tdb.file.impl"
	KeyBlockSize        = "tdb.bplustree.blksize"
	KeyCacheNode2NodeID = "tdb.cache.node2nodeid"
	KeyCacheNodeID2Node = "tdb.cache.nodeid2node"
	KeyCacheNodeMiss    = "tdb.cache.nodemiss"
	KeyCacheBlockRead   = "tdb.cache.block.read"
	KeyCacheBlockWrite  = "tdb.cache.block.write"
	KeyFileType         = "tdb.file.type"
	KeyFileIndexOrder   = "tdb.file.indexorder"
	KeyBPlusTreeRecord  = "tdb.bplustree.record"
	KeyBPlusTreeOrder   = "tdb.bplustree.order"
	FileTypeRangeIndex  = "rangeindex"
	FileTypeObjectFile  = "object"
	LayoutVersion       = "v1"
	TypeStandalone      = "standalone"
	Version             = "0.1.0"
)

// Params are the store parameters an application may supply. A zero field
// means "not supplied": the stored value is used, or the default for a new
// location.
type Params struct {
	FileImpl  string `yaml:"fileImpl"`
	BlockSize int    `yaml:"blockSize"`

	TriplesPrimary string   `yaml:"triplesPrimary"`
	Triples        []string `yaml:"triples"`
	QuadsPrimary   string   `yaml:"quadsPrimary"`
	Quads          []string `yaml:"quads"`
	Node2ID        string   `yaml:"node2id"`
	ID2Node        string   `yaml:"id2node"`

	PrefixIndexFile string   `yaml:"prefixIndexFile"`
	PrefixPrimary   string   `yaml:"prefixPrimary"`
	PrefixIndexes   []string `yaml:"prefixIndexes"`
	PrefixNode2ID   string   `yaml:"prefixNode2id"`
	PrefixID2Node   string   `yaml:"prefixId2node"`

	Node2NodeIDCache int `yaml:"node2NodeIDCache"`
	NodeID2NodeCache int `yaml:"nodeID2NodeCache"`
	NodeMissCache    int `yaml:"nodeMissCache"`
	BlockReadCache   int `yaml:"blockReadCache"`
	BlockWriteCache  int `yaml:"blockWriteCache"`
}

// DefaultParams are the values a new location records.
func DefaultParams() Params {
	return Params{
		FileImpl:         ImplBPlusTree,
		BlockSize:        bptree.DefaultBlockSize,
		TriplesPrimary:   "SPO",
		Triples:          []string{"SPO", "POS", "OSP"},
		QuadsPrimary:     "GSPO",
		Quads:            []string{"GSPO", "GPOS", "GOSP", "POSG", "OSPG", "SPOG"},
		Node2ID:          "node2id",
		ID2Node:          "nodes",
		PrefixIndexFile:  "prefixIdx",
		PrefixPrimary:    "GPU",
		PrefixIndexes:    []string{"GPU"},
		PrefixNode2ID:    "prefixes",
		PrefixID2Node:    "id2prefix",
		Node2NodeIDCache: 100000,
		NodeID2NodeCache: 500000,
		NodeMissCache:    100,
		BlockReadCache:   1000,
		BlockWriteCache:  1000,
	}
}

// LoadParams reads params from a YAML file. Absent fields stay zero.
func LoadParams(path string) (Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("failed to read params: %w", err)
	}
	var p Params
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Params{}, fmt.Errorf("failed to parse params %s: %w", path, err)
	}
	return p, nil
}

// Marshal renders p as YAML.
func (p Params) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

func joinList(l []string) string {
	return strings.Join(l, ",")
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, strings.ToUpper(f))
		}
	}
	return out
}

func itoa(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
