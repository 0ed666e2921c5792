package setup

import (
	"slices"
	"strconv"
	"strings"

	"github.com/aleksaelezovic/tdbgo/internal/location"
	"github.com/aleksaelezovic/tdbgo/pkg/store"
)

// decide settles the params against the location metafile.
//
// Layout values are fixed once recorded: a supplied value that differs from
// the stored one is an error. Cache sizes are dynamic: a supplied size wins
// for this open, a stored size is used otherwise, and absent keys are
// written back.
func decide(meta *location.MetaFile, supplied Params) (Params, error) {
	def := DefaultParams()
	var err error

	fixed := func(key, given, dflt string) string {
		if err != nil {
			return ""
		}
		stored, ok := meta.Get(key)
		switch {
		case ok && given != "" && !strings.EqualFold(stored, given):
			err = store.ConfigErrorf("%s is %q in this location, %q requested", key, stored, given)
			return ""
		case ok:
			return stored
		case given != "":
			err = meta.Set(key, given)
			return given
		default:
			err = meta.Set(key, dflt)
			return dflt
		}
	}
	fixedInt := func(key string, given, dflt int) int {
		v := fixed(key, itoa(given), itoa(dflt))
		if err != nil {
			return 0
		}
		n, perr := strconv.Atoi(v)
		if perr != nil {
			err = store.ConfigErrorf("%s=%q is not a number", key, v)
		}
		return n
	}
	dynamic := func(key string, given, dflt int) int {
		if err != nil {
			return 0
		}
		if given != 0 {
			_, err = meta.GetOrSetDefault(key, strconv.Itoa(given))
			return given
		}
		n, ok, gerr := meta.GetInt(key)
		if gerr != nil {
			err = store.ConfigErrorf("%v", gerr)
			return 0
		}
		if ok {
			return n
		}
		err = meta.Set(key, strconv.Itoa(dflt))
		return dflt
	}

	var p Params
	p.FileImpl = strings.ToLower(fixed(KeyFileImpl, strings.ToLower(supplied.FileImpl), def.FileImpl))
	p.BlockSize = fixedInt(KeyBlockSize, supplied.BlockSize, def.BlockSize)
	p.TriplesPrimary = strings.ToUpper(fixed(KeyTriplesPrimary, strings.ToUpper(supplied.TriplesPrimary), def.TriplesPrimary))
	p.Triples = splitList(fixed(KeyTriples, normList(supplied.Triples), joinList(def.Triples)))
	p.QuadsPrimary = strings.ToUpper(fixed(KeyQuadsPrimary, strings.ToUpper(supplied.QuadsPrimary), def.QuadsPrimary))
	p.Quads = splitList(fixed(KeyQuads, normList(supplied.Quads), joinList(def.Quads)))
	p.Node2ID = fixed(KeyNode2ID, supplied.Node2ID, def.Node2ID)
	p.ID2Node = fixed(KeyID2Node, supplied.ID2Node, def.ID2Node)
	p.PrefixIndexFile = fixed(KeyPrefixIndexFile, supplied.PrefixIndexFile, def.PrefixIndexFile)
	p.PrefixPrimary = strings.ToUpper(fixed(KeyPrefixPrimary, strings.ToUpper(supplied.PrefixPrimary), def.PrefixPrimary))
	p.PrefixIndexes = splitList(fixed(KeyPrefixIndexes, normList(supplied.PrefixIndexes), joinList(def.PrefixIndexes)))
	p.PrefixNode2ID = fixed(KeyPrefixNode2ID, supplied.PrefixNode2ID, def.PrefixNode2ID)
	p.PrefixID2Node = fixed(KeyPrefixID2Node, supplied.PrefixID2Node, def.PrefixID2Node)

	p.Node2NodeIDCache = dynamic(KeyCacheNode2NodeID, supplied.Node2NodeIDCache, def.Node2NodeIDCache)
	p.NodeID2NodeCache = dynamic(KeyCacheNodeID2Node, supplied.NodeID2NodeCache, def.NodeID2NodeCache)
	p.NodeMissCache = dynamic(KeyCacheNodeMiss, supplied.NodeMissCache, def.NodeMissCache)
	p.BlockReadCache = dynamic(KeyCacheBlockRead, supplied.BlockReadCache, def.BlockReadCache)
	p.BlockWriteCache = dynamic(KeyCacheBlockWrite, supplied.BlockWriteCache, def.BlockWriteCache)

	if err != nil {
		return Params{}, err
	}
	return p, p.Validate()
}

// Validate checks the layout is one a dataset can be built from.
func (p Params) Validate() error {
	def := DefaultParams()
	switch p.FileImpl {
	case ImplBPlusTree, ImplBadger:
	default:
		return store.ConfigErrorf("unknown %s %q", KeyFileImpl, p.FileImpl)
	}
	if p.BlockSize <= 0 {
		return store.ConfigErrorf("%s must be positive, got %d", KeyBlockSize, p.BlockSize)
	}
	// Tables take terms in their primary order, so primaries are fixed.
	for _, c := range []struct{ key, got, want string }{
		{KeyTriplesPrimary, p.TriplesPrimary, def.TriplesPrimary},
		{KeyQuadsPrimary, p.QuadsPrimary, def.QuadsPrimary},
		{KeyPrefixPrimary, p.PrefixPrimary, def.PrefixPrimary},
	} {
		if c.got != c.want {
			return store.ConfigErrorf("%s must be %s, got %q", c.key, c.want, c.got)
		}
	}
	if len(p.Triples) != 3 {
		return store.ConfigErrorf("wrong number of triple table indexes: %s", joinList(p.Triples))
	}
	if len(p.Quads) != 6 {
		return store.ConfigErrorf("wrong number of quad table indexes: %s", joinList(p.Quads))
	}
	if len(p.PrefixIndexes) != 1 {
		return store.ConfigErrorf("wrong number of prefix table indexes: %s", joinList(p.PrefixIndexes))
	}
	for _, t := range []struct {
		kind, primary string
		orders        []string
	}{
		{"triple", p.TriplesPrimary, p.Triples},
		{"quad", p.QuadsPrimary, p.Quads},
		{"prefix", p.PrefixPrimary, p.PrefixIndexes},
	} {
		if err := checkOrders(t.kind, t.primary, t.orders); err != nil {
			return err
		}
	}
	for _, name := range []string{p.Node2ID, p.ID2Node, p.PrefixIndexFile, p.PrefixNode2ID, p.PrefixID2Node} {
		if name == "" {
			return store.ConfigErrorf("table file names must not be empty")
		}
	}
	return nil
}

// checkOrders requires every index order to be a distinct permutation of
// the primary.
func checkOrders(kind, primary string, orders []string) error {
	want := sortedLetters(primary)
	seen := map[string]bool{}
	for _, o := range orders {
		if sortedLetters(o) != want {
			return store.ConfigErrorf("%s index %s is not a permutation of %s", kind, o, primary)
		}
		if seen[o] {
			return store.ConfigErrorf("%s index %s is listed twice", kind, o)
		}
		seen[o] = true
	}
	return nil
}

func sortedLetters(s string) string {
	b := []byte(s)
	slices.Sort(b)
	return string(b)
}

func normList(l []string) string {
	return joinList(splitList(joinList(l)))
}
