package setup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/tdbgo/internal/location"
	"github.com/aleksaelezovic/tdbgo/internal/objectfile"
	"github.com/aleksaelezovic/tdbgo/internal/store"
	"github.com/aleksaelezovic/tdbgo/pkg/rdf"
	tdb "github.com/aleksaelezovic/tdbgo/pkg/store"
)

func ex(s string) *rdf.NamedNode { return rdf.NewNamedNode("http://example.org/" + s) }

func quietLogger() *logrus.Logger {
	log, _ := logtest.NewNullLogger()
	return log
}

func countTriples(t *testing.T, ds *store.DatasetGraph, s, p, o rdf.Term) int {
	t.Helper()
	n := 0
	for _, err := range ds.FindTriples(s, p, o) {
		require.NoError(t, err)
		n++
	}
	return n
}

func TestOpenMem(t *testing.T) {
	ds, err := OpenMem(WithLogger(quietLogger()))
	require.NoError(t, err)
	defer ds.Close()

	_, err = ds.AddTriple(rdf.NewTriple(ex("a"), ex("p"), rdf.NewLiteral("lit")))
	require.NoError(t, err)
	_, err = ds.AddQuad(rdf.NewQuad(ex("a"), ex("p"), ex("b"), ex("g")))
	require.NoError(t, err)

	assert.Equal(t, 1, countTriples(t, ds, nil, ex("p"), nil))
	assert.Equal(t, "mem", ds.Location())

	params := ds.Params()
	assert.Equal(t, "SPO,POS,OSP", params[KeyTriples])
	assert.Equal(t, "GSPO,GPOS,GOSP,POSG,OSPG,SPOG", params[KeyQuads])
	assert.Equal(t, ImplBPlusTree, params[KeyFileImpl])
	_, err = uuid.Parse(params[KeyCreateID])
	assert.NoError(t, err)

	stats := ds.CacheStats()
	assert.Contains(t, stats, "node2id")
	assert.Contains(t, stats, "SPO.dat.read")
}

func TestReopenFromDisk(t *testing.T) {
	for _, impl := range []string{ImplBPlusTree, ImplBadger} {
		t.Run(impl, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "db")
			params := Params{FileImpl: impl, BlockSize: 1024}

			ds, err := Open(dir, WithParams(params), WithLogger(quietLogger()))
			require.NoError(t, err)
			for i := 0; i < 200; i++ {
				_, err := ds.AddTriple(rdf.NewTriple(ex("s"), ex("p"), rdf.NewIntegerLiteral(int64(i))))
				require.NoError(t, err)
			}
			_, err = ds.AddTriple(rdf.NewTriple(ex("s"), ex("name"), rdf.NewLiteral("a name too long to be inlined")))
			require.NoError(t, err)
			_, err = ds.AddQuad(rdf.NewQuad(ex("s"), ex("p"), ex("o"), ex("g")))
			require.NoError(t, err)
			written := ds.Params()
			require.NoError(t, ds.Close())

			_, err = os.Stat(filepath.Join(dir, "this.info"))
			require.NoError(t, err)
			_, err = os.Stat(filepath.Join(dir, "SPO.info"))
			require.NoError(t, err)

			// Supplying nothing reuses the stored layout.
			ds, err = Open(dir, WithLogger(quietLogger()))
			require.NoError(t, err)
			defer ds.Close()
			assert.Equal(t, written, ds.Params())

			n, err := ds.CountTriples()
			require.NoError(t, err)
			assert.Equal(t, int64(201), n)
			assert.Equal(t, 200, countTriples(t, ds, nil, ex("p"), nil))
			assert.Equal(t, 1, countTriples(t, ds, nil, nil, rdf.NewLiteral("a name too long to be inlined")))

			ok, err := ds.ContainsQuad(rdf.NewQuad(ex("s"), ex("p"), ex("o"), ex("g")))
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, impl, ds.Params()[KeyFileImpl])
			assert.Equal(t, "1024", ds.Params()[KeyBlockSize])
		})
	}
}

func TestLayoutMismatchIsFatal(t *testing.T) {
	dir := t.TempDir()
	ds, err := Open(dir, WithParams(Params{BlockSize: 1024}), WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, ds.Close())

	log, hook := logtest.NewNullLogger()
	_, err = Open(dir, WithParams(Params{BlockSize: 2048}), WithLogger(log))
	assert.ErrorIs(t, err, tdb.ErrConfigInconsistent)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)

	_, err = Open(dir, WithParams(Params{FileImpl: ImplBadger}), WithLogger(quietLogger()))
	assert.ErrorIs(t, err, tdb.ErrConfigInconsistent)

	// The failed opens released the location.
	ds, err = Open(dir, WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, ds.Close())
}

func TestStoredOrderMustMatch(t *testing.T) {
	dir := t.TempDir()
	ds, err := Open(dir, WithParams(Params{BlockSize: 1024}), WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, ds.Close())

	path := filepath.Join(dir, "POS.info")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), KeyBPlusTreeOrder)
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, KeyBPlusTreeOrder) {
			line = KeyBPlusTreeOrder + " = 3"
		}
		lines = append(lines, line)
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644))

	_, err = Open(dir, WithLogger(quietLogger()))
	assert.ErrorIs(t, err, tdb.ErrConfigInconsistent)
}

func TestWrongIndexCount(t *testing.T) {
	_, err := OpenMem(WithParams(Params{Triples: []string{"SPO", "POS"}}), WithLogger(quietLogger()))
	assert.ErrorIs(t, err, tdb.ErrConfigInconsistent)

	_, err = OpenMem(WithParams(Params{QuadsPrimary: "SPO"}), WithLogger(quietLogger()))
	assert.ErrorIs(t, err, tdb.ErrConfigInconsistent)

	_, err = OpenMem(WithParams(Params{Triples: []string{"SPO", "POS", "PPO"}}), WithLogger(quietLogger()))
	assert.ErrorIs(t, err, tdb.ErrConfigInconsistent)
}

func TestIndexOrdersMustBeDistinctPermutations(t *testing.T) {
	for name, params := range map[string]Params{
		"duplicate triple index": {Triples: []string{"SPO", "SPO", "POS"}},
		"duplicate quad index":   {Quads: []string{"GSPO", "GPOS", "GOSP", "POSG", "OSPG", "GSPO"}},
		"foreign column":         {Triples: []string{"SPO", "POS", "OSX"}},
		"short order":            {Quads: []string{"GSPO", "GPOS", "GOSP", "POSG", "OSPG", "SPO"}},
		"bad prefix index":       {PrefixIndexes: []string{"GPX"}},
		"two prefix indexes":     {PrefixIndexes: []string{"GPU", "PUG"}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := OpenMem(WithParams(params), WithLogger(quietLogger()))
			assert.ErrorIs(t, err, tdb.ErrConfigInconsistent)

			_, err = Open(t.TempDir(), WithParams(params), WithLogger(quietLogger()))
			assert.ErrorIs(t, err, tdb.ErrConfigInconsistent)
			assert.NotErrorIs(t, err, tdb.ErrCorrupt)
		})
	}
}

func TestPrimaryOrdersAreFixed(t *testing.T) {
	_, err := OpenMem(WithParams(Params{TriplesPrimary: "POS"}), WithLogger(quietLogger()))
	assert.ErrorIs(t, err, tdb.ErrConfigInconsistent)

	_, err = OpenMem(WithParams(Params{QuadsPrimary: "SPOG"}), WithLogger(quietLogger()))
	assert.ErrorIs(t, err, tdb.ErrConfigInconsistent)

	_, err = OpenMem(WithParams(Params{PrefixPrimary: "PUG"}), WithLogger(quietLogger()))
	assert.ErrorIs(t, err, tdb.ErrConfigInconsistent)

	ds, err := OpenMem(WithParams(Params{TriplesPrimary: "spo", QuadsPrimary: "GSPO"}), WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, ds.Close())
}

func TestPrefixesPersist(t *testing.T) {
	for _, impl := range []string{ImplBPlusTree, ImplBadger} {
		t.Run(impl, func(t *testing.T) {
			dir := t.TempDir()
			ds, err := Open(dir, WithParams(Params{FileImpl: impl, BlockSize: 1024}), WithLogger(quietLogger()))
			require.NoError(t, err)
			require.NotNil(t, ds.Prefixes())
			require.NoError(t, ds.Prefixes().Set("", "ex", "http://example.org/"))
			require.NoError(t, ds.Prefixes().Set("http://example.org/g", "foaf", "http://xmlns.com/foaf/0.1/"))
			require.NoError(t, ds.Close())

			for _, f := range []string{"prefixIdx.info", "prefixes.info", "id2prefix.info"} {
				_, err = os.Stat(filepath.Join(dir, f))
				assert.NoError(t, err, f)
			}

			ds, err = Open(dir, WithLogger(quietLogger()))
			require.NoError(t, err)
			defer ds.Close()

			params := ds.Params()
			assert.Equal(t, "prefixIdx", params[KeyPrefixIndexFile])
			assert.Equal(t, "GPU", params[KeyPrefixPrimary])
			assert.Equal(t, "GPU", params[KeyPrefixIndexes])
			assert.Equal(t, "prefixes", params[KeyPrefixNode2ID])
			assert.Equal(t, "id2prefix", params[KeyPrefixID2Node])

			iri, ok, err := ds.Prefixes().Get("", "ex")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "http://example.org/", iri)

			m, err := ds.Prefixes().Mapping("http://example.org/g")
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"foaf": "http://xmlns.com/foaf/0.1/"}, m)

			// Prefix terms live apart from the data terms.
			n, err := ds.CountTriples()
			require.NoError(t, err)
			assert.Zero(t, n)

			_, err = Open(dir, WithParams(Params{PrefixIndexFile: "other"}), WithLogger(quietLogger()))
			assert.ErrorIs(t, err, tdb.ErrConfigInconsistent)
		})
	}
}

func TestCacheSizesAreDynamic(t *testing.T) {
	dir := t.TempDir()
	ds, err := Open(dir, WithParams(Params{BlockSize: 1024, NodeMissCache: 7}), WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, ds.Close())

	ds, err = Open(dir, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Equal(t, "7", ds.Params()[KeyCacheNodeMiss])
	assert.Equal(t, "1000", ds.Params()[KeyCacheBlockRead])
	require.NoError(t, ds.Close())

	ds, err = Open(dir, WithParams(Params{NodeMissCache: 9}), WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, ds.Close())
}

func TestCacheMetricsRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	ds, err := OpenMem(WithRegisterer(reg), WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = ds.AddTriple(rdf.NewTriple(ex("a"), ex("p"), ex("b")))
	require.NoError(t, err)
	n, err := testutil.GatherAndCount(reg, "tdb_cache_hits_total")
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	require.NoError(t, ds.Close())
	n, err = testutil.GatherAndCount(reg, "tdb_cache_hits_total")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCustomObjectFileBuilder(t *testing.T) {
	var built []string
	ds, err := OpenMem(WithLogger(quietLogger()), WithObjectFileBuilder(ObjectFileBuilderFunc(
		func(fs *location.FileSet) (objectfile.ObjectFile, error) {
			built = append(built, fs.Basename())
			return objectfile.NewMem(), nil
		})))
	require.NoError(t, err)
	defer ds.Close()
	assert.Equal(t, []string{"nodes"}, built)
}

func TestLoadParams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fileImpl: badger\nblockSize: 4096\ntriples: [SPO, OSP, POS]\nnodeMissCache: 5\n"), 0o644))

	p, err := LoadParams(path)
	require.NoError(t, err)
	assert.Equal(t, ImplBadger, p.FileImpl)
	assert.Equal(t, 4096, p.BlockSize)
	assert.Equal(t, []string{"SPO", "OSP", "POS"}, p.Triples)
	assert.Equal(t, 5, p.NodeMissCache)
	assert.Zero(t, p.BlockReadCache)

	out, err := DefaultParams().Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "fileImpl: bplustree")
}
