package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/aleksaelezovic/tdbgo/internal/setup"
	"github.com/aleksaelezovic/tdbgo/pkg/rdf"
)

const sample = `<http://example.org/a> <http://example.org/p> "one" .
<http://example.org/a> <http://example.org/p> "two" <http://example.org/g> .
# comment
<http://example.org/b> <http://example.org/q> <http://example.org/a> .
`

func quiet() *logrus.Logger {
	log, _ := logtest.NewNullLogger()
	return log
}

func TestLoadXZAndDump(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "data.nq.xz")
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	_, err = io.WriteString(w, sample)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(in, buf.Bytes(), 0o644))

	ds, err := setup.Open(filepath.Join(dir, "db"), setup.WithParams(setup.Params{BlockSize: 1024}), setup.WithLogger(quiet()))
	require.NoError(t, err)
	require.NoError(t, runLoad(ds, []string{in}, quiet()))

	n, err := ds.CountTriples()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	n, err = ds.CountQuads()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	out := filepath.Join(dir, "dump.nq")
	require.NoError(t, runDump(ds, out))
	require.NoError(t, ds.Close())

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	r := rdf.NewNQuadsReader(f)
	var quads []*rdf.Quad
	for {
		q, err := r.Read()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		quads = append(quads, q)
	}
	require.Len(t, quads, 3)
	assert.Equal(t, "http://example.org/g", quads[0].Graph.(*rdf.NamedNode).IRI)
}

func TestParsePatternTerm(t *testing.T) {
	term, err := parsePatternTerm("ANY")
	require.NoError(t, err)
	assert.Nil(t, term)

	term, err = parsePatternTerm("default")
	require.NoError(t, err)
	assert.True(t, rdf.IsDefaultGraph(term))

	term, err = parsePatternTerm(`"chat"@fr`)
	require.NoError(t, err)
	assert.True(t, term.Equals(rdf.NewLiteralWithLanguage("chat", "fr")))

	_, err = parsePatternTerm("not-a-term")
	assert.Error(t, err)
}

func TestPrefixesAndStats(t *testing.T) {
	ds, err := setup.Open(t.TempDir(), setup.WithParams(setup.Params{BlockSize: 1024}), setup.WithLogger(quiet()))
	require.NoError(t, err)
	defer ds.Close()

	require.NoError(t, runPrefixes(ds, []string{"ex", "http://example.org/"}))
	require.NoError(t, runPrefixes(ds, []string{"http://example.org/g", "foaf", "http://xmlns.com/foaf/0.1/"}))
	require.NoError(t, runPrefixes(ds, nil))

	iri, ok, err := ds.Prefixes().Get("", "ex")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "http://example.org/", iri)

	assert.False(t, ds.IsMem())
	files, err := ds.Files()
	require.NoError(t, err)
	assert.NotEmpty(t, files)
	require.NoError(t, runStats(ds))
}
