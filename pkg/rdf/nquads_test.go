package rdf

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, input string) []*Quad {
	t.Helper()
	r := NewNQuadsReader(strings.NewReader(input))
	var out []*Quad
	for {
		q, err := r.Read()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, q)
	}
}

func TestNQuadsReader(t *testing.T) {
	input := `# leading comment
<http://example.org/a> <http://example.org/p> <http://example.org/b> .

_:b1 <http://example.org/p> "chat"@fr <http://example.org/g> .
<http://example.org/a> <http://example.org/p> "42"^^<http://www.w3.org/2001/XMLSchema#integer> _:g .
<http://example.org/a> <http://example.org/p> "tab\there é" .
<http://example.org/a> <http://example.org/p> "no newline" .`

	quads := readAll(t, input)
	require.Len(t, quads, 5)

	assert.True(t, IsDefaultGraph(quads[0].Graph))
	assert.True(t, quads[0].Object.Equals(NewNamedNode("http://example.org/b")))

	assert.True(t, quads[1].Subject.Equals(NewBlankNode("b1")))
	assert.True(t, quads[1].Object.Equals(NewLiteralWithLanguage("chat", "fr")))
	assert.True(t, quads[1].Graph.Equals(NewNamedNode("http://example.org/g")))

	assert.True(t, quads[2].Object.Equals(NewIntegerLiteral(42)))
	assert.True(t, quads[2].Graph.Equals(NewBlankNode("g")))

	assert.Equal(t, "tab\there é", quads[3].Object.(*Literal).Value)
	assert.Equal(t, "no newline", quads[4].Object.(*Literal).Value)
}

func TestNQuadsReaderErrors(t *testing.T) {
	bad := []string{
		`"lit" <http://example.org/p> <http://example.org/o> .`,
		`<http://example.org/s> _:p <http://example.org/o> .`,
		`<http://example.org/s> <http://example.org/p> <http://example.org/o>`,
		`<http://example.org/s> <http://example.org/p> "open .`,
		`<relative> <http://example.org/p> <http://example.org/o> .`,
		`<http://example.org/s> <http://example.org/p> <http://example.org/o> . extra`,
	}
	for _, line := range bad {
		_, err := NewNQuadsReader(strings.NewReader(line + "\n")).Read()
		assert.Error(t, err, line)
	}

	_, err := NewNQuadsReader(strings.NewReader("<http://example.org/s> <http://example.org/p> <http://example.org/o> .\nbroken\n")).Read()
	require.NoError(t, err)
}

func TestNQuadsRoundTrip(t *testing.T) {
	quads := []*Quad{
		NewQuad(NewNamedNode("http://example.org/a"), NewNamedNode("http://example.org/p"), NewLiteral("line\nbreak \"quoted\""), NewDefaultGraph()),
		NewQuad(NewBlankNode("x"), NewNamedNode("http://example.org/p"), NewLiteralWithLanguage("hi", "en-GB"), NewNamedNode("http://example.org/g")),
		NewQuad(NewNamedNode("http://example.org/a"), NewNamedNode("http://example.org/p"), NewBooleanLiteral(false), NewNamedNode("http://example.org/g")),
	}

	var buf bytes.Buffer
	w := NewNQuadsWriter(&buf)
	for _, q := range quads {
		require.NoError(t, w.Write(q))
	}
	require.NoError(t, w.Flush())

	got := readAll(t, buf.String())
	require.Len(t, got, len(quads))
	for i := range quads {
		assert.True(t, quads[i].Equals(got[i]), "quad %d: %s != %s", i, quads[i], got[i])
	}
}

func TestParseTerm(t *testing.T) {
	term, err := ParseTerm(" <http://example.org/a> ")
	require.NoError(t, err)
	assert.True(t, term.Equals(NewNamedNode("http://example.org/a")))

	term, err = ParseTerm(`"2.5"^^<http://www.w3.org/2001/XMLSchema#decimal>`)
	require.NoError(t, err)
	assert.True(t, term.Equals(NewLiteralWithDatatype("2.5", XSDDecimal)))

	_, err = ParseTerm("")
	assert.Error(t, err)
	_, err = ParseTerm("<http://example.org/a> <http://example.org/b>")
	assert.Error(t, err)
}
