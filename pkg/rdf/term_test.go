package rdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTermString(t *testing.T) {
	tests := []struct {
		name     string
		term     Term
		expected string
	}{
		{"iri", NewNamedNode("http://example.org/resource"), "<http://example.org/resource>"},
		{"iri with space", NewNamedNode("http://example.org/a b"), `<http://example.org/a\u0020b>`},
		{"blank node", NewBlankNode("b1"), "_:b1"},
		{"plain literal", NewLiteral("hello"), `"hello"`},
		{"escaped literal", NewLiteral("say \"hi\"\n"), `"say \"hi\"\n"`},
		{"language literal", NewLiteralWithLanguage("hello", "en"), `"hello"@en`},
		{"typed literal", NewIntegerLiteral(42), `"42"^^<http://www.w3.org/2001/XMLSchema#integer>`},
		{"empty literal", NewLiteral(""), `""`},
		{"default graph", NewDefaultGraph(), "DEFAULT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.term.String())
		})
	}
}

func TestTermEquals(t *testing.T) {
	a := NewNamedNode("http://example.org/a")
	assert.True(t, a.Equals(NewNamedNode("http://example.org/a")))
	assert.False(t, a.Equals(NewNamedNode("http://example.org/b")))
	assert.False(t, a.Equals(NewLiteral("http://example.org/a")))

	assert.True(t, NewBlankNode("x").Equals(NewBlankNode("x")))
	assert.False(t, NewBlankNode("x").Equals(NewLiteral("x")))

	assert.True(t, NewLiteral("chat").Equals(NewLiteral("chat")))
	assert.False(t, NewLiteralWithLanguage("chat", "fr").Equals(NewLiteralWithLanguage("chat", "en")))
	assert.False(t, NewLiteral("1").Equals(NewLiteralWithDatatype("1", XSDString)))
	assert.True(t, NewBooleanLiteral(true).Equals(NewLiteralWithDatatype("true", XSDBoolean)))

	assert.True(t, NewDefaultGraph().Equals(NewDefaultGraph()))
	assert.False(t, NewDefaultGraph().Equals(a))
}

func TestIsDefaultGraph(t *testing.T) {
	assert.True(t, IsDefaultGraph(NewDefaultGraph()))
	assert.False(t, IsDefaultGraph(nil))
	assert.False(t, IsDefaultGraph(NewNamedNode("http://example.org/g")))
}

func TestStatements(t *testing.T) {
	s := NewNamedNode("http://example.org/subject")
	p := NewNamedNode("http://example.org/predicate")
	o := NewLiteral("value")
	g := NewNamedNode("http://example.org/graph")

	tr := NewTriple(s, p, o)
	assert.Equal(t, `<http://example.org/subject> <http://example.org/predicate> "value" .`, tr.String())

	q := NewQuad(s, p, o, g)
	assert.Equal(t, `<http://example.org/subject> <http://example.org/predicate> "value" <http://example.org/graph> .`, q.String())
	assert.Equal(t, tr.String(), NewQuad(s, p, o, NewDefaultGraph()).String())

	assert.True(t, q.Triple().Equals(tr))
	assert.True(t, q.Equals(NewQuad(s, p, o, g)))
	assert.False(t, q.Equals(NewQuad(s, p, o, NewDefaultGraph())))
	assert.False(t, q.Equals(NewQuad(s, p, o, nil)))
}
