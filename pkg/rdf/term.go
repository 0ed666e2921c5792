package rdf

import (
	"fmt"
	"strconv"
	"strings"
)

// TermType represents the type of an RDF term
type TermType byte

const (
	TermTypeNamedNode TermType = iota + 1
	TermTypeBlankNode
	TermTypeLiteral
	TermTypeDefaultGraph
)

func (t TermType) String() string {
	switch t {
	case TermTypeNamedNode:
		return "iri"
	case TermTypeBlankNode:
		return "bnode"
	case TermTypeLiteral:
		return "literal"
	case TermTypeDefaultGraph:
		return "default-graph"
	default:
		return "unknown"
	}
}

// Term represents an RDF term (IRI, blank node, or literal). Terms are
// immutable once constructed.
type Term interface {
	Type() TermType
	String() string
	Equals(other Term) bool
}

// NamedNode represents an IRI
type NamedNode struct {
	IRI string
}

func NewNamedNode(iri string) *NamedNode {
	return &NamedNode{IRI: iri}
}

func (n *NamedNode) Type() TermType {
	return TermTypeNamedNode
}

func (n *NamedNode) String() string {
	return "<" + escapeIRI(n.IRI) + ">"
}

func (n *NamedNode) Equals(other Term) bool {
	if on, ok := other.(*NamedNode); ok {
		return n.IRI == on.IRI
	}
	return false
}

// BlankNode represents a blank node
type BlankNode struct {
	ID string
}

func NewBlankNode(id string) *BlankNode {
	return &BlankNode{ID: id}
}

func (b *BlankNode) Type() TermType {
	return TermTypeBlankNode
}

func (b *BlankNode) String() string {
	return "_:" + b.ID
}

func (b *BlankNode) Equals(other Term) bool {
	if ob, ok := other.(*BlankNode); ok {
		return b.ID == ob.ID
	}
	return false
}

// Literal represents an RDF literal. A literal has either a language tag, a
// datatype, or neither (a simple literal).
type Literal struct {
	Value    string
	Language string     // for language-tagged strings
	Datatype *NamedNode // for typed literals
}

func NewLiteral(value string) *Literal {
	return &Literal{Value: value}
}

func NewLiteralWithLanguage(value, language string) *Literal {
	return &Literal{Value: value, Language: language}
}

func NewLiteralWithDatatype(value string, datatype *NamedNode) *Literal {
	return &Literal{Value: value, Datatype: datatype}
}

func (l *Literal) Type() TermType {
	return TermTypeLiteral
}

// DatatypeIRI returns the datatype IRI, or "" for simple and
// language-tagged literals.
func (l *Literal) DatatypeIRI() string {
	if l.Datatype == nil {
		return ""
	}
	return l.Datatype.IRI
}

func (l *Literal) String() string {
	result := `"` + escapeLiteral(l.Value) + `"`
	if l.Language != "" {
		result += "@" + l.Language
	} else if l.Datatype != nil {
		result += "^^" + l.Datatype.String()
	}
	return result
}

func (l *Literal) Equals(other Term) bool {
	ol, ok := other.(*Literal)
	if !ok {
		return false
	}
	return l.Value == ol.Value && l.Language == ol.Language && l.DatatypeIRI() == ol.DatatypeIRI()
}

// DefaultGraph represents the default graph
type DefaultGraph struct{}

func NewDefaultGraph() *DefaultGraph {
	return &DefaultGraph{}
}

func (d *DefaultGraph) Type() TermType {
	return TermTypeDefaultGraph
}

func (d *DefaultGraph) String() string {
	return "DEFAULT"
}

func (d *DefaultGraph) Equals(other Term) bool {
	_, ok := other.(*DefaultGraph)
	return ok
}

// IsDefaultGraph reports whether t names the default graph. A nil term is
// not the default graph; in patterns nil means "any".
func IsDefaultGraph(t Term) bool {
	if t == nil {
		return false
	}
	return t.Type() == TermTypeDefaultGraph
}

// Triple represents an RDF triple (subject, predicate, object)
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

func NewTriple(subject, predicate, object Term) *Triple {
	return &Triple{
		Subject:   subject,
		Predicate: predicate,
		Object:    object,
	}
}

func (t *Triple) String() string {
	return fmt.Sprintf("%s %s %s .", t.Subject, t.Predicate, t.Object)
}

// Equals compares all three positions.
func (t *Triple) Equals(o *Triple) bool {
	return termEquals(t.Subject, o.Subject) &&
		termEquals(t.Predicate, o.Predicate) &&
		termEquals(t.Object, o.Object)
}

// Quad represents an RDF quad (subject, predicate, object, graph)
type Quad struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     Term
}

func NewQuad(subject, predicate, object, graph Term) *Quad {
	return &Quad{
		Subject:   subject,
		Predicate: predicate,
		Object:    object,
		Graph:     graph,
	}
}

// Triple drops the graph position.
func (q *Quad) Triple() *Triple {
	return NewTriple(q.Subject, q.Predicate, q.Object)
}

func (q *Quad) String() string {
	if q.Graph == nil || IsDefaultGraph(q.Graph) {
		return fmt.Sprintf("%s %s %s .", q.Subject, q.Predicate, q.Object)
	}
	return fmt.Sprintf("%s %s %s %s .", q.Subject, q.Predicate, q.Object, q.Graph)
}

func (q *Quad) Equals(o *Quad) bool {
	return termEquals(q.Subject, o.Subject) &&
		termEquals(q.Predicate, o.Predicate) &&
		termEquals(q.Object, o.Object) &&
		termEquals(q.Graph, o.Graph)
}

func termEquals(a, b Term) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equals(b)
}

// Helper functions for common XSD datatypes
var (
	XSDString   = NewNamedNode("http://www.w3.org/2001/XMLSchema#string")
	XSDInteger  = NewNamedNode("http://www.w3.org/2001/XMLSchema#integer")
	XSDDecimal  = NewNamedNode("http://www.w3.org/2001/XMLSchema#decimal")
	XSDDouble   = NewNamedNode("http://www.w3.org/2001/XMLSchema#double")
	XSDBoolean  = NewNamedNode("http://www.w3.org/2001/XMLSchema#boolean")
	XSDDateTime = NewNamedNode("http://www.w3.org/2001/XMLSchema#dateTime")
	XSDDate     = NewNamedNode("http://www.w3.org/2001/XMLSchema#date")
)

func NewIntegerLiteral(value int64) *Literal {
	return NewLiteralWithDatatype(strconv.FormatInt(value, 10), XSDInteger)
}

func NewBooleanLiteral(value bool) *Literal {
	return NewLiteralWithDatatype(strconv.FormatBool(value), XSDBoolean)
}

func escapeLiteral(s string) string {
	if !strings.ContainsAny(s, "\"\\\n\r\t") {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func escapeIRI(s string) string {
	if !strings.ContainsAny(s, "<>\"{}|^`\\ ") {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '<', '>', '"', '{', '}', '|', '^', '`', '\\', ' ':
			fmt.Fprintf(&b, `\u%04X`, r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
