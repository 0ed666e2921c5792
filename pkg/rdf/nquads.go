package rdf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// NQuadsReader reads N-Quads (and therefore N-Triples) one statement per
// line. Statements without a graph term are returned in the default graph.
type NQuadsReader struct {
	r    *bufio.Reader
	line int
}

// NewNQuadsReader creates a streaming N-Quads reader.
func NewNQuadsReader(r io.Reader) *NQuadsReader {
	return &NQuadsReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// Read returns the next quad, or io.EOF when the input is exhausted.
func (nr *NQuadsReader) Read() (*Quad, error) {
	for {
		text, err := nr.r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if text == "" && errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		nr.line++

		p := &lineParser{input: text}
		p.skipWhitespaceAndComments()
		if p.atEnd() {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			continue
		}
		quad, perr := p.parseQuad()
		if perr != nil {
			return nil, fmt.Errorf("line %d: %w", nr.line, perr)
		}
		return quad, nil
	}
}

// ParseTerm parses a single term written in N-Triples syntax.
func ParseTerm(s string) (Term, error) {
	p := &lineParser{input: strings.TrimSpace(s)}
	if p.atEnd() {
		return nil, fmt.Errorf("empty term")
	}
	t, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	p.skipWhitespaceAndComments()
	if !p.atEnd() {
		return nil, fmt.Errorf("trailing input after term at position %d", p.pos)
	}
	return t, nil
}

// NQuadsWriter writes quads in N-Quads syntax.
type NQuadsWriter struct {
	w *bufio.Writer
}

func NewNQuadsWriter(w io.Writer) *NQuadsWriter {
	return &NQuadsWriter{w: bufio.NewWriter(w)}
}

func (nw *NQuadsWriter) Write(q *Quad) error {
	_, err := nw.w.WriteString(q.String() + "\n")
	return err
}

// Flush writes any buffered data to the underlying writer.
func (nw *NQuadsWriter) Flush() error {
	return nw.w.Flush()
}

type lineParser struct {
	input string
	pos   int
}

func (p *lineParser) atEnd() bool {
	return p.pos >= len(p.input)
}

// skipWhitespaceAndComments skips whitespace and comments
func (p *lineParser) skipWhitespaceAndComments() {
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			p.pos++
			continue
		}
		if ch == '#' {
			p.pos = len(p.input)
			return
		}
		break
	}
}

// parseQuad parses a quad: subject predicate object [graph] .
func (p *lineParser) parseQuad() (*Quad, error) {
	subject, err := p.parseTerm()
	if err != nil {
		return nil, fmt.Errorf("error parsing subject: %w", err)
	}
	if subject.Type() == TermTypeLiteral {
		return nil, fmt.Errorf("literal not allowed as subject")
	}
	p.skipWhitespaceAndComments()

	predicate, err := p.parseTerm()
	if err != nil {
		return nil, fmt.Errorf("error parsing predicate: %w", err)
	}
	if predicate.Type() != TermTypeNamedNode {
		return nil, fmt.Errorf("predicate must be an IRI")
	}
	p.skipWhitespaceAndComments()

	object, err := p.parseTerm()
	if err != nil {
		return nil, fmt.Errorf("error parsing object: %w", err)
	}
	p.skipWhitespaceAndComments()

	var graph Term = NewDefaultGraph()
	if !p.atEnd() && (p.input[p.pos] == '<' || p.input[p.pos] == '_') {
		graph, err = p.parseTerm()
		if err != nil {
			return nil, fmt.Errorf("error parsing graph: %w", err)
		}
		p.skipWhitespaceAndComments()
	}

	if p.atEnd() || p.input[p.pos] != '.' {
		return nil, fmt.Errorf("expected '.' at end of statement")
	}
	p.pos++
	p.skipWhitespaceAndComments()
	if !p.atEnd() {
		return nil, fmt.Errorf("unexpected input after '.' at position %d", p.pos)
	}

	return NewQuad(subject, predicate, object, graph), nil
}

// parseTerm parses an IRI, blank node or literal
func (p *lineParser) parseTerm() (Term, error) {
	if p.atEnd() {
		return nil, fmt.Errorf("unexpected end of input")
	}
	switch p.input[p.pos] {
	case '<':
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return NewNamedNode(iri), nil
	case '_':
		return p.parseBlankNode()
	case '"':
		return p.parseLiteral()
	default:
		return nil, fmt.Errorf("unexpected character at position %d: %c", p.pos, p.input[p.pos])
	}
}

// parseIRI parses an IRI enclosed in < >
func (p *lineParser) parseIRI() (string, error) {
	p.pos++ // skip '<'

	var result strings.Builder
	for p.pos < len(p.input) && p.input[p.pos] != '>' {
		ch := p.input[p.pos]
		if ch == '\\' {
			r, err := p.parseUnicodeEscape()
			if err != nil {
				return "", err
			}
			result.WriteRune(r)
			continue
		}
		if ch == ' ' || ch == '<' || ch == '"' || ch == '{' || ch == '}' ||
			ch == '|' || ch == '^' || ch == '`' || ch <= 0x1F {
			return "", fmt.Errorf("invalid character in IRI: %q at position %d", ch, p.pos)
		}
		result.WriteByte(ch)
		p.pos++
	}
	if p.atEnd() {
		return "", fmt.Errorf("unclosed IRI")
	}
	p.pos++ // skip '>'

	iri := result.String()
	if !strings.Contains(iri, ":") {
		return "", fmt.Errorf("relative IRI not allowed: %s", iri)
	}
	return iri, nil
}

// parseBlankNode parses a blank node
func (p *lineParser) parseBlankNode() (Term, error) {
	if !strings.HasPrefix(p.input[p.pos:], "_:") {
		return nil, fmt.Errorf("expected '_:' at start of blank node")
	}
	p.pos += 2

	start := p.pos
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '<' {
			break
		}
		if ch == '.' && (p.pos+1 >= len(p.input) || isSpace(p.input[p.pos+1])) {
			break
		}
		p.pos++
	}
	if p.pos == start {
		return nil, fmt.Errorf("empty blank node label")
	}
	return NewBlankNode(p.input[start:p.pos]), nil
}

// parseLiteral parses a quoted literal with an optional language tag or datatype
func (p *lineParser) parseLiteral() (Term, error) {
	p.pos++ // skip opening '"'

	var value strings.Builder
	for {
		if p.atEnd() {
			return nil, fmt.Errorf("unterminated literal")
		}
		ch := p.input[p.pos]
		if ch == '"' {
			p.pos++
			break
		}
		if ch != '\\' {
			value.WriteByte(ch)
			p.pos++
			continue
		}
		if p.pos+1 >= len(p.input) {
			return nil, fmt.Errorf("unexpected end of input in escape sequence")
		}
		switch p.input[p.pos+1] {
		case 'n':
			value.WriteByte('\n')
		case 't':
			value.WriteByte('\t')
		case 'r':
			value.WriteByte('\r')
		case 'b':
			value.WriteByte('\b')
		case 'f':
			value.WriteByte('\f')
		case '"':
			value.WriteByte('"')
		case '\'':
			value.WriteByte('\'')
		case '\\':
			value.WriteByte('\\')
		case 'u', 'U':
			r, err := p.parseUnicodeEscape()
			if err != nil {
				return nil, err
			}
			value.WriteRune(r)
			continue
		default:
			return nil, fmt.Errorf("invalid escape sequence \\%c", p.input[p.pos+1])
		}
		p.pos += 2
	}

	if !p.atEnd() && p.input[p.pos] == '@' {
		p.pos++
		start := p.pos
		for p.pos < len(p.input) {
			ch := p.input[p.pos]
			if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '-' {
				p.pos++
				continue
			}
			break
		}
		if p.pos == start {
			return nil, fmt.Errorf("empty language tag")
		}
		return NewLiteralWithLanguage(value.String(), p.input[start:p.pos]), nil
	}

	if strings.HasPrefix(p.input[p.pos:], "^^") {
		p.pos += 2
		if p.atEnd() || p.input[p.pos] != '<' {
			return nil, fmt.Errorf("expected datatype IRI after '^^'")
		}
		dt, err := p.parseIRI()
		if err != nil {
			return nil, fmt.Errorf("error parsing datatype: %w", err)
		}
		return NewLiteralWithDatatype(value.String(), NewNamedNode(dt)), nil
	}

	return NewLiteral(value.String()), nil
}

// parseUnicodeEscape consumes \uXXXX or \UXXXXXXXX
func (p *lineParser) parseUnicodeEscape() (rune, error) {
	if p.pos+1 >= len(p.input) {
		return 0, fmt.Errorf("incomplete escape sequence")
	}
	width := 0
	switch p.input[p.pos+1] {
	case 'u':
		width = 4
	case 'U':
		width = 8
	default:
		return 0, fmt.Errorf("invalid escape sequence at position %d", p.pos)
	}
	start := p.pos + 2
	if start+width > len(p.input) {
		return 0, fmt.Errorf("incomplete unicode escape")
	}
	code, err := strconv.ParseUint(p.input[start:start+width], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid unicode escape: %w", err)
	}
	r := rune(code)
	if !utf8.ValidRune(r) {
		return 0, fmt.Errorf("invalid code point U+%X", code)
	}
	p.pos = start + width
	return r, nil
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}
