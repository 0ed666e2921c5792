package encoding

import (
	"fmt"

	"github.com/aleksaelezovic/tdbgo/pkg/rdf"
	"github.com/aleksaelezovic/tdbgo/pkg/store"
	"google.golang.org/protobuf/encoding/protowire"
)

// Canonical term encoding, as protobuf wire fields:
//
//	1 kind     varint (1 IRI, 2 blank node, 3 literal)
//	2 lexical  bytes  (IRI, blank node label or literal lexical form)
//	3 language bytes
//	4 datatype bytes
const (
	fieldKind     protowire.Number = 1
	fieldLexical  protowire.Number = 2
	fieldLanguage protowire.Number = 3
	fieldDatatype protowire.Number = 4
)

const (
	termIRI     = 1
	termBlank   = 2
	termLiteral = 3
)

// EncodeTerm returns the canonical bytes of a dictionary term. Equal terms
// always encode to equal bytes.
func EncodeTerm(term rdf.Term) ([]byte, error) {
	var b []byte
	switch t := term.(type) {
	case *rdf.NamedNode:
		b = appendVarint(b, fieldKind, termIRI)
		b = appendString(b, fieldLexical, t.IRI)
	case *rdf.BlankNode:
		b = appendVarint(b, fieldKind, termBlank)
		b = appendString(b, fieldLexical, t.ID)
	case *rdf.Literal:
		b = appendVarint(b, fieldKind, termLiteral)
		b = appendString(b, fieldLexical, t.Value)
		if t.Language != "" {
			b = appendString(b, fieldLanguage, t.Language)
		}
		if dt := t.DatatypeIRI(); dt != "" {
			b = appendString(b, fieldDatatype, dt)
		}
	case nil:
		return nil, fmt.Errorf("cannot encode nil term")
	default:
		return nil, fmt.Errorf("cannot encode %s term", term.Type())
	}
	return b, nil
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// DecodeTerm parses canonical bytes. Unknown fields are skipped.
func DecodeTerm(b []byte) (rdf.Term, error) {
	var (
		kind                        uint64
		lexical, language, datatype string
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, store.Corruptf("nodes", "bad tag: %v", protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == fieldKind && typ == protowire.VarintType:
			kind, n = protowire.ConsumeVarint(b)
		case num == fieldLexical && typ == protowire.BytesType:
			lexical, n = consumeString(b)
		case num == fieldLanguage && typ == protowire.BytesType:
			language, n = consumeString(b)
		case num == fieldDatatype && typ == protowire.BytesType:
			datatype, n = consumeString(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return nil, store.Corruptf("nodes", "bad field %d: %v", num, protowire.ParseError(n))
		}
		b = b[n:]
	}

	switch kind {
	case termIRI:
		return rdf.NewNamedNode(lexical), nil
	case termBlank:
		return rdf.NewBlankNode(lexical), nil
	case termLiteral:
		lit := &rdf.Literal{Value: lexical, Language: language}
		if datatype != "" {
			lit.Datatype = rdf.NewNamedNode(datatype)
		}
		return lit, nil
	default:
		return nil, store.Corruptf("nodes", "unknown term kind %d", kind)
	}
}

func consumeString(b []byte) (string, int) {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return "", n
	}
	return string(v), n
}
