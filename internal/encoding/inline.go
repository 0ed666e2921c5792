package encoding

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aleksaelezovic/tdbgo/pkg/rdf"
	"github.com/aleksaelezovic/tdbgo/pkg/store"
)

const (
	// Maximum bytes of UTF-8 in an inline plain string
	MaxInlineStringSize = 6

	minInlineInt = -1 << (valueBits - 1)
	maxInlineInt = 1<<(valueBits-1) - 1

	decimalValueBits = 48
	minInlineDecimal = -1 << (decimalValueBits - 1)
	maxInlineDecimal = 1<<(decimalValueBits-1) - 1
	maxDecimalScale  = 18
)

// Inline returns the inline id of term when it has one. A term is inlined
// only if decoding the id reproduces exactly the same term.
func Inline(term rdf.Term) (NodeID, bool) {
	lit, ok := term.(*rdf.Literal)
	if !ok {
		return NodeIDNone, false
	}

	var id NodeID
	switch {
	case lit.Language != "":
		return NodeIDNone, false
	case lit.Datatype == nil:
		id, ok = encodeString(lit.Value)
	case lit.Datatype.IRI == rdf.XSDInteger.IRI:
		id, ok = encodeInteger(lit.Value)
	case lit.Datatype.IRI == rdf.XSDDecimal.IRI:
		id, ok = encodeDecimal(lit.Value)
	case lit.Datatype.IRI == rdf.XSDDate.IRI:
		id, ok = encodeDate(lit.Value)
	case lit.Datatype.IRI == rdf.XSDBoolean.IRI:
		id, ok = encodeBoolean(lit.Value)
	default:
		return NodeIDNone, false
	}
	if !ok {
		return NodeIDNone, false
	}

	back, err := DecodeInline(id)
	if err != nil || !back.Equals(lit) {
		return NodeIDNone, false
	}
	return id, true
}

// DecodeInline rebuilds the term of an inline id.
func DecodeInline(id NodeID) (rdf.Term, error) {
	if !id.IsInline() {
		return nil, fmt.Errorf("%w: %s is not inline", store.ErrUnknownNodeID, id)
	}
	v := id.value()
	switch id.Kind() {
	case KindInteger:
		n := int64(v<<(64-valueBits)) >> (64 - valueBits)
		return rdf.NewIntegerLiteral(n), nil
	case KindDecimal:
		return rdf.NewLiteralWithDatatype(formatDecimal(v), rdf.XSDDecimal), nil
	case KindDate:
		year, month, day := v>>9, (v>>5)&0xF, v&0x1F
		return rdf.NewLiteralWithDatatype(fmt.Sprintf("%04d-%02d-%02d", year, month, day), rdf.XSDDate), nil
	case KindBoolean:
		return rdf.NewBooleanLiteral(v == 1), nil
	case KindString:
		n := int(v >> 48)
		if n > MaxInlineStringSize {
			return nil, fmt.Errorf("%w: %s has string length %d", store.ErrUnknownNodeID, id, n)
		}
		var buf [MaxInlineStringSize]byte
		for i := 0; i < n; i++ {
			buf[i] = byte(v >> (40 - 8*i))
		}
		return rdf.NewLiteral(string(buf[:n])), nil
	default:
		return nil, fmt.Errorf("%w: %s has no inline kind", store.ErrUnknownNodeID, id)
	}
}

func encodeInteger(lex string) (NodeID, bool) {
	n, err := strconv.ParseInt(lex, 10, 64)
	if err != nil || n < minInlineInt || n > maxInlineInt {
		return NodeIDNone, false
	}
	return makeID(KindInteger, uint64(n)), true
}

// Decimals are [scale:8][value:48], value being the digits without the
// decimal point.
func encodeDecimal(lex string) (NodeID, bool) {
	digits, scale := lex, 0
	if i := strings.IndexByte(lex, '.'); i >= 0 {
		digits = lex[:i] + lex[i+1:]
		scale = len(lex) - i - 1
	}
	if scale > maxDecimalScale {
		return NodeIDNone, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < minInlineDecimal || n > maxInlineDecimal {
		return NodeIDNone, false
	}
	v := uint64(scale)<<decimalValueBits | uint64(n)&(1<<decimalValueBits-1)
	return makeID(KindDecimal, v), true
}

func formatDecimal(v uint64) string {
	scale := int(v >> decimalValueBits)
	n := int64(v<<(64-decimalValueBits)) >> (64 - decimalValueBits)
	neg := n < 0
	if neg {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	if scale > 0 {
		if len(digits) <= scale {
			digits = strings.Repeat("0", scale-len(digits)+1) + digits
		}
		digits = digits[:len(digits)-scale] + "." + digits[len(digits)-scale:]
	}
	if neg {
		return "-" + digits
	}
	return digits
}

// Dates are YYYY-MM-DD with no timezone, packed as year<<9 | month<<5 | day.
func encodeDate(lex string) (NodeID, bool) {
	t, err := time.Parse("2006-01-02", lex)
	if err != nil || t.Year() < 0 || t.Year() > 9999 {
		return NodeIDNone, false
	}
	v := uint64(t.Year())<<9 | uint64(t.Month())<<5 | uint64(t.Day())
	return makeID(KindDate, v), true
}

func encodeBoolean(lex string) (NodeID, bool) {
	switch lex {
	case "true":
		return makeID(KindBoolean, 1), true
	case "false":
		return makeID(KindBoolean, 0), true
	}
	return NodeIDNone, false
}

// Plain strings are [length:8][bytes:48], bytes left-aligned.
func encodeString(s string) (NodeID, bool) {
	if len(s) > MaxInlineStringSize || !utf8.ValidString(s) {
		return NodeIDNone, false
	}
	v := uint64(len(s)) << 48
	for i := 0; i < len(s); i++ {
		v |= uint64(s[i]) << (40 - 8*i)
	}
	return makeID(KindString, v), true
}
