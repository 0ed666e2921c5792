// Package encoding defines NodeIDs, the inline encoding of small literals
// into them, and the canonical byte form of dictionary terms.
package encoding

import (
	"encoding/binary"
	"fmt"

	"github.com/aleksaelezovic/tdbgo/pkg/store"
)

// NodeID is the fixed-size identifier standing in for an RDF term in every
// index. The top byte is the Kind; the remaining 56 bits are either an
// object-file offset or an inline value.
type NodeID uint64

// NodeIDSize is the encoded width of a NodeID in records.
const NodeIDSize = 8

type Kind byte

const (
	KindDictionary Kind = 0x00
	KindInteger    Kind = 0x01
	KindDecimal    Kind = 0x02
	KindDate       Kind = 0x03
	KindBoolean    Kind = 0x04
	KindString     Kind = 0x05
)

const (
	// NodeIDAny is the wildcard in tuple patterns.
	NodeIDAny NodeID = ^NodeID(0)
	// NodeIDNone marks "no node".
	NodeIDNone NodeID = ^NodeID(0) - 1

	valueBits = 56
	valueMask = 1<<valueBits - 1
)

func (k Kind) String() string {
	switch k {
	case KindDictionary:
		return "dict"
	case KindInteger:
		return "int"
	case KindDecimal:
		return "dec"
	case KindDate:
		return "date"
	case KindBoolean:
		return "bool"
	case KindString:
		return "str"
	default:
		return fmt.Sprintf("kind(%#x)", byte(k))
	}
}

func makeID(k Kind, value uint64) NodeID {
	return NodeID(uint64(k)<<valueBits | value&valueMask)
}

func (id NodeID) Kind() Kind {
	return Kind(id >> valueBits)
}

func (id NodeID) value() uint64 {
	return uint64(id) & valueMask
}

// IsSpecial reports whether id is NodeIDAny or NodeIDNone.
func (id NodeID) IsSpecial() bool {
	return id == NodeIDAny || id == NodeIDNone
}

func (id NodeID) IsInline() bool {
	return !id.IsSpecial() && id.Kind() != KindDictionary
}

// IsDictionary reports whether id refers to an object-file entry.
func (id NodeID) IsDictionary() bool {
	return id.Kind() == KindDictionary
}

// DictionaryID builds the id of the object-file entry at offset.
func DictionaryID(offset int64) (NodeID, error) {
	if offset < 0 || offset > valueMask {
		return NodeIDNone, store.Corruptf("nodeid", "offset %d does not fit in a node id", offset)
	}
	return makeID(KindDictionary, uint64(offset)), nil
}

// Offset is the object-file offset of a dictionary id.
func (id NodeID) Offset() int64 {
	return int64(id.value())
}

func (id NodeID) String() string {
	switch id {
	case NodeIDAny:
		return "NodeId[ANY]"
	case NodeIDNone:
		return "NodeId[NONE]"
	}
	return fmt.Sprintf("NodeId[%s:%#x]", id.Kind(), id.value())
}

// PutNodeID writes id big-endian into b[:8].
func PutNodeID(b []byte, id NodeID) {
	binary.BigEndian.PutUint64(b, uint64(id))
}

// GetNodeID reads a big-endian id from b[:8].
func GetNodeID(b []byte) NodeID {
	return NodeID(binary.BigEndian.Uint64(b))
}

func (id NodeID) Bytes() []byte {
	b := make([]byte, NodeIDSize)
	PutNodeID(b, id)
	return b
}
