package encoding

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"
)

// HashSize is the width of the node2id index key.
const HashSize = 16

// Hash computes the 128-bit xxh3 hash of a term's canonical bytes.
func Hash(canonical []byte) [HashSize]byte {
	h := xxh3.Hash128(canonical)
	var result [HashSize]byte
	binary.BigEndian.PutUint64(result[0:8], h.Hi)
	binary.BigEndian.PutUint64(result[8:16], h.Lo)
	return result
}
