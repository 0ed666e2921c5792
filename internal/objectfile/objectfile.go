// Package objectfile implements the append-only log holding the canonical
// encodings of dictionary terms. An entry is addressed by its byte offset.
package objectfile

import (
	"encoding/binary"
	"fmt"

	"github.com/aleksaelezovic/tdbgo/pkg/store"
	"github.com/zeebo/xxh3"
)

// headerLen covers the 4-byte big-endian payload length and the 4-byte
// checksum (low 32 bits of the payload's xxh3 hash).
const headerLen = 8

// ObjectFile is an append-only sequence of length-prefixed entries.
type ObjectFile interface {
	// Write appends payload and returns the offset of its entry.
	Write(payload []byte) (int64, error)
	// Read returns the payload of the entry at offset. An offset that does
	// not start a valid entry yields store.ErrUnknownNodeID.
	Read(offset int64) ([]byte, error)
	Length() int64
	Sync() error
	Close() error
}

func checksum(payload []byte) uint32 {
	return uint32(xxh3.Hash(payload))
}

func encodeHeader(payload []byte) []byte {
	h := make([]byte, headerLen)
	binary.BigEndian.PutUint32(h, uint32(len(payload)))
	binary.BigEndian.PutUint32(h[4:], checksum(payload))
	return h
}

// payloadLen validates the header of the entry at offset in a log of the
// given length.
func payloadLen(header []byte, offset, length int64) (int64, error) {
	n := int64(binary.BigEndian.Uint32(header))
	if offset+headerLen+n > length {
		return 0, unknown(offset)
	}
	return n, nil
}

func verify(payload, header []byte, offset int64) error {
	if checksum(payload) != binary.BigEndian.Uint32(header[4:]) {
		return unknown(offset)
	}
	return nil
}

func unknown(offset int64) error {
	return fmt.Errorf("%w: no object at offset %d", store.ErrUnknownNodeID, offset)
}
