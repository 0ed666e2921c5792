// Package block manages fixed-size blocks, the unit of storage of the
// B+Tree files.
package block

import "github.com/aleksaelezovic/tdbgo/pkg/store"

// ID identifies a block within one block file.
type ID int32

// NoBlock marks an absent block reference.
const NoBlock ID = -1

// Mgr allocates, reads and writes fixed-size blocks of one file.
//
// Read returns a buffer the caller must not modify. Reading a block that was
// never written is a corruption error.
type Mgr interface {
	BlockSize() int
	Allocate() (ID, error)
	Read(id ID) ([]byte, error)
	Write(id ID, data []byte) error
	Free(id ID) error
	// IsEmpty reports whether no block has ever been allocated.
	IsEmpty() bool
	Sync() error
	Close() error
}

func checkSize(name string, id ID, data []byte, blockSize int) error {
	if len(data) != blockSize {
		return store.Corruptf("block", "%s: block %d is %d bytes, want %d", name, id, len(data), blockSize)
	}
	return nil
}

func missing(name string, id ID) error {
	return store.Corruptf("block", "%s: block %d was never written", name, id)
}
