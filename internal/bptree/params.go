package bptree

import (
	"fmt"
	"math"

	"github.com/aleksaelezovic/tdbgo/internal/record"
	"github.com/aleksaelezovic/tdbgo/pkg/store"
)

// DefaultBlockSize is the block size used when none is configured.
const DefaultBlockSize = 8192

const (
	branchHeader = 4 // kind, leaf-children flag, key count
	leafHeader   = 8 // kind, pad, record count, next leaf
	ptrLen       = 4
)

// Params fixes the physical shape of a tree. Branch nodes hold between
// Order-1 and 2*Order-1 keys; the root may hold fewer.
type Params struct {
	Order     int
	BlockSize int
	Factory   record.Factory
}

// CalcOrder returns the largest order whose full branch node, 2*order-1
// keys and 2*order pointers, fits in one block.
func CalcOrder(blockSize, keyLen int) int {
	return (blockSize - branchHeader + keyLen) / (2 * (keyLen + ptrLen))
}

// NewParams derives the order from the block size when order is zero. When
// both are given they must agree.
func NewParams(blockSize, order int, f record.Factory) (Params, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	calc := CalcOrder(blockSize, f.KeyLen())
	if order <= 0 {
		order = calc
	} else if order != calc {
		return Params{}, store.ConfigErrorf("order %d does not match block size %d for record %s (calculated order %d)",
			order, blockSize, f, calc)
	}
	p := Params{Order: order, BlockSize: blockSize, Factory: f}
	if order < 2 {
		return Params{}, store.ConfigErrorf("block size %d too small for key length %d", blockSize, f.KeyLen())
	}
	if p.LeafCapacity() < 2 {
		return Params{}, store.ConfigErrorf("block size %d too small for record length %d", blockSize, f.RecordLen())
	}
	// Node headers hold the entry count in 16 bits.
	if p.MaxKeys() > math.MaxUint16 || p.LeafCapacity() > math.MaxUint16 {
		return Params{}, store.ConfigErrorf("block size %d too large for record %s: %d keys, %d records per node (max %d)",
			blockSize, f, p.MaxKeys(), p.LeafCapacity(), math.MaxUint16)
	}
	return p, nil
}

func (p Params) MaxKeys() int { return 2*p.Order - 1 }
func (p Params) MinKeys() int { return p.Order - 1 }

// LeafCapacity is the number of records in a full leaf block.
func (p Params) LeafCapacity() int {
	return (p.BlockSize - leafHeader) / p.Factory.RecordLen()
}

// MinRecords is the fewest records a non-root leaf may hold.
func (p Params) MinRecords() int {
	return p.LeafCapacity() / 2
}

func (p Params) String() string {
	return fmt.Sprintf("order=%d blksize=%d record=%s leaf=%d", p.Order, p.BlockSize, p.Factory, p.LeafCapacity())
}
