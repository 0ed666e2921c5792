package block

import (
	"sync"

	"github.com/aleksaelezovic/tdbgo/pkg/store"
)

// Mem keeps blocks in memory. It backs in-memory locations and tests.
type Mem struct {
	mu        sync.RWMutex
	name      string
	blockSize int
	blocks    map[ID][]byte
	next      ID
	closed    bool
}

func NewMem(name string, blockSize int) *Mem {
	return &Mem{name: name, blockSize: blockSize, blocks: make(map[ID][]byte)}
}

func (m *Mem) BlockSize() int {
	return m.blockSize
}

func (m *Mem) Allocate() (ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return NoBlock, store.ErrClosed
	}
	id := m.next
	m.next++
	return id, nil
}

func (m *Mem) Read(id ID) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, store.ErrClosed
	}
	b, ok := m.blocks[id]
	if !ok {
		return nil, missing(m.name, id)
	}
	return b, nil
}

func (m *Mem) Write(id ID, data []byte) error {
	if err := checkSize(m.name, id, data, m.blockSize); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return store.ErrClosed
	}
	if id < 0 || id >= m.next {
		return store.Corruptf("block", "%s: write to unallocated block %d", m.name, id)
	}
	m.blocks[id] = append([]byte(nil), data...)
	return nil
}

func (m *Mem) Free(id ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blocks, id)
	return nil
}

func (m *Mem) IsEmpty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.next == 0
}

func (m *Mem) Sync() error { return nil }

func (m *Mem) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
