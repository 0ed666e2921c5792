package block

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/aleksaelezovic/tdbgo/pkg/store"
	badger "github.com/dgraph-io/badger/v4"
)

const (
	blockSep   = 0x00
	counterSep = 0x01
)

// BadgerStore is the durable home of every block file of one location. Each
// block file is a keyspace prefixed by its name.
type BadgerStore struct {
	db       *badger.DB
	inMemory bool
}

// OpenBadger opens (or creates) the block database at path. An empty path
// opens a purely in-memory database.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Disable default logger

	// Blocks are small and read often; keep them in the LSM tree.
	opts.ValueThreshold = 1 << 14
	opts.SyncWrites = false

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return &BadgerStore{db: db, inMemory: path == ""}, nil
}

// DB exposes the underlying database to other keyspace users.
func (s *BadgerStore) DB() *badger.DB {
	return s.db
}

// Size returns the on-disk size of the LSM tree and the value log.
func (s *BadgerStore) Size() (lsm, vlog int64) {
	return s.db.Size()
}

// Sync flushes writes to disk
func (s *BadgerStore) Sync() error {
	if s.inMemory {
		return nil
	}
	return s.db.Sync()
}

// Close closes the database
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Mgr returns the block manager of the named block file.
func (s *BadgerStore) Mgr(filename string, blockSize int) (*BadgerMgr, error) {
	m := &BadgerMgr{
		db:         s.db,
		name:       filename,
		blockSize:  blockSize,
		prefix:     append([]byte(filename), blockSep),
		counterKey: append([]byte(filename), counterSep, 'n', 'e', 'x', 't'),
	}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(m.counterKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			n, err := strconv.ParseInt(string(val), 10, 32)
			if err != nil {
				return store.Corruptf("block", "%s: bad allocation counter %q", filename, val)
			}
			m.next = ID(n)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// BadgerMgr is a block file stored in a BadgerStore keyspace.
type BadgerMgr struct {
	db         *badger.DB
	name       string
	blockSize  int
	prefix     []byte
	counterKey []byte

	mu   sync.Mutex
	next ID
}

func (m *BadgerMgr) key(id ID) []byte {
	k := make([]byte, len(m.prefix)+4)
	copy(k, m.prefix)
	binary.BigEndian.PutUint32(k[len(m.prefix):], uint32(id))
	return k
}

func (m *BadgerMgr) BlockSize() int {
	return m.blockSize
}

func (m *BadgerMgr) Allocate() (ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.next
	err := m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(m.counterKey, []byte(strconv.FormatInt(int64(id+1), 10)))
	})
	if err != nil {
		return NoBlock, fmt.Errorf("allocate block in %s: %w", m.name, err)
	}
	m.next = id + 1
	return id, nil
}

// Read retrieves a block
func (m *BadgerMgr) Read(id ID) ([]byte, error) {
	var data []byte
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(m.key(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, missing(m.name, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read block %d of %s: %w", id, m.name, err)
	}
	if err := checkSize(m.name, id, data, m.blockSize); err != nil {
		return nil, err
	}
	return data, nil
}

// Write stores a block
func (m *BadgerMgr) Write(id ID, data []byte) error {
	if err := checkSize(m.name, id, data, m.blockSize); err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(m.key(id), append([]byte(nil), data...))
	})
}

// Free deletes a block. Block ids are not reused.
func (m *BadgerMgr) Free(id ID) error {
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(m.key(id))
	})
}

func (m *BadgerMgr) IsEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.next == 0
}

// Sync is a no-op; the owning BadgerStore syncs the whole database.
func (m *BadgerMgr) Sync() error {
	return nil
}

// Close is a no-op; the owning BadgerStore closes the database.
func (m *BadgerMgr) Close() error {
	return nil
}
