package block

import (
	"fmt"

	"github.com/aleksaelezovic/tdbgo/internal/cache"
	"github.com/sirupsen/logrus"
)

// Cached puts a read cache and a write-behind cache in front of a Mgr.
// Dirty blocks reach the underlying manager when the write cache evicts them
// or on Sync.
type Cached struct {
	mgr   Mgr
	name  string
	log   *logrus.Logger
	read  cache.Cache[ID, []byte]
	write cache.Cache[ID, []byte]

	readStats  cache.StatsReporter
	writeStats cache.StatsReporter

	// first write-back failure, reported by the next Sync
	writeErr error
}

// NewCached wraps mgr. A write cache size below one writes through.
func NewCached(mgr Mgr, name string, readSize, writeSize int, log *logrus.Logger) *Cached {
	if log == nil {
		log = logrus.New()
	}
	c := &Cached{mgr: mgr, name: name, log: log}

	rs := cache.NewStatsAtomic[ID, []byte](cache.New[ID, []byte](readSize))
	c.read, c.readStats = cache.NewSynchronized[ID, []byte](rs), rs

	if writeSize > 0 {
		ws := cache.NewStatsAtomic[ID, []byte](cache.NewLRU[ID, []byte](writeSize))
		ws.SetDropHandler(c.writeBack)
		c.write, c.writeStats = cache.NewSynchronized[ID, []byte](ws), ws
	}
	return c
}

func (c *Cached) writeBack(id ID, data []byte) {
	if err := c.mgr.Write(id, data); err != nil {
		c.log.WithFields(logrus.Fields{"file": c.name, "block": id}).WithError(err).Error("block write-back failed")
		if c.writeErr == nil {
			c.writeErr = fmt.Errorf("write back block %d of %s: %w", id, c.name, err)
		}
	}
}

func (c *Cached) BlockSize() int {
	return c.mgr.BlockSize()
}

func (c *Cached) Allocate() (ID, error) {
	return c.mgr.Allocate()
}

func (c *Cached) Read(id ID) ([]byte, error) {
	if c.write != nil {
		if b, ok := c.write.Get(id); ok {
			return b, nil
		}
	}
	if b, ok := c.read.Get(id); ok {
		return b, nil
	}
	b, err := c.mgr.Read(id)
	if err != nil {
		return nil, err
	}
	if _, _, err := c.read.Put(id, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (c *Cached) Write(id ID, data []byte) error {
	if err := checkSize(c.name, id, data, c.mgr.BlockSize()); err != nil {
		return err
	}
	c.read.Remove(id)
	if c.write == nil {
		return c.mgr.Write(id, data)
	}
	_, _, err := c.write.Put(id, append([]byte(nil), data...))
	return err
}

func (c *Cached) Free(id ID) error {
	c.read.Remove(id)
	if c.write != nil {
		c.write.Remove(id)
	}
	return c.mgr.Free(id)
}

func (c *Cached) IsEmpty() bool {
	return c.mgr.IsEmpty()
}

// Sync writes every dirty block back and syncs the underlying manager.
func (c *Cached) Sync() error {
	if c.write != nil {
		for _, id := range c.write.Keys() {
			b, ok := c.write.Get(id)
			if !ok {
				continue
			}
			if err := c.mgr.Write(id, b); err != nil {
				return fmt.Errorf("flush block %d of %s: %w", id, c.name, err)
			}
			c.write.Remove(id)
		}
	}
	if err := c.writeErr; err != nil {
		c.writeErr = nil
		return err
	}
	return c.mgr.Sync()
}

func (c *Cached) Close() error {
	if err := c.Sync(); err != nil {
		return err
	}
	return c.mgr.Close()
}

// ReadStats reports the read cache counters.
func (c *Cached) ReadStats() cache.StatsReporter {
	return c.readStats
}

// WriteStats reports the write cache counters, or nil when writing through.
func (c *Cached) WriteStats() cache.StatsReporter {
	return c.writeStats
}
