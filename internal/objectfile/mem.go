package objectfile

import (
	"sync"
)

// Mem is an ObjectFile held in memory.
type Mem struct {
	mu  sync.RWMutex
	buf []byte
}

func NewMem() *Mem {
	return &Mem{}
}

func (m *Mem) Write(payload []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	offset := int64(len(m.buf))
	m.buf = append(m.buf, encodeHeader(payload)...)
	m.buf = append(m.buf, payload...)
	return offset, nil
}

func (m *Mem) Read(offset int64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	length := int64(len(m.buf))
	if offset < 0 || offset+headerLen > length {
		return nil, unknown(offset)
	}
	header := m.buf[offset : offset+headerLen]
	n, err := payloadLen(header, offset, length)
	if err != nil {
		return nil, err
	}
	start := offset + headerLen
	payload := append([]byte(nil), m.buf[start:start+n]...)
	if err := verify(payload, header, offset); err != nil {
		return nil, err
	}
	return payload, nil
}

func (m *Mem) Length() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.buf))
}

func (m *Mem) Sync() error  { return nil }
func (m *Mem) Close() error { return nil }
