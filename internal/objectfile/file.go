package objectfile

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"github.com/aleksaelezovic/tdbgo/pkg/store"
)

// File is an ObjectFile on disk. Appends are buffered; a read that reaches
// into the buffered tail flushes first.
type File struct {
	mu      sync.Mutex
	path    string
	f       *os.File
	w       *bufio.Writer
	length  int64 // including buffered bytes
	flushed int64
	closed  bool
}

func OpenFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open object file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat object file: %w", err)
	}
	return &File{
		path:    path,
		f:       f,
		w:       bufio.NewWriterSize(f, 64*1024),
		length:  info.Size(),
		flushed: info.Size(),
	}, nil
}

func (o *File) Path() string {
	return o.path
}

func (o *File) Write(payload []byte) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return 0, store.ErrClosed
	}
	offset := o.length
	if _, err := o.w.Write(encodeHeader(payload)); err != nil {
		return 0, err
	}
	if _, err := o.w.Write(payload); err != nil {
		return 0, err
	}
	o.length += headerLen + int64(len(payload))
	return offset, nil
}

func (o *File) Read(offset int64) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, store.ErrClosed
	}
	if offset < 0 || offset+headerLen > o.length {
		return nil, unknown(offset)
	}
	header := make([]byte, headerLen)
	if err := o.readAt(header, offset); err != nil {
		return nil, err
	}
	n, err := payloadLen(header, offset, o.length)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, n)
	if err := o.readAt(payload, offset+headerLen); err != nil {
		return nil, err
	}
	if err := verify(payload, header, offset); err != nil {
		return nil, err
	}
	return payload, nil
}

func (o *File) readAt(p []byte, offset int64) error {
	if offset+int64(len(p)) > o.flushed {
		if err := o.flush(); err != nil {
			return err
		}
	}
	if _, err := o.f.ReadAt(p, offset); err != nil {
		return fmt.Errorf("read object file at %d: %w", offset, err)
	}
	return nil
}

func (o *File) flush() error {
	if err := o.w.Flush(); err != nil {
		return err
	}
	o.flushed = o.length
	return nil
}

func (o *File) Length() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.length
}

func (o *File) Sync() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	if err := o.flush(); err != nil {
		return err
	}
	return o.f.Sync()
}

func (o *File) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	if err := o.flush(); err != nil {
		o.f.Close()
		return err
	}
	return o.f.Close()
}
