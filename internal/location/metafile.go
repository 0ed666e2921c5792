package location

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/magiconair/properties"

	"github.com/aleksaelezovic/tdbgo/pkg/store"
)

// MetaFile is a persistent properties file of configuration facts. A
// MetaFile without a path lives in memory only.
type MetaFile struct {
	mu    sync.Mutex
	path  string
	props *properties.Properties
	dirty bool
}

// OpenMetaFile loads path if it exists. An empty path gives an in-memory
// metafile.
func OpenMetaFile(path string) (*MetaFile, error) {
	props := properties.NewProperties()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			props, err = properties.LoadFile(path, properties.UTF8)
			if err != nil {
				return nil, fmt.Errorf("failed to load metafile %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}
	props.DisableExpansion = true
	return &MetaFile{path: path, props: props}, nil
}

func (m *MetaFile) Path() string {
	return m.path
}

func (m *MetaFile) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.props.Get(key)
}

// GetInt parses key as an integer. ok is false when the key is absent.
func (m *MetaFile) GetInt(key string) (n int, ok bool, err error) {
	v, ok := m.Get(key)
	if !ok {
		return 0, false, nil
	}
	n, err = strconv.Atoi(v)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %s=%q is not a number", m.name(), key, v)
	}
	return n, true, nil
}

func (m *MetaFile) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set(key, value)
}

func (m *MetaFile) set(key, value string) error {
	if prev, ok := m.props.Get(key); ok && prev == value {
		return nil
	}
	if _, _, err := m.props.Set(key, value); err != nil {
		return err
	}
	m.dirty = true
	return nil
}

// GetOrSetDefault returns the stored value, storing def first if the key is
// absent.
func (m *MetaFile) GetOrSetDefault(key, def string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.props.Get(key); ok {
		return v, nil
	}
	return def, m.set(key, def)
}

// CheckOrSet stores expected if key is absent and otherwise requires the
// stored value to equal it.
func (m *MetaFile) CheckOrSet(key, expected string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.props.Get(key); ok {
		if v != expected {
			return store.ConfigErrorf("%s: %s is %q, expected %q", m.name(), key, v, expected)
		}
		return nil
	}
	return m.set(key, expected)
}

func (m *MetaFile) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := m.props.Keys()
	sort.Strings(keys)
	return keys
}

// IsEmpty reports whether nothing has been recorded yet.
func (m *MetaFile) IsEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.props.Len() == 0
}

// Map snapshots every key.
func (m *MetaFile) Map() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.props.Map()
}

// Flush writes pending changes by writing a temporary file and renaming it
// over the old one.
func (m *MetaFile) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dirty || m.path == "" {
		m.dirty = false
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.path), filepath.Base(m.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp metafile: %w", err)
	}
	defer os.Remove(tmp.Name())

	sorted := properties.NewProperties()
	sorted.DisableExpansion = true
	for _, k := range sortedKeys(m.props) {
		v, _ := m.props.Get(k)
		if _, _, err := sorted.Set(k, v); err != nil {
			tmp.Close()
			return err
		}
	}
	if _, err := sorted.Write(tmp, properties.UTF8); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write metafile %s: %w", m.path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		return fmt.Errorf("failed to replace metafile %s: %w", m.path, err)
	}
	m.dirty = false
	return nil
}

func (m *MetaFile) name() string {
	if m.path == "" {
		return "metafile(mem)"
	}
	return filepath.Base(m.path)
}

func sortedKeys(p *properties.Properties) []string {
	keys := p.Keys()
	sort.Strings(keys)
	return keys
}
