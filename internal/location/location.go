// Package location names the directory a dataset lives in and the
// configuration files recorded there.
package location

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

const (
	// MetaName is the basename of the location metafile, this.info.
	MetaName = "this"

	ExtMeta  = "info"
	ExtIndex = "idn"
	ExtData  = "dat"
)

// Location is a dataset directory, or an in-memory stand-in for one.
type Location struct {
	dir string

	mu    sync.Mutex
	metas map[string]*MetaFile
}

// New opens dir, creating it if needed.
func New(dir string) (*Location, error) {
	if dir == "" {
		return nil, fmt.Errorf("location directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create location %s: %w", dir, err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &Location{dir: abs, metas: map[string]*MetaFile{}}, nil
}

// Mem returns a location that keeps everything in memory.
func Mem() *Location {
	return &Location{metas: map[string]*MetaFile{}}
}

func (l *Location) IsMem() bool {
	return l.dir == ""
}

// Dir is the directory, or "" for a memory location.
func (l *Location) Dir() string {
	return l.dir
}

func (l *Location) String() string {
	if l.IsMem() {
		return "mem"
	}
	return l.dir
}

// Path returns the file name for basename.ext, or "" in memory.
func (l *Location) Path(basename, ext string) string {
	if l.IsMem() {
		return ""
	}
	name := basename
	if ext != "" {
		name += "." + ext
	}
	return filepath.Join(l.dir, name)
}

func (l *Location) Exists(basename, ext string) bool {
	p := l.Path(basename, ext)
	if p == "" {
		return false
	}
	_, err := os.Stat(p)
	return err == nil
}

// MetaFile returns the location metafile.
func (l *Location) MetaFile() (*MetaFile, error) {
	return l.meta(MetaName)
}

func (l *Location) meta(basename string) (*MetaFile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m, ok := l.metas[basename]; ok {
		return m, nil
	}
	m, err := OpenMetaFile(l.Path(basename, ExtMeta))
	if err != nil {
		return nil, err
	}
	l.metas[basename] = m
	return m, nil
}

// FileSet returns the group of files sharing basename.
func (l *Location) FileSet(basename string) *FileSet {
	return &FileSet{loc: l, basename: basename}
}

// Flush writes every metafile opened through this location.
func (l *Location) Flush() error {
	l.mu.Lock()
	metas := make([]*MetaFile, 0, len(l.metas))
	for _, m := range l.metas {
		metas = append(metas, m)
	}
	l.mu.Unlock()

	for _, m := range metas {
		if err := m.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// File describes one file in the location.
type File struct {
	Name string
	Size int64
}

// Files lists the location's files and directories by name, with sizes.
// Directories report the total size of their contents.
func (l *Location) Files() ([]File, error) {
	if l.IsMem() {
		return nil, nil
	}
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}
	var files []File
	for _, e := range entries {
		var size int64
		err := filepath.WalkDir(filepath.Join(l.dir, e.Name()), func(_ string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			size += info.Size()
			return nil
		})
		if err != nil {
			return nil, err
		}
		files = append(files, File{Name: e.Name(), Size: size})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// FileSet is the files of one index or table: basename.idn, basename.dat
// and the metafile basename.info.
type FileSet struct {
	loc      *Location
	basename string
}

func (f *FileSet) Location() *Location { return f.loc }
func (f *FileSet) Basename() string    { return f.basename }

func (f *FileSet) Path(ext string) string {
	return f.loc.Path(f.basename, ext)
}

func (f *FileSet) MetaFile() (*MetaFile, error) {
	return f.loc.meta(f.basename)
}

func (f *FileSet) String() string {
	return f.loc.String() + "/" + f.basename
}
