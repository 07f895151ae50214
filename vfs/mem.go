// mem.go implements an in-memory FS used by tests and by callers that want
// an engine without disk I/O.
package vfs

import (
	"io"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/awfeequdng/wickdb/status"
)

// MemFS is an in-memory FS. Safe for concurrent use.
type MemFS struct {
	mu    sync.Mutex
	files map[string]*memFile
}

// NewMemFS returns an empty in-memory filesystem.
func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string]*memFile)}
}

// memFile holds the contents of one file. The data is shared between the
// FS and any open handles; handles hold their own cursor.
type memFile struct {
	mu   sync.Mutex
	data []byte
}

func (f *memFile) readAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *memFile) size() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.data))
}

func clean(name string) string {
	return strings.TrimPrefix(path.Clean(name), "./")
}

func (fs *MemFS) lookup(name string) (*memFile, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	f, ok := fs.files[clean(name)]
	return f, ok
}

// Create creates a new writable file, truncating any existing contents.
func (fs *MemFS) Create(name string) (WritableFile, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	f := &memFile{}
	fs.files[clean(name)] = f
	return &memWritableFile{f: f}, nil
}

// OpenAppend opens a file for appending, creating it if absent.
func (fs *MemFS) OpenAppend(name string) (WritableFile, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	f, ok := fs.files[clean(name)]
	if !ok {
		f = &memFile{}
		fs.files[clean(name)] = f
	}
	return &memWritableFile{f: f}, nil
}

// Open opens an existing file for sequential reading.
func (fs *MemFS) Open(name string) (SequentialFile, error) {
	f, ok := fs.lookup(name)
	if !ok {
		return nil, status.New(status.NotFound, "open file: "+clean(name))
	}
	return &memSequentialFile{f: f}, nil
}

// OpenRandomAccess opens an existing file for random access reading.
func (fs *MemFS) OpenRandomAccess(name string) (RandomAccessFile, error) {
	f, ok := fs.lookup(name)
	if !ok {
		return nil, status.New(status.NotFound, "open file: "+clean(name))
	}
	return &memRandomAccessFile{f: f}, nil
}

// Remove deletes a file.
func (fs *MemFS) Remove(name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.files[clean(name)]; !ok {
		return status.New(status.NotFound, "remove file: "+clean(name))
	}
	delete(fs.files, clean(name))
	return nil
}

// Rename renames a file.
func (fs *MemFS) Rename(oldname, newname string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	f, ok := fs.files[clean(oldname)]
	if !ok {
		return status.New(status.NotFound, "rename file: "+clean(oldname))
	}
	delete(fs.files, clean(oldname))
	fs.files[clean(newname)] = f
	return nil
}

// MkdirAll is a no-op: the memory filesystem has a flat namespace.
func (fs *MemFS) MkdirAll(path string, perm os.FileMode) error {
	return nil
}

// Exists reports whether the file exists.
func (fs *MemFS) Exists(name string) bool {
	_, ok := fs.lookup(name)
	return ok
}

// SetContent replaces the contents of a file, creating it if absent.
// Test helper for corrupting files in place.
func (fs *MemFS) SetContent(name string, data []byte) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	f, ok := fs.files[clean(name)]
	if !ok {
		f = &memFile{}
		fs.files[clean(name)] = f
	}
	f.mu.Lock()
	f.data = append([]byte(nil), data...)
	f.mu.Unlock()
}

// Content returns a copy of the contents of a file.
func (fs *MemFS) Content(name string) ([]byte, bool) {
	f, ok := fs.lookup(name)
	if !ok {
		return nil, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.data...), true
}

type memWritableFile struct {
	f *memFile
}

func (wf *memWritableFile) Append(data []byte) error {
	wf.f.mu.Lock()
	wf.f.data = append(wf.f.data, data...)
	wf.f.mu.Unlock()
	return nil
}

func (wf *memWritableFile) Flush() error { return nil }

func (wf *memWritableFile) Sync() error { return nil }

func (wf *memWritableFile) Size() (int64, error) {
	return wf.f.size(), nil
}

func (wf *memWritableFile) Close() error { return nil }

type memSequentialFile struct {
	f   *memFile
	pos int64
}

func (sf *memSequentialFile) Read(p []byte) (int, error) {
	n, err := sf.f.readAt(p, sf.pos)
	sf.pos += int64(n)
	return n, err
}

func (sf *memSequentialFile) Skip(n int64) error {
	sf.pos += n
	return nil
}

func (sf *memSequentialFile) Close() error { return nil }

type memRandomAccessFile struct {
	f *memFile
}

func (rf *memRandomAccessFile) ReadAt(p []byte, off int64) (int, error) {
	return rf.f.readAt(p, off)
}

func (rf *memRandomAccessFile) Size() int64 {
	return rf.f.size()
}

func (rf *memRandomAccessFile) Close() error { return nil }
