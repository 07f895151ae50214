// Package vfs provides the storage boundary consumed by the log writer and
// the table cache.
//
// The abstraction is deliberately minimal: open a file for sequential or
// random-access reading, open/create a file for appending, append bytes,
// flush, durably sync, and report the current size. Errors from the FS
// operations and from Append, Sync, Size and Skip of the OS implementation
// are categorised into the status taxonomy: a missing file is NotFound,
// everything else the OS reports is IOError. Read, ReadAt and the Close of
// read handles return the underlying error as is (io.EOF at end of file).
//
// Flush pushes buffered bytes to the OS; only Sync makes them durable.
// Callers requiring crash-durability must use an implementation that
// fsyncs, and call Sync at their durability points.
package vfs

import (
	"io"
	"os"

	"github.com/awfeequdng/wickdb/status"
)

// FS is the filesystem interface.
type FS interface {
	// Create creates a new writable file, truncating it if it exists.
	Create(name string) (WritableFile, error)

	// OpenAppend opens a file for appending, creating it if absent.
	// Writes go to the end of any existing contents.
	OpenAppend(name string) (WritableFile, error)

	// Open opens an existing file for sequential reading.
	Open(name string) (SequentialFile, error)

	// OpenRandomAccess opens an existing file for random access reading.
	OpenRandomAccess(name string) (RandomAccessFile, error)

	// Remove deletes a file.
	Remove(name string) error

	// Rename atomically renames a file.
	Rename(oldname, newname string) error

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string, perm os.FileMode) error

	// Exists reports whether the file exists.
	Exists(name string) bool
}

// WritableFile is an append-only file.
type WritableFile interface {
	io.Closer

	// Append appends data to the file.
	Append(data []byte) error

	// Flush pushes buffered writes to the OS.
	Flush() error

	// Sync flushes the file contents to stable storage.
	Sync() error

	// Size returns the current file size, which is also the position the
	// next Append will write at.
	Size() (int64, error)
}

// SequentialFile is a file read from front to back.
type SequentialFile interface {
	io.Reader
	io.Closer

	// Skip skips n bytes.
	Skip(n int64) error
}

// RandomAccessFile is a file readable at any offset.
type RandomAccessFile interface {
	io.ReaderAt
	io.Closer

	// Size returns the file size.
	Size() int64
}

// wrapError categorises an OS error into the status taxonomy.
func wrapError(msg string, err error) error {
	if os.IsNotExist(err) {
		return status.Wrap(status.NotFound, msg, err)
	}
	return status.Wrap(status.IOError, msg, err)
}

// osFS implements FS using the OS filesystem.
type osFS struct{}

// Default returns the OS filesystem.
func Default() FS {
	return &osFS{}
}

func (fs *osFS) Create(name string) (WritableFile, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, wrapError("create file", err)
	}
	return &osWritableFile{f: f}, nil
}

func (fs *osFS) OpenAppend(name string) (WritableFile, error) {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, wrapError("open file for append", err)
	}
	return &osWritableFile{f: f}, nil
}

func (fs *osFS) Open(name string) (SequentialFile, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, wrapError("open file", err)
	}
	return &osSequentialFile{f: f}, nil
}

func (fs *osFS) OpenRandomAccess(name string) (RandomAccessFile, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, wrapError("open file", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, wrapError("stat file", err)
	}
	return &osRandomAccessFile{f: f, size: info.Size()}, nil
}

func (fs *osFS) Remove(name string) error {
	if err := os.Remove(name); err != nil {
		return wrapError("remove file", err)
	}
	return nil
}

func (fs *osFS) Rename(oldname, newname string) error {
	if err := os.Rename(oldname, newname); err != nil {
		return wrapError("rename file", err)
	}
	return nil
}

func (fs *osFS) MkdirAll(path string, perm os.FileMode) error {
	if err := os.MkdirAll(path, perm); err != nil {
		return wrapError("mkdir", err)
	}
	return nil
}

func (fs *osFS) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// osWritableFile wraps os.File for the WritableFile interface.
type osWritableFile struct {
	f *os.File
}

func (wf *osWritableFile) Append(data []byte) error {
	if _, err := wf.f.Write(data); err != nil {
		return wrapError("append", err)
	}
	return nil
}

func (wf *osWritableFile) Flush() error {
	// os.File writes are unbuffered; the OS already has the bytes.
	return nil
}

func (wf *osWritableFile) Sync() error {
	if err := wf.f.Sync(); err != nil {
		return wrapError("sync", err)
	}
	return nil
}

func (wf *osWritableFile) Size() (int64, error) {
	info, err := wf.f.Stat()
	if err != nil {
		return 0, wrapError("stat", err)
	}
	return info.Size(), nil
}

func (wf *osWritableFile) Close() error {
	if err := wf.f.Close(); err != nil {
		return wrapError("close", err)
	}
	return nil
}

// osSequentialFile wraps os.File for the SequentialFile interface.
type osSequentialFile struct {
	f *os.File
}

func (sf *osSequentialFile) Read(p []byte) (int, error) {
	return sf.f.Read(p)
}

func (sf *osSequentialFile) Skip(n int64) error {
	if _, err := sf.f.Seek(n, io.SeekCurrent); err != nil {
		return wrapError("seek", err)
	}
	return nil
}

func (sf *osSequentialFile) Close() error {
	return sf.f.Close()
}

// osRandomAccessFile wraps os.File for the RandomAccessFile interface.
type osRandomAccessFile struct {
	f    *os.File
	size int64
}

func (rf *osRandomAccessFile) ReadAt(p []byte, off int64) (int, error) {
	return rf.f.ReadAt(p, off)
}

func (rf *osRandomAccessFile) Size() int64 {
	return rf.size
}

func (rf *osRandomAccessFile) Close() error {
	return rf.f.Close()
}
