// Package iterator defines the iterator contract shared by blocks, tables,
// and the table cache, plus the empty and cleanup-wrapping iterators.
package iterator

// Iterator walks a sorted sequence of key-value entries.
//
// An iterator starts unpositioned; call SeekToFirst or Seek before reading.
// Key and Value are only meaningful while Valid reports true. After
// iteration, Error reports the first failure encountered, and Close must be
// called exactly once to release resources the iterator pins.
type Iterator interface {
	// Valid reports whether the iterator is positioned at an entry.
	Valid() bool

	// SeekToFirst positions the iterator at the first entry.
	SeekToFirst()

	// Seek positions the iterator at the first entry with key >= target.
	Seek(target []byte)

	// Next advances to the next entry.
	Next()

	// Key returns the current key. REQUIRES: Valid().
	Key() []byte

	// Value returns the current value. REQUIRES: Valid().
	Value() []byte

	// Error returns the first error encountered, if any.
	Error() error

	// Close releases resources held by the iterator.
	Close() error
}

// empty is an iterator over nothing, optionally carrying an error.
type empty struct {
	err error
}

// NewEmpty returns an iterator with no entries that surfaces err from
// Error. A nil err yields a clean empty iterator.
func NewEmpty(err error) Iterator {
	return &empty{err: err}
}

func (e *empty) Valid() bool        { return false }
func (e *empty) SeekToFirst()       {}
func (e *empty) Seek(target []byte) {}
func (e *empty) Next()              {}
func (e *empty) Key() []byte        { return nil }
func (e *empty) Value() []byte      { return nil }
func (e *empty) Error() error       { return e.err }
func (e *empty) Close() error       { return e.err }

// cleanupIter wraps an iterator with one-shot cleanup functions invoked
// from Close.
type cleanupIter struct {
	Iterator
	cleanups []func()
	closed   bool
}

// WithCleanup wraps it so that the given functions run exactly once when
// the iterator is closed, after the wrapped iterator's own Close.
func WithCleanup(it Iterator, cleanups ...func()) Iterator {
	return &cleanupIter{Iterator: it, cleanups: cleanups}
}

// RegisterCleanup adds another one-shot cleanup to run on Close.
func (c *cleanupIter) RegisterCleanup(f func()) {
	c.cleanups = append(c.cleanups, f)
}

func (c *cleanupIter) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	err := c.Iterator.Close()
	for _, f := range c.cleanups {
		f()
	}
	c.cleanups = nil
	return err
}
