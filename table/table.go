// Package table provides sorted-table reading and writing, and the table
// cache that bounds the number of concurrently open tables.
package table

import (
	"github.com/awfeequdng/wickdb/dbformat"
	"github.com/awfeequdng/wickdb/internal/checksum"
	"github.com/awfeequdng/wickdb/status"
	"github.com/awfeequdng/wickdb/vfs"
)

// Options configures opening a table.
type Options struct {
	// Comparator must match the one the table was built with.
	Comparator dbformat.Comparator

	// ChecksumType must match the builder's trailer checksum.
	ChecksumType checksum.Type

	// VerifyChecksums verifies every block read against its trailer.
	VerifyChecksums bool
}

// DefaultOptions returns the default options. Open substitutes their
// Comparator and ChecksumType for a nil or invalid field; a false
// VerifyChecksums is kept as false.
func DefaultOptions() Options {
	return Options{
		Comparator:      dbformat.NewInternalKeyComparator(dbformat.BytewiseComparator{}),
		ChecksumType:    checksum.TypeCRC32C,
		VerifyChecksums: true,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Comparator == nil {
		o.Comparator = def.Comparator
	}
	if !o.ChecksumType.Valid() {
		o.ChecksumType = def.ChecksumType
	}
	return o
}

// ReadOptions controls a single read operation.
type ReadOptions struct {
	// VerifyChecksums verifies the data blocks touched by this read.
	VerifyChecksums bool
}

// Table is an immutable sorted table opened for reading. A Table is safe
// for concurrent use.
type Table struct {
	file vfs.RandomAccessFile
	size uint64
	opts Options

	indexBlock *block
}

// Open opens a table whose file is exactly size bytes long. On failure
// the file is left open for the caller to close.
func Open(file vfs.RandomAccessFile, size uint64, opts Options) (*Table, error) {
	opts = opts.withDefaults()

	if size < FooterLen {
		return nil, status.New(status.InvalidArgument, "file is too short to be a table")
	}
	if int64(size) > file.Size() {
		return nil, status.New(status.InvalidArgument, "declared table size exceeds file size")
	}

	footerBuf := make([]byte, FooterLen)
	if _, err := file.ReadAt(footerBuf, int64(size)-FooterLen); err != nil {
		return nil, status.Wrap(status.IOError, "read footer", err)
	}
	footer, err := DecodeFooter(footerBuf)
	if err != nil {
		return nil, err
	}

	// The index block is read once and always verified.
	indexContents, err := readBlock(file, footer.IndexHandle, opts.ChecksumType, true)
	if err != nil {
		return nil, err
	}
	indexBlock, err := newBlock(indexContents)
	if err != nil {
		return nil, err
	}

	return &Table{
		file:       file,
		size:       size,
		opts:       opts,
		indexBlock: indexBlock,
	}, nil
}

// Close closes the underlying file.
func (t *Table) Close() error {
	return t.file.Close()
}

// readDataBlock loads and parses the data block at handle.
func (t *Table) readDataBlock(h Handle, verify bool) (*block, error) {
	contents, err := readBlock(t.file, h, t.opts.ChecksumType, verify)
	if err != nil {
		return nil, err
	}
	return newBlock(contents)
}

// InternalGet seeks to the first entry at or after ikey and returns its
// parsed key and value when the entry's user key equals ikey's user key.
// Absence is (nil, nil, nil); the NotFound contract belongs to the caller.
func (t *Table) InternalGet(ro ReadOptions, ikey []byte) (*dbformat.ParsedInternalKey, []byte, error) {
	indexIter := t.indexBlock.newIterator(t.opts.Comparator)
	indexIter.Seek(ikey)
	if !indexIter.Valid() {
		return nil, nil, indexIter.Error()
	}

	handle, _, err := DecodeHandle(indexIter.Value())
	if err != nil {
		return nil, nil, err
	}
	dataBlock, err := t.readDataBlock(handle, ro.VerifyChecksums || t.opts.VerifyChecksums)
	if err != nil {
		return nil, nil, err
	}

	dataIter := dataBlock.newIterator(t.opts.Comparator)
	dataIter.Seek(ikey)
	if !dataIter.Valid() {
		return nil, nil, dataIter.Error()
	}

	parsed, err := dbformat.ParseInternalKey(dataIter.Key())
	if err != nil {
		return nil, nil, err
	}
	target, err := dbformat.ParseInternalKey(ikey)
	if err != nil {
		return nil, nil, status.Wrap(status.InvalidArgument, "malformed seek key", err)
	}
	if !equalUserKeys(t.opts.Comparator, parsed.UserKey, target.UserKey) {
		return nil, nil, nil
	}

	key := parsed
	key.UserKey = append([]byte(nil), parsed.UserKey...)
	value := append([]byte(nil), dataIter.Value()...)
	return &key, value, nil
}

func equalUserKeys(cmp dbformat.Comparator, a, b []byte) bool {
	if ikc, ok := cmp.(dbformat.InternalKeyComparator); ok {
		return ikc.User.Compare(a, b) == 0
	}
	return dbformat.BytewiseComparator{}.Compare(a, b) == 0
}
