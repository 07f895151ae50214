// builder.go implements writing sorted tables.
package table

import (
	"github.com/awfeequdng/wickdb/dbformat"
	"github.com/awfeequdng/wickdb/internal/checksum"
	"github.com/awfeequdng/wickdb/internal/compression"
	"github.com/awfeequdng/wickdb/internal/encoding"
	"github.com/awfeequdng/wickdb/status"
	"github.com/awfeequdng/wickdb/vfs"
)

// BuilderOptions configures table construction.
type BuilderOptions struct {
	// Comparator orders the keys. Tables must be read with the same
	// comparator they were written with.
	Comparator dbformat.Comparator

	// BlockSize is the uncompressed size threshold at which a data block
	// is cut.
	BlockSize int

	// RestartInterval is the number of entries between restart points.
	RestartInterval int

	// Compression is applied per block. Blocks the codec cannot shrink are
	// stored uncompressed.
	Compression compression.Type

	// ChecksumType selects the block trailer checksum.
	ChecksumType checksum.Type
}

// DefaultBuilderOptions returns the default options. NewBuilder substitutes
// their Comparator, BlockSize, RestartInterval and ChecksumType for a zero
// or invalid field; a zero Compression is kept and means NoCompression.
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		Comparator:      dbformat.NewInternalKeyComparator(dbformat.BytewiseComparator{}),
		BlockSize:       4096,
		RestartInterval: 16,
		Compression:     compression.SnappyCompression,
		ChecksumType:    checksum.TypeCRC32C,
	}
}

func (o BuilderOptions) withDefaults() BuilderOptions {
	def := DefaultBuilderOptions()
	if o.Comparator == nil {
		o.Comparator = def.Comparator
	}
	if o.BlockSize <= 0 {
		o.BlockSize = def.BlockSize
	}
	if o.RestartInterval <= 0 {
		o.RestartInterval = def.RestartInterval
	}
	if !o.ChecksumType.Valid() {
		o.ChecksumType = def.ChecksumType
	}
	return o
}

// Builder writes a sorted table to a file. Keys must be added in strictly
// increasing order; Finish writes the index and footer.
type Builder struct {
	file vfs.WritableFile
	opts BuilderOptions

	dataBlock  *blockBuilder
	indexBlock *blockBuilder

	offset     uint64
	numEntries int
	lastKey    []byte

	// pendingHandle is the handle of the last flushed data block, whose
	// index entry is written once the next key is known.
	pendingHandle Handle
	pendingIndex  bool

	err error
}

// NewBuilder creates a table builder writing to file.
func NewBuilder(file vfs.WritableFile, opts BuilderOptions) *Builder {
	opts = opts.withDefaults()
	return &Builder{
		file:       file,
		opts:       opts,
		dataBlock:  newBlockBuilder(opts.RestartInterval),
		indexBlock: newBlockBuilder(1),
	}
}

// Add appends a key-value pair.
// REQUIRES: key is greater than any previously added key.
func (b *Builder) Add(key, value []byte) error {
	if b.err != nil {
		return b.err
	}
	if b.numEntries > 0 && b.opts.Comparator.Compare(key, b.lastKey) <= 0 {
		b.err = status.New(status.InvalidArgument, "keys added out of order")
		return b.err
	}

	if b.pendingIndex {
		// The previous block's last key separates it from this key.
		b.indexBlock.add(b.lastKey, b.pendingHandle.EncodeTo(nil))
		b.pendingIndex = false
	}

	b.dataBlock.add(key, value)
	b.lastKey = append(b.lastKey[:0], key...)
	b.numEntries++

	if b.dataBlock.sizeEstimate() >= b.opts.BlockSize {
		return b.flushDataBlock()
	}
	return nil
}

// flushDataBlock writes out the current data block and records its handle
// for the pending index entry.
func (b *Builder) flushDataBlock() error {
	if b.dataBlock.empty() {
		return nil
	}
	handle, err := b.writeBlock(b.dataBlock.finish())
	if err != nil {
		b.err = err
		return err
	}
	b.dataBlock.reset()
	b.pendingHandle = handle
	b.pendingIndex = true
	return nil
}

// writeBlock compresses contents, appends the trailer, and writes it.
func (b *Builder) writeBlock(contents []byte) (Handle, error) {
	blockType := b.opts.Compression
	stored := contents
	if blockType != compression.NoCompression {
		compressed, err := compression.Compress(blockType, contents)
		// Fall back to raw storage when compression does not pay off.
		if err != nil || len(compressed) >= len(contents) {
			blockType = compression.NoCompression
		} else {
			stored = compressed
		}
	}

	handle := Handle{Offset: b.offset, Size: uint64(len(stored))}

	var trailer [BlockTrailerLen]byte
	trailer[0] = byte(blockType)
	encoding.EncodeFixed32(trailer[1:],
		checksum.BlockChecksum(b.opts.ChecksumType, stored, byte(blockType)))

	if err := b.file.Append(stored); err != nil {
		return Handle{}, status.Wrap(status.IOError, "write block", err)
	}
	if err := b.file.Append(trailer[:]); err != nil {
		return Handle{}, status.Wrap(status.IOError, "write block trailer", err)
	}
	b.offset += uint64(len(stored)) + BlockTrailerLen
	return handle, nil
}

// Finish flushes the remaining data, writes the metaindex, index, and
// footer, and syncs the file. The file is left open for the caller.
func (b *Builder) Finish() error {
	if b.err != nil {
		return b.err
	}
	if err := b.flushDataBlock(); err != nil {
		return err
	}
	if b.pendingIndex {
		b.indexBlock.add(b.lastKey, b.pendingHandle.EncodeTo(nil))
		b.pendingIndex = false
	}

	// Metaindex is present for format compatibility; it holds a single
	// placeholder entry, "filter.none", and no filter blocks are written.
	metaindex := newBlockBuilder(1)
	metaindex.add([]byte("filter.none"), nil)
	metaindexHandle, err := b.writeBlock(metaindex.finish())
	if err != nil {
		b.err = err
		return err
	}

	indexHandle, err := b.writeBlock(b.indexBlock.finish())
	if err != nil {
		b.err = err
		return err
	}

	footer := Footer{MetaindexHandle: metaindexHandle, IndexHandle: indexHandle}
	if err := b.file.Append(footer.Encode()); err != nil {
		b.err = status.Wrap(status.IOError, "write footer", err)
		return b.err
	}
	b.offset += FooterLen

	if err := b.file.Flush(); err != nil {
		b.err = status.Wrap(status.IOError, "flush table", err)
		return b.err
	}
	if err := b.file.Sync(); err != nil {
		b.err = status.Wrap(status.IOError, "sync table", err)
		return b.err
	}
	return nil
}

// NumEntries returns the number of entries added so far.
func (b *Builder) NumEntries() int {
	return b.numEntries
}

// FileSize returns the number of bytes written so far.
func (b *Builder) FileSize() uint64 {
	return b.offset
}
