// format.go defines the table file layout: block handles, the fixed-size
// footer, and the checksummed block trailer.
//
// Table File Layout:
//
//	[data block 1]
//	...
//	[data block N]
//	[metaindex block]
//	[index block]
//	[Footer]        (fixed size, at end of file)
//
// Every block is followed by a 5-byte trailer: a 1-byte compression type
// and a 4-byte checksum over the stored block contents and the type byte.
package table

import (
	"github.com/awfeequdng/wickdb/internal/checksum"
	"github.com/awfeequdng/wickdb/internal/compression"
	"github.com/awfeequdng/wickdb/internal/encoding"
	"github.com/awfeequdng/wickdb/status"
	"github.com/awfeequdng/wickdb/vfs"
)

// TableMagic marks the last 8 bytes of every table file.
const TableMagic uint64 = 0xdb4775248b80fb57

// FooterLen is the encoded length of the footer: two block handles padded
// to their maximum length plus the magic number.
const FooterLen = 2*MaxHandleLen + 8

// BlockTrailerLen is the length of the per-block trailer:
// compression type (1) + checksum (4).
const BlockTrailerLen = 5

// MaxHandleLen is the maximum encoded length of a block handle.
const MaxHandleLen = 2 * encoding.MaxVarint64Length

// Handle points at the extent of a file storing a block.
type Handle struct {
	Offset uint64
	Size   uint64
}

// EncodeTo appends the encoding of h to dst.
func (h Handle) EncodeTo(dst []byte) []byte {
	dst = encoding.AppendVarint64(dst, h.Offset)
	return encoding.AppendVarint64(dst, h.Size)
}

// DecodeHandle decodes a block handle from data and returns the number of
// bytes consumed.
func DecodeHandle(data []byte) (Handle, int, error) {
	offset, n1, err := encoding.DecodeVarint64(data)
	if err != nil {
		return Handle{}, 0, status.New(status.Corruption, "bad block handle")
	}
	size, n2, err := encoding.DecodeVarint64(data[n1:])
	if err != nil {
		return Handle{}, 0, status.New(status.Corruption, "bad block handle")
	}
	return Handle{Offset: offset, Size: size}, n1 + n2, nil
}

// Footer holds the handles locating the metaindex and index blocks.
type Footer struct {
	MetaindexHandle Handle
	IndexHandle     Handle
}

// Encode returns the fixed-length footer encoding.
func (f Footer) Encode() []byte {
	buf := make([]byte, 0, FooterLen)
	buf = f.MetaindexHandle.EncodeTo(buf)
	buf = f.IndexHandle.EncodeTo(buf)
	for len(buf) < 2*MaxHandleLen {
		buf = append(buf, 0)
	}
	return encoding.AppendFixed64(buf, TableMagic)
}

// DecodeFooter parses a footer from the last FooterLen bytes of a file.
func DecodeFooter(data []byte) (Footer, error) {
	if len(data) != FooterLen {
		return Footer{}, status.New(status.Corruption, "bad footer length")
	}
	if encoding.DecodeFixed64(data[FooterLen-8:]) != TableMagic {
		return Footer{}, status.New(status.Corruption, "bad table magic number")
	}
	var f Footer
	meta, n, err := DecodeHandle(data)
	if err != nil {
		return Footer{}, err
	}
	f.MetaindexHandle = meta
	index, _, err := DecodeHandle(data[n:])
	if err != nil {
		return Footer{}, err
	}
	f.IndexHandle = index
	return f, nil
}

// readBlock reads one block plus trailer, verifies the checksum, and
// decompresses the contents.
func readBlock(file vfs.RandomAccessFile, h Handle, checksumType checksum.Type, verify bool) ([]byte, error) {
	buf := make([]byte, h.Size+BlockTrailerLen)
	if _, err := file.ReadAt(buf, int64(h.Offset)); err != nil {
		return nil, status.Wrap(status.IOError, "read block", err)
	}

	contents := buf[:h.Size]
	compressionType := compression.Type(buf[h.Size])

	if verify {
		stored := encoding.DecodeFixed32(buf[h.Size+1:])
		computed := checksum.BlockChecksum(checksumType, contents, byte(compressionType))
		if stored != computed {
			return nil, status.New(status.Corruption, "block checksum mismatch")
		}
	}

	if !compressionType.IsSupported() {
		return nil, status.New(status.Corruption, "unknown block compression type")
	}
	decompressed, err := compression.Decompress(compressionType, contents)
	if err != nil {
		return nil, status.Wrap(status.CompressionError, "decompress block", err)
	}
	return decompressed, nil
}
