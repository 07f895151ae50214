// writer.go implements log file writing.
//
// Writer is a general purpose log stream writer. It provides an append-only
// abstraction for writing data, fragmenting records across block
// boundaries.
package wal

import (
	"github.com/awfeequdng/wickdb/internal/checksum"
	"github.com/awfeequdng/wickdb/internal/encoding"
	"github.com/awfeequdng/wickdb/status"
	"github.com/awfeequdng/wickdb/vfs"
)

// Writer writes records to a log file.
//
// Writer is not safe for concurrent use; producers sharing a writer must
// serialise externally. Each AddRecord is then the unit of atomicity.
type Writer struct {
	dest vfs.WritableFile

	// blockOffset is the current offset within the current block,
	// always in [0, BlockSize).
	blockOffset int

	// typeCRC holds the unmasked CRC-32C of the single type byte for every
	// record type, including the reserved ZeroType so array-indexed lookups
	// stay in bounds. Extended with the payload per record.
	typeCRC [MaxRecordType + 1]uint32

	headerBuf [HeaderSize]byte
}

// NewWriter creates a writer appending to dest. The destination may
// already hold data; the block offset is recovered from its size.
func NewWriter(dest vfs.WritableFile) (*Writer, error) {
	pos, err := dest.Size()
	if err != nil {
		return nil, status.Wrap(status.IOError, "log writer: query file size", err)
	}
	w := &Writer{
		dest:        dest,
		blockOffset: int(pos % BlockSize),
	}
	for i := range w.typeCRC {
		w.typeCRC[i] = checksum.Value([]byte{byte(i)})
	}
	return w, nil
}

// AddRecord appends a complete logical record to the log, splitting it into
// physical records when it does not fit in the current block.
//
// The call either appends every fragment or reports an IOError; it is not
// atomic against a mid-write crash, which the reader detects as a partial
// tail. A zero-length payload yields a single FullType record.
//
// Returns the number of bytes written, including headers and padding.
func (w *Writer) AddRecord(data []byte) (int, error) {
	ptr := data
	left := len(data)
	totalWritten := 0
	begin := true

	for {
		leftover := BlockSize - w.blockOffset

		// Not enough room for a header: pad out the block and start fresh.
		if leftover < HeaderSize {
			if leftover > 0 {
				var zeros [HeaderSize - 1]byte
				if err := w.dest.Append(zeros[:leftover]); err != nil {
					return totalWritten, status.Wrap(status.IOError, "log writer: pad block", err)
				}
				totalWritten += leftover
			}
			w.blockOffset = 0
		}

		// Invariant: we never leave < HeaderSize bytes in a block.
		avail := BlockSize - w.blockOffset - HeaderSize
		fragmentLength := min(left, avail)

		end := left == fragmentLength
		var recordType RecordType
		switch {
		case begin && end:
			recordType = FullType
		case begin:
			recordType = FirstType
		case end:
			recordType = LastType
		default:
			recordType = MiddleType
		}

		n, err := w.emitPhysicalRecord(recordType, ptr[:fragmentLength])
		totalWritten += n
		if err != nil {
			return totalWritten, err
		}

		ptr = ptr[fragmentLength:]
		left -= fragmentLength
		begin = false

		if left == 0 {
			break
		}
	}

	return totalWritten, nil
}

// emitPhysicalRecord writes a single physical record and flushes it.
func (w *Writer) emitPhysicalRecord(t RecordType, payload []byte) (int, error) {
	n := len(payload)
	if n > MaxRecordPayload {
		return 0, status.New(status.InvalidArgument, "log writer: record payload too large")
	}

	encoding.EncodeFixed16(w.headerBuf[4:], uint16(n))
	w.headerBuf[6] = byte(t)

	crc := checksum.MaskedExtend(w.typeCRC[t], payload)
	encoding.EncodeFixed32(w.headerBuf[:], crc)

	if err := w.dest.Append(w.headerBuf[:]); err != nil {
		return 0, status.Wrap(status.IOError, "log writer: write header", err)
	}
	if err := w.dest.Append(payload); err != nil {
		return HeaderSize, status.Wrap(status.IOError, "log writer: write payload", err)
	}
	if err := w.dest.Flush(); err != nil {
		return HeaderSize + n, status.Wrap(status.IOError, "log writer: flush", err)
	}

	w.blockOffset += HeaderSize + n
	if w.blockOffset == BlockSize {
		// The record filled the block exactly; the next one starts a new block.
		w.blockOffset = 0
	}
	return HeaderSize + n, nil
}

// BlockOffset returns the current offset within the current block.
func (w *Writer) BlockOffset() int {
	return w.blockOffset
}

// Sync flushes the log to stable storage.
func (w *Writer) Sync() error {
	if err := w.dest.Sync(); err != nil {
		return status.Wrap(status.IOError, "log writer: sync", err)
	}
	return nil
}
