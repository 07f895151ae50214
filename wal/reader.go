// reader.go implements log file reading.
//
// Reader is the inverse of Writer: it reassembles fragmented records and
// recovers from corruption by resynchronising at the next block boundary.
package wal

import (
	"errors"
	"io"

	"github.com/awfeequdng/wickdb/internal/checksum"
	"github.com/awfeequdng/wickdb/internal/encoding"
	"github.com/awfeequdng/wickdb/logging"
	"github.com/awfeequdng/wickdb/status"
	"github.com/awfeequdng/wickdb/vfs"
)

var (
	// ErrCorruptedRecord indicates a record with an invalid checksum.
	ErrCorruptedRecord = errors.New("wal: corrupted record (bad checksum)")

	// ErrBadRecordLength indicates a record whose declared length exceeds
	// the remaining bytes of its block.
	ErrBadRecordLength = errors.New("wal: bad record length")

	// ErrZeroTypeRecord indicates a reserved zero-type header.
	ErrZeroTypeRecord = errors.New("wal: zero type record")

	// ErrInvalidRecordType indicates an unrecognized record type.
	ErrInvalidRecordType = errors.New("wal: invalid record type")

	// ErrUnexpectedEOF indicates the file ended inside a fragmented record.
	ErrUnexpectedEOF = errors.New("wal: unexpected end of file")

	// ErrUnexpectedMiddleRecord indicates a middle fragment without a first.
	ErrUnexpectedMiddleRecord = errors.New("wal: unexpected middle record")

	// ErrUnexpectedLastRecord indicates a last fragment without a first.
	ErrUnexpectedLastRecord = errors.New("wal: unexpected last record")

	// ErrUnexpectedFirstRecord indicates a first or full fragment while a
	// fragmented record was still being assembled.
	ErrUnexpectedFirstRecord = errors.New("wal: unexpected first record")
)

// Reporter is notified when the reader detects and drops bytes.
type Reporter interface {
	// Corruption is called with the approximate number of bytes dropped
	// and the reason.
	Corruption(bytes int, reason error)
}

// LogReporter reports corruption to a logging.Logger.
type LogReporter struct {
	Logger logging.Logger
}

// Corruption implements Reporter.
func (r LogReporter) Corruption(bytes int, reason error) {
	r.Logger.Warnf("[wal] dropping %d bytes: %v", bytes, reason)
}

// Reader reads records from a log file.
type Reader struct {
	src          vfs.SequentialFile
	reporter     Reporter // may be nil
	checksum     bool     // whether to verify checksums
	backingStore []byte   // one block of storage
	buffer       []byte   // unconsumed tail of the current block
	eof          bool

	// Fragment assembly.
	fragments          []byte
	inFragmentedRecord bool
}

// NewReader creates a log reader positioned at the start of src.
//
// The reporter may be nil to silently drop corrupt regions. Checksum
// verification can be disabled for already-verified replication streams.
func NewReader(src vfs.SequentialFile, reporter Reporter, verifyChecksum bool) *Reader {
	return &Reader{
		src:          src,
		reporter:     reporter,
		checksum:     verifyChecksum,
		backingStore: make([]byte, BlockSize),
	}
}

// ReadRecord returns the next logical record.
//
// Returns io.EOF when no more records are available. Corrupt regions are
// reported and skipped, resynchronising at the next block boundary. The
// returned slice is valid until the next call to ReadRecord.
func (r *Reader) ReadRecord() ([]byte, error) {
	r.fragments = r.fragments[:0]
	r.inFragmentedRecord = false

	for {
		recordType, fragment, err := r.readPhysicalRecord()
		if err != nil {
			if errors.Is(err, io.EOF) && r.inFragmentedRecord {
				// The writer died mid-record; drop the partial prefix.
				r.reportCorruption(len(r.fragments), ErrUnexpectedEOF)
				return nil, io.EOF
			}
			return nil, err
		}

		switch recordType {
		case FullType:
			if r.inFragmentedRecord {
				r.reportCorruption(len(r.fragments), ErrUnexpectedFirstRecord)
				r.inFragmentedRecord = false
			}
			return fragment, nil

		case FirstType:
			if r.inFragmentedRecord {
				r.reportCorruption(len(r.fragments), ErrUnexpectedFirstRecord)
			}
			r.fragments = append(r.fragments[:0], fragment...)
			r.inFragmentedRecord = true

		case MiddleType:
			if !r.inFragmentedRecord {
				r.reportCorruption(len(fragment), ErrUnexpectedMiddleRecord)
				continue
			}
			r.fragments = append(r.fragments, fragment...)

		case LastType:
			if !r.inFragmentedRecord {
				r.reportCorruption(len(fragment), ErrUnexpectedLastRecord)
				continue
			}
			r.fragments = append(r.fragments, fragment...)
			r.inFragmentedRecord = false
			return r.fragments, nil

		default:
			r.reportCorruption(len(fragment), ErrInvalidRecordType)
		}
	}
}

// readPhysicalRecord reads the next physical record.
//
// On corruption the remainder of the current block is discarded so reading
// resumes at the next block boundary.
func (r *Reader) readPhysicalRecord() (RecordType, []byte, error) {
	for {
		if len(r.buffer) < HeaderSize {
			// A block tail shorter than a header is writer padding (or a
			// truncated header after a crash); either way it is dropped.
			if r.eof {
				return 0, nil, io.EOF
			}
			n, err := io.ReadFull(r.src, r.backingStore)
			if err != nil {
				if err != io.EOF && err != io.ErrUnexpectedEOF {
					return 0, nil, status.Wrap(status.IOError, "log reader: read block", err)
				}
				r.eof = true
				if n == 0 {
					return 0, nil, io.EOF
				}
			}
			r.buffer = r.backingStore[:n]
			continue
		}

		header := r.buffer[:HeaderSize]
		crcStored := encoding.DecodeFixed32(header[0:4])
		length := int(encoding.DecodeFixed16(header[4:6]))
		recordType := RecordType(header[6])

		if HeaderSize+length > len(r.buffer) {
			if r.eof {
				// Truncated mid-write; treat like a partial tail.
				r.buffer = nil
				return 0, nil, io.EOF
			}
			// The length cannot reach past the block the header lives in.
			r.reportCorruption(len(r.buffer), ErrBadRecordLength)
			r.buffer = nil
			continue
		}

		if recordType == ZeroType {
			r.reportCorruption(len(r.buffer), ErrZeroTypeRecord)
			r.buffer = nil
			continue
		}

		payload := r.buffer[HeaderSize : HeaderSize+length]

		if r.checksum {
			crc := checksum.MaskedExtend(checksum.Value(header[6:7]), payload)
			if crc != crcStored {
				r.reportCorruption(len(r.buffer), ErrCorruptedRecord)
				r.buffer = nil
				continue
			}
		}

		r.buffer = r.buffer[HeaderSize+length:]
		return recordType, payload, nil
	}
}

func (r *Reader) reportCorruption(bytes int, reason error) {
	if r.reporter != nil {
		r.reporter.Corruption(bytes, reason)
	}
}
