// Package wal provides the write-ahead log record format together with its
// framing writer and resynchronising reader.
//
// File Format:
// A log file is a sequence of fixed-size 32KB blocks. Records are written
// sequentially and may span multiple blocks via fragmentation, but a record
// header never straddles a block boundary: a block tail shorter than a
// header is zero-padded and skipped by the reader.
//
// Record Format:
//
//	+----------+---------+------+---------+
//	| CRC (4B) | Len(2B) | Type | Payload |
//	+----------+---------+------+---------+
//
// CRC is the masked CRC-32C over the type byte followed by the payload.
// All integers are little-endian.
package wal

// BlockSize is the size of each block in the log file.
const BlockSize = 32768

// HeaderSize is the size of a record header:
// checksum (4) + length (2) + type (1).
const HeaderSize = 7

// MaxRecordPayload is the maximum payload of a single physical record.
const MaxRecordPayload = BlockSize - HeaderSize

// RecordType represents the type of a log record.
// These values are embedded in the on-disk format and MUST NOT change.
type RecordType uint8

const (
	// ZeroType is reserved for preallocated files. It is never emitted by
	// the writer; encountering it signals corruption or padding.
	ZeroType RecordType = 0

	// FullType indicates a record contained entirely in one fragment.
	FullType RecordType = 1

	// FirstType indicates the first fragment of a spanning record.
	FirstType RecordType = 2

	// MiddleType indicates an interior fragment.
	MiddleType RecordType = 3

	// LastType indicates the final fragment.
	LastType RecordType = 4

	// MaxRecordType is the largest valid record type value.
	MaxRecordType = LastType
)

// String returns the string representation of a RecordType.
func (t RecordType) String() string {
	switch t {
	case ZeroType:
		return "ZeroType"
	case FullType:
		return "FullType"
	case FirstType:
		return "FirstType"
	case MiddleType:
		return "MiddleType"
	case LastType:
		return "LastType"
	default:
		return "UnknownType"
	}
}
