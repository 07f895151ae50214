// Package dbformat provides the internal key format shared by the
// memtable, the log, and the sorted tables.
//
// An internal key is the user key followed by an 8-byte trailer packing a
// 56-bit sequence number and an 8-bit value type:
//
//	| user key ... | (sequence << 8) | value_type  (fixed64, little-endian) |
//
// Ordering is user key ascending, then sequence descending, so the newest
// entry for a user key sorts first.
package dbformat

import (
	"bytes"
	"fmt"

	"github.com/awfeequdng/wickdb/internal/encoding"
	"github.com/awfeequdng/wickdb/status"
)

// SequenceNumber is a 56-bit sequence number.
type SequenceNumber uint64

// MaxSequenceNumber is the largest valid sequence number.
const MaxSequenceNumber SequenceNumber = (1 << 56) - 1

// InternalKeyTrailerLen is the size of the internal key trailer.
const InternalKeyTrailerLen = 8

// ValueType represents the type of a key-value record.
// These values are embedded in the on-disk format and MUST NOT change.
type ValueType uint8

const (
	// TypeDeletion marks a tombstone.
	TypeDeletion ValueType = 0
	// TypeValue marks a regular value.
	TypeValue ValueType = 1
)

// ValueTypeForSeek is the type used when constructing seek keys. Paired
// with the target sequence number it sorts before every entry the seek
// must observe.
const ValueTypeForSeek = TypeValue

// String returns a human-readable name for the value type.
func (t ValueType) String() string {
	switch t {
	case TypeDeletion:
		return "Deletion"
	case TypeValue:
		return "Value"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// ParsedInternalKey is a decoded internal key.
type ParsedInternalKey struct {
	UserKey  []byte
	Sequence SequenceNumber
	Type     ValueType
}

// PackSequenceAndType packs a sequence number and value type into the
// trailer representation.
func PackSequenceAndType(seq SequenceNumber, t ValueType) uint64 {
	return uint64(seq)<<8 | uint64(t)
}

// AppendInternalKey appends the encoding of key to dst.
func AppendInternalKey(dst []byte, key ParsedInternalKey) []byte {
	dst = append(dst, key.UserKey...)
	return encoding.AppendFixed64(dst, PackSequenceAndType(key.Sequence, key.Type))
}

// MakeInternalKey builds the internal key for (userKey, seq, t).
func MakeInternalKey(userKey []byte, seq SequenceNumber, t ValueType) []byte {
	return AppendInternalKey(make([]byte, 0, len(userKey)+InternalKeyTrailerLen),
		ParsedInternalKey{UserKey: userKey, Sequence: seq, Type: t})
}

// ParseInternalKey decodes an internal key. The returned UserKey aliases
// ikey.
func ParseInternalKey(ikey []byte) (ParsedInternalKey, error) {
	if len(ikey) < InternalKeyTrailerLen {
		return ParsedInternalKey{}, status.New(status.Corruption, "internal key too short")
	}
	trailer := encoding.DecodeFixed64(ikey[len(ikey)-InternalKeyTrailerLen:])
	t := ValueType(trailer & 0xff)
	if t > TypeValue {
		return ParsedInternalKey{}, status.New(status.Corruption, "invalid internal key type")
	}
	return ParsedInternalKey{
		UserKey:  ikey[:len(ikey)-InternalKeyTrailerLen],
		Sequence: SequenceNumber(trailer >> 8),
		Type:     t,
	}, nil
}

// UserKey returns the user key portion of an internal key.
// REQUIRES: len(ikey) >= InternalKeyTrailerLen.
func UserKey(ikey []byte) []byte {
	return ikey[:len(ikey)-InternalKeyTrailerLen]
}

// Comparator defines a total order over keys.
type Comparator interface {
	// Compare returns a negative, zero, or positive value as a is less
	// than, equal to, or greater than b.
	Compare(a, b []byte) int

	// Name identifies the comparator. Tables written with one comparator
	// must be read with the same one.
	Name() string
}

// BytewiseComparator orders byte slices lexicographically.
type BytewiseComparator struct{}

// Compare implements Comparator.
func (BytewiseComparator) Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}

// Name implements Comparator.
func (BytewiseComparator) Name() string {
	return "leveldb.BytewiseComparator"
}

// InternalKeyComparator orders internal keys by user key ascending, then
// sequence number descending.
type InternalKeyComparator struct {
	// User orders the user key portion.
	User Comparator
}

// NewInternalKeyComparator wraps a user comparator.
func NewInternalKeyComparator(user Comparator) InternalKeyComparator {
	return InternalKeyComparator{User: user}
}

// Compare implements Comparator over internal keys.
func (c InternalKeyComparator) Compare(a, b []byte) int {
	if r := c.User.Compare(UserKey(a), UserKey(b)); r != 0 {
		return r
	}
	aTrailer := encoding.DecodeFixed64(a[len(a)-InternalKeyTrailerLen:])
	bTrailer := encoding.DecodeFixed64(b[len(b)-InternalKeyTrailerLen:])
	// Larger trailer (newer sequence) sorts first.
	switch {
	case aTrailer > bTrailer:
		return -1
	case aTrailer < bTrailer:
		return 1
	default:
		return 0
	}
}

// Name implements Comparator.
func (c InternalKeyComparator) Name() string {
	return "leveldb.InternalKeyComparator"
}
