// types.go defines the checksum type tag stored in table block trailers
// and the trailer helpers that fold in the compression type byte.
package checksum

import (
	"github.com/zeebo/xxh3"
)

// Type identifies the checksum algorithm of a table block trailer.
type Type uint8

const (
	// TypeCRC32C is masked CRC-32C (Castagnoli).
	TypeCRC32C Type = 1
	// TypeXXH3 is the low 32 bits of XXH3-64.
	TypeXXH3 Type = 2
)

// String returns a human-readable name for the checksum type.
func (t Type) String() string {
	switch t {
	case TypeCRC32C:
		return "CRC32C"
	case TypeXXH3:
		return "XXH3"
	default:
		return "Unknown"
	}
}

// Valid reports whether t names a supported algorithm.
func (t Type) Valid() bool {
	return t == TypeCRC32C || t == TypeXXH3
}

// BlockChecksum computes the trailer checksum for a block: the checksum of
// the block contents followed by the single compression type byte.
func BlockChecksum(t Type, data []byte, lastByte byte) uint32 {
	switch t {
	case TypeXXH3:
		buf := make([]byte, 0, len(data)+1)
		buf = append(buf, data...)
		buf = append(buf, lastByte)
		return uint32(xxh3.Hash(buf))
	default:
		return MaskedExtend(Value(data), []byte{lastByte})
	}
}

// HashString hashes a cache key to a stable 64-bit value. Used for shard
// selection so the same key always lands on the same shard.
func HashString(s string) uint64 {
	return xxh3.HashString(s)
}
