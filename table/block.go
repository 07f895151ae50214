// block.go implements the prefix-compressed key-value block and its
// builder and iterator.
//
// Format (single entry):
//
//	shared_bytes:    varint32 (prefix shared with the previous key)
//	unshared_bytes:  varint32
//	value_length:    varint32
//	key_delta:       char[unshared_bytes]
//	value:           char[value_length]
//
// Format (overall block):
//
//	[entry 1] ... [entry N]
//	[restart point 1: fixed32] ... [restart point M: fixed32]
//	[num_restarts: fixed32]
//
// Once every restartInterval entries the full key is stored; these restart
// points support binary-search seeks.
package table

import (
	"github.com/awfeequdng/wickdb/dbformat"
	"github.com/awfeequdng/wickdb/internal/encoding"
	"github.com/awfeequdng/wickdb/status"
)

// errBadBlock is the corruption error for a malformed block.
var errBadBlock = status.New(status.Corruption, "corrupted block")

// block is a parsed, immutable key-value block.
type block struct {
	data        []byte
	restarts    int // offset of the restarts array within data
	numRestarts int
}

// newBlock validates the restart array layout of data.
func newBlock(data []byte) (*block, error) {
	if len(data) < 4 {
		return nil, errBadBlock
	}
	numRestarts := int(encoding.DecodeFixed32(data[len(data)-4:]))
	if numRestarts == 0 {
		return nil, errBadBlock
	}
	restartsSize := (numRestarts + 1) * 4
	if restartsSize > len(data) {
		return nil, errBadBlock
	}
	return &block{
		data:        data,
		restarts:    len(data) - restartsSize,
		numRestarts: numRestarts,
	}, nil
}

func (b *block) restartPoint(i int) int {
	return int(encoding.DecodeFixed32(b.data[b.restarts+i*4:]))
}

// newIterator returns an iterator over the block ordered by cmp.
func (b *block) newIterator(cmp dbformat.Comparator) *blockIter {
	return &blockIter{block: b, cmp: cmp, current: b.restarts}
}

// blockIter iterates over the entries of one block.
type blockIter struct {
	block *block
	cmp   dbformat.Comparator

	// current is the offset of the current entry in data;
	// current >= block.restarts means the iterator is exhausted.
	current      int
	nextOffset   int
	key          []byte // current key, assembled from deltas
	value        []byte // current value, slice into data
	restartIndex int
	err          error
}

// Valid implements iterator.Iterator.
func (it *blockIter) Valid() bool {
	return it.err == nil && it.current < it.block.restarts
}

// Key implements iterator.Iterator.
func (it *blockIter) Key() []byte {
	return it.key
}

// Value implements iterator.Iterator.
func (it *blockIter) Value() []byte {
	return it.value
}

// Error implements iterator.Iterator.
func (it *blockIter) Error() error {
	return it.err
}

// Close implements iterator.Iterator.
func (it *blockIter) Close() error {
	return it.err
}

// SeekToFirst implements iterator.Iterator.
func (it *blockIter) SeekToFirst() {
	if it.err != nil {
		return
	}
	it.seekToRestartPoint(0)
	it.parseNextEntry()
}

// Seek positions the iterator at the first entry with key >= target.
func (it *blockIter) Seek(target []byte) {
	if it.err != nil {
		return
	}

	// Binary search over restart points for the last restart whose key is
	// before the target.
	left, right := 0, it.block.numRestarts-1
	for left < right {
		mid := (left + right + 1) / 2
		offset := it.block.restartPoint(mid)
		shared, nonShared, _, keyOffset, ok := it.decodeEntry(offset)
		if !ok || shared != 0 {
			it.corrupt()
			return
		}
		restartKey := it.block.data[keyOffset : keyOffset+nonShared]
		if it.cmp.Compare(restartKey, target) < 0 {
			left = mid
		} else {
			right = mid - 1
		}
	}

	// Linear scan from the restart point to the first key >= target.
	it.seekToRestartPoint(left)
	for {
		if !it.parseNextEntry() {
			return
		}
		if it.cmp.Compare(it.key, target) >= 0 {
			return
		}
	}
}

// Next implements iterator.Iterator.
func (it *blockIter) Next() {
	if !it.Valid() {
		return
	}
	it.parseNextEntry()
}

// seekToRestartPoint positions parsing at restart point i without
// decoding an entry.
func (it *blockIter) seekToRestartPoint(i int) {
	it.restartIndex = i
	it.key = it.key[:0]
	it.nextOffset = it.block.restartPoint(i)
	it.current = it.nextOffset
}

// parseNextEntry decodes the entry at nextOffset into key/value.
// Returns false at the end of the block or on corruption.
func (it *blockIter) parseNextEntry() bool {
	it.current = it.nextOffset
	if it.current >= it.block.restarts {
		return false
	}

	shared, nonShared, valueLen, keyOffset, ok := it.decodeEntry(it.current)
	if !ok || shared > len(it.key) {
		it.corrupt()
		return false
	}
	it.key = append(it.key[:shared], it.block.data[keyOffset:keyOffset+nonShared]...)
	it.value = it.block.data[keyOffset+nonShared : keyOffset+nonShared+valueLen]
	it.nextOffset = keyOffset + nonShared + valueLen
	return true
}

// decodeEntry decodes the entry header at offset. Returns the shared and
// unshared key lengths, the value length, and the offset of the key delta.
func (it *blockIter) decodeEntry(offset int) (shared, nonShared, valueLen, keyOffset int, ok bool) {
	data := it.block.data[offset:it.block.restarts]

	s, n1, err := encoding.DecodeVarint32(data)
	if err != nil {
		return 0, 0, 0, 0, false
	}
	u, n2, err := encoding.DecodeVarint32(data[n1:])
	if err != nil {
		return 0, 0, 0, 0, false
	}
	v, n3, err := encoding.DecodeVarint32(data[n1+n2:])
	if err != nil {
		return 0, 0, 0, 0, false
	}
	headerLen := n1 + n2 + n3
	if headerLen+int(u)+int(v) > len(data) {
		return 0, 0, 0, 0, false
	}
	return int(s), int(u), int(v), offset + headerLen, true
}

func (it *blockIter) corrupt() {
	it.current = it.block.restarts
	it.nextOffset = it.block.restarts
	it.err = errBadBlock
}

// blockBuilder builds a prefix-compressed block.
type blockBuilder struct {
	buffer          []byte
	restarts        []uint32
	counter         int
	restartInterval int
	lastKey         []byte
	finished        bool
}

// newBlockBuilder creates a builder placing a restart point every
// restartInterval entries.
func newBlockBuilder(restartInterval int) *blockBuilder {
	if restartInterval < 1 {
		restartInterval = 1
	}
	return &blockBuilder{
		buffer:          make([]byte, 0, 4096),
		restartInterval: restartInterval,
		restarts:        []uint32{0},
	}
}

// reset prepares the builder for a new block.
func (b *blockBuilder) reset() {
	b.buffer = b.buffer[:0]
	b.restarts = b.restarts[:1]
	b.restarts[0] = 0
	b.counter = 0
	b.lastKey = b.lastKey[:0]
	b.finished = false
}

// add appends a key-value pair.
// REQUIRES: key is larger than any previously added key.
// REQUIRES: finish has not been called since the last reset.
func (b *blockBuilder) add(key, value []byte) {
	shared := 0
	if b.counter < b.restartInterval {
		shared = sharedPrefixLength(b.lastKey, key)
	} else {
		b.restarts = append(b.restarts, uint32(len(b.buffer)))
		b.counter = 0
	}
	unshared := len(key) - shared

	b.buffer = encoding.AppendVarint32(b.buffer, uint32(shared))
	b.buffer = encoding.AppendVarint32(b.buffer, uint32(unshared))
	b.buffer = encoding.AppendVarint32(b.buffer, uint32(len(value)))
	b.buffer = append(b.buffer, key[shared:]...)
	b.buffer = append(b.buffer, value...)

	b.lastKey = append(b.lastKey[:0], key...)
	b.counter++
}

// sizeEstimate returns the finished size of the block so far.
func (b *blockBuilder) sizeEstimate() int {
	return len(b.buffer) + len(b.restarts)*4 + 4
}

// empty reports whether no entries have been added.
func (b *blockBuilder) empty() bool {
	return len(b.buffer) == 0
}

// finish appends the restart array and returns the block contents.
// The returned slice is valid until reset.
func (b *blockBuilder) finish() []byte {
	for _, restart := range b.restarts {
		b.buffer = encoding.AppendFixed32(b.buffer, restart)
	}
	b.buffer = encoding.AppendFixed32(b.buffer, uint32(len(b.restarts)))
	b.finished = true
	return b.buffer
}

func sharedPrefixLength(a, b []byte) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
