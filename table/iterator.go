// iterator.go implements the two-level table iterator: an index block
// iterator positioning a data block iterator.
package table

import (
	"github.com/awfeequdng/wickdb/iterator"
)

// tableIter walks every entry of a table in key order.
type tableIter struct {
	t  *Table
	ro ReadOptions

	indexIter *blockIter
	dataIter  *blockIter // nil until positioned
	err       error
}

// NewIterator returns an iterator over the table's entries.
//
// Entry format: key is an internal key, value is the user value.
func (t *Table) NewIterator(ro ReadOptions) iterator.Iterator {
	return &tableIter{
		t:         t,
		ro:        ro,
		indexIter: t.indexBlock.newIterator(t.opts.Comparator),
	}
}

// Valid implements iterator.Iterator.
func (it *tableIter) Valid() bool {
	return it.err == nil && it.dataIter != nil && it.dataIter.Valid()
}

// Key implements iterator.Iterator.
func (it *tableIter) Key() []byte {
	return it.dataIter.Key()
}

// Value implements iterator.Iterator.
func (it *tableIter) Value() []byte {
	return it.dataIter.Value()
}

// Error implements iterator.Iterator.
func (it *tableIter) Error() error {
	if it.err != nil {
		return it.err
	}
	if it.dataIter != nil && it.dataIter.Error() != nil {
		return it.dataIter.Error()
	}
	return it.indexIter.Error()
}

// Close implements iterator.Iterator.
func (it *tableIter) Close() error {
	return it.Error()
}

// SeekToFirst implements iterator.Iterator.
func (it *tableIter) SeekToFirst() {
	if it.err != nil {
		return
	}
	it.indexIter.SeekToFirst()
	it.initDataBlock()
	if it.dataIter != nil {
		it.dataIter.SeekToFirst()
	}
	it.skipEmptyBlocksForward()
}

// Seek implements iterator.Iterator.
func (it *tableIter) Seek(target []byte) {
	if it.err != nil {
		return
	}
	it.indexIter.Seek(target)
	it.initDataBlock()
	if it.dataIter != nil {
		it.dataIter.Seek(target)
	}
	it.skipEmptyBlocksForward()
}

// Next implements iterator.Iterator.
func (it *tableIter) Next() {
	if !it.Valid() {
		return
	}
	it.dataIter.Next()
	it.skipEmptyBlocksForward()
}

// initDataBlock loads the data block the index iterator points at.
func (it *tableIter) initDataBlock() {
	it.dataIter = nil
	if !it.indexIter.Valid() {
		return
	}
	handle, _, err := DecodeHandle(it.indexIter.Value())
	if err != nil {
		it.err = err
		return
	}
	dataBlock, err := it.t.readDataBlock(handle, it.ro.VerifyChecksums || it.t.opts.VerifyChecksums)
	if err != nil {
		it.err = err
		return
	}
	it.dataIter = dataBlock.newIterator(it.t.opts.Comparator)
}

// skipEmptyBlocksForward advances over exhausted data blocks.
func (it *tableIter) skipEmptyBlocksForward() {
	for it.err == nil && (it.dataIter == nil || !it.dataIter.Valid()) {
		if it.dataIter != nil && it.dataIter.Error() != nil {
			it.err = it.dataIter.Error()
			return
		}
		if !it.indexIter.Valid() {
			it.dataIter = nil
			return
		}
		it.indexIter.Next()
		it.initDataBlock()
		if it.dataIter != nil {
			it.dataIter.SeekToFirst()
		}
	}
}
