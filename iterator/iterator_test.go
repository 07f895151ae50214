package iterator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmptyIterator(t *testing.T) {
	it := NewEmpty(nil)
	assert.False(t, it.Valid())
	it.SeekToFirst()
	assert.False(t, it.Valid())
	it.Seek([]byte("k"))
	it.Next()
	assert.False(t, it.Valid())
	assert.NoError(t, it.Error())
	assert.NoError(t, it.Close())
}

func TestEmptyIteratorWithError(t *testing.T) {
	sentinel := errors.New("open failed")
	it := NewEmpty(sentinel)
	assert.False(t, it.Valid())
	assert.ErrorIs(t, it.Error(), sentinel)
	assert.ErrorIs(t, it.Close(), sentinel)
}

func TestCleanupRunsOnceOnClose(t *testing.T) {
	calls := 0
	it := WithCleanup(NewEmpty(nil), func() { calls++ })

	assert.Equal(t, 0, calls)
	assert.NoError(t, it.Close())
	assert.Equal(t, 1, calls)

	// A second Close must not run the cleanup again.
	assert.NoError(t, it.Close())
	assert.Equal(t, 1, calls)
}

func TestCleanupOrderAfterInnerClose(t *testing.T) {
	var order []string
	inner := &recordingIter{Iterator: NewEmpty(nil), onClose: func() {
		order = append(order, "inner")
	}}
	it := WithCleanup(inner,
		func() { order = append(order, "first") },
		func() { order = append(order, "second") },
	)
	_ = it.Close()
	assert.Equal(t, []string{"inner", "first", "second"}, order)
}

type recordingIter struct {
	Iterator
	onClose func()
}

func (r *recordingIter) Close() error {
	r.onClose()
	return r.Iterator.Close()
}
