package table

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awfeequdng/wickdb/dbformat"
	"github.com/awfeequdng/wickdb/status"
	"github.com/awfeequdng/wickdb/vfs"
)

const testDBName = "db"

// newTestCache builds table files 1..numFiles in a fresh MemFS and returns
// a cache over them plus each file's size.
func newTestCache(t *testing.T, numFiles, maxOpen int) (*Cache, *vfs.MemFS, map[uint64]uint64) {
	t.Helper()
	fs := vfs.NewMemFS()
	sizes := make(map[uint64]uint64)
	for num := uint64(1); num <= uint64(numFiles); num++ {
		path := dbformat.FileName(testDBName, dbformat.FileTypeTable, num)
		bopts := DefaultBuilderOptions()
		bopts.BlockSize = 128
		sizes[num] = buildTestTable(t, fs, path, 100, bopts)
	}
	c := NewCache(testDBName, fs, CacheOptions{MaxOpenTables: maxOpen})
	return c, fs, sizes
}

func findAndRelease(t *testing.T, c *Cache, num, size uint64) {
	t.Helper()
	h, err := c.FindTable(num, size)
	require.NoError(t, err)
	c.cache.Release(h)
}

func TestFindTableOpensAndCaches(t *testing.T) {
	c, fs, sizes := newTestCache(t, 1, 10)
	defer c.Close()

	findAndRelease(t, c, 1, sizes[1])
	assert.Equal(t, 1, c.Len())

	// A second lookup is served from the cache: even with the file gone
	// from storage, the opened table is still reachable.
	require.NoError(t, fs.Remove(dbformat.FileName(testDBName, dbformat.FileTypeTable, 1)))
	findAndRelease(t, c, 1, sizes[1])
	assert.Equal(t, 1, c.Len())
}

func TestFindTableMissingFile(t *testing.T) {
	c, _, _ := newTestCache(t, 0, 10)
	defer c.Close()

	_, err := c.FindTable(42, 1000)
	assert.True(t, status.IsNotFound(err), "got %v", err)
	// Failures insert nothing.
	assert.Equal(t, 0, c.Len())
}

func TestFindTableBadSizeNotInserted(t *testing.T) {
	c, _, sizes := newTestCache(t, 1, 10)
	defer c.Close()

	_, err := c.FindTable(1, sizes[1]+100)
	assert.True(t, status.IsInvalidArgument(err))
	assert.Equal(t, 0, c.Len())

	// The next lookup with the right size retries and succeeds.
	findAndRelease(t, c, 1, sizes[1])
	assert.Equal(t, 1, c.Len())
}

func TestGet(t *testing.T) {
	c, _, sizes := newTestCache(t, 1, 10)
	defer c.Close()

	parsed, value, err := c.Get(ReadOptions{}, seekKey(userKey(7)), 1, sizes[1])
	require.NoError(t, err)
	require.NotNil(t, parsed)
	assert.Equal(t, string(userKey(7)), string(parsed.UserKey))
	assert.Equal(t, string(userValue(7)), string(value))

	// Absent key.
	parsed, value, err = c.Get(ReadOptions{}, seekKey([]byte("nope")), 1, sizes[1])
	require.NoError(t, err)
	assert.Nil(t, parsed)
	assert.Nil(t, value)

	// Missing file propagates the open error.
	_, _, err = c.Get(ReadOptions{}, seekKey(userKey(0)), 9, 1000)
	assert.True(t, status.IsNotFound(err))
}

func TestCapacityEvictsLRU(t *testing.T) {
	c, fs, sizes := newTestCache(t, 3, 2)
	defer c.Close()

	findAndRelease(t, c, 1, sizes[1])
	findAndRelease(t, c, 2, sizes[2])
	findAndRelease(t, c, 3, sizes[3])

	// Capacity 2: inserting file 3 evicted the least-recently-used file 1.
	assert.Equal(t, 2, c.Len())

	// Files 2 and 3 are served from the cache even with storage gone;
	// file 1 is a miss and must reopen, which now fails.
	for num := uint64(1); num <= 3; num++ {
		require.NoError(t, fs.Remove(dbformat.FileName(testDBName, dbformat.FileTypeTable, num)))
	}
	findAndRelease(t, c, 2, sizes[2])
	findAndRelease(t, c, 3, sizes[3])
	_, err := c.FindTable(1, sizes[1])
	assert.True(t, status.IsNotFound(err))
}

func TestNewIteratorScans(t *testing.T) {
	c, _, sizes := newTestCache(t, 1, 10)
	defer c.Close()

	it := c.NewIterator(ReadOptions{}, 1, sizes[1])
	it.SeekToFirst()
	for i := 0; i < 100; i++ {
		require.True(t, it.Valid(), "entry %d", i)
		assert.Equal(t, string(userKey(i)), string(dbformat.UserKey(it.Key())))
		it.Next()
	}
	assert.False(t, it.Valid())
	require.NoError(t, it.Error())
	require.NoError(t, it.Close())
}

func TestNewIteratorMissingFile(t *testing.T) {
	c, _, _ := newTestCache(t, 0, 10)
	defer c.Close()

	it := c.NewIterator(ReadOptions{}, 42, 1000)
	assert.False(t, it.Valid())
	it.SeekToFirst()
	assert.False(t, it.Valid())
	assert.True(t, status.IsNotFound(it.Error()))
	_ = it.Close()
}

func TestEvictWithLiveIterator(t *testing.T) {
	c, _, sizes := newTestCache(t, 1, 10)
	defer c.Close()

	it := c.NewIterator(ReadOptions{}, 1, sizes[1])
	it.SeekToFirst()
	require.True(t, it.Valid())

	// Evicting while the iterator is live makes the entry unreachable but
	// the iterator keeps serving entries.
	c.Evict(1)
	assert.Equal(t, 0, c.Len())
	count := 0
	for ; it.Valid(); it.Next() {
		count++
	}
	assert.Equal(t, 100, count)
	require.NoError(t, it.Error())
	require.NoError(t, it.Close())

	// A later lookup reopens the file.
	findAndRelease(t, c, 1, sizes[1])
	assert.Equal(t, 1, c.Len())
}

func TestIteratorPinBlocksEviction(t *testing.T) {
	c, fs, sizes := newTestCache(t, 3, 2)
	defer c.Close()

	// Pin file 1 with a live iterator, then fill the cache past capacity.
	it := c.NewIterator(ReadOptions{}, 1, sizes[1])
	it.SeekToFirst()
	require.True(t, it.Valid())

	findAndRelease(t, c, 2, sizes[2])
	findAndRelease(t, c, 3, sizes[3])

	// File 1 was the LRU candidate but is pinned; it must survive.
	require.NoError(t, fs.Remove(dbformat.FileName(testDBName, dbformat.FileTypeTable, 1)))
	for ; it.Valid(); it.Next() {
	}
	require.NoError(t, it.Error())
	require.NoError(t, it.Close())
}

func TestIteratorCloseReleasesOnce(t *testing.T) {
	c, _, sizes := newTestCache(t, 1, 10)
	defer c.Close()

	it := c.NewIterator(ReadOptions{}, 1, sizes[1])
	it.SeekToFirst()
	require.NoError(t, it.Close())
	// Closing again must not double-release the pin.
	require.NoError(t, it.Close())

	// The cache entry is still usable afterwards.
	parsed, _, err := c.Get(ReadOptions{}, seekKey(userKey(3)), 1, sizes[1])
	require.NoError(t, err)
	require.NotNil(t, parsed)
}

func TestEvictAbsentFileNumber(t *testing.T) {
	c, _, _ := newTestCache(t, 0, 10)
	defer c.Close()
	c.Evict(12345) // no-op
	assert.Equal(t, 0, c.Len())
}

func TestConcurrentGets(t *testing.T) {
	c, _, sizes := newTestCache(t, 4, 2)
	defer c.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 8*50)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				num := uint64(1 + (g+i)%4)
				key := (g * 13) % 100
				parsed, value, err := c.Get(ReadOptions{}, seekKey(userKey(key)), num, sizes[num])
				if err != nil {
					errs <- err
					continue
				}
				if parsed == nil || string(value) != string(userValue(key)) {
					errs <- fmt.Errorf("wrong result for key %d in file %d", key, num)
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	assert.LessOrEqual(t, c.Len(), 4)
}
