// cache.go implements the table cache: bounded-memory access to opened
// tables, keyed by file number.
package table

import (
	"github.com/awfeequdng/wickdb/cache"
	"github.com/awfeequdng/wickdb/dbformat"
	"github.com/awfeequdng/wickdb/internal/encoding"
	"github.com/awfeequdng/wickdb/iterator"
	"github.com/awfeequdng/wickdb/logging"
	"github.com/awfeequdng/wickdb/vfs"
)

// CacheOptions configures the table cache.
type CacheOptions struct {
	// MaxOpenTables bounds the number of concurrently open tables, and
	// with them file descriptors and index memory. Pinned tables can
	// transiently exceed it to keep in-flight iterators alive.
	MaxOpenTables int

	// Table holds the options tables are opened with.
	Table Options

	// Logger receives open failures.
	Logger logging.Logger
}

// DefaultCacheOptions returns the default options. NewCache substitutes
// their MaxOpenTables and Logger for a zero field; a zero Table field is
// kept, and Open then fills in only its Comparator and ChecksumType.
func DefaultCacheOptions() CacheOptions {
	return CacheOptions{
		MaxOpenTables: 1000,
		Table:         DefaultOptions(),
		Logger:        logging.Discard,
	}
}

// Cache mediates access to immutable sorted tables. It keeps at most one
// opened Table per file number resident and evicts in LRU order under
// capacity pressure, never dropping a table that an iterator still pins.
//
// Safe for concurrent use.
type Cache struct {
	fs     vfs.FS
	dbname string
	opts   CacheOptions

	// Entry-count eviction must be globally exact, so a single LRU is
	// used rather than the sharded variant.
	cache *cache.LRUCache[*Table]
}

// NewCache creates a table cache for the database at dbname.
func NewCache(dbname string, fs vfs.FS, opts CacheOptions) *Cache {
	def := DefaultCacheOptions()
	if opts.MaxOpenTables <= 0 {
		opts.MaxOpenTables = def.MaxOpenTables
	}
	if opts.Logger == nil {
		opts.Logger = def.Logger
	}
	return &Cache{
		fs:     fs,
		dbname: dbname,
		opts:   opts,
		cache:  cache.NewLRUCache[*Table](uint64(opts.MaxOpenTables)),
	}
}

// cacheKey is the varint-64 encoding of the file number.
func cacheKey(fileNumber uint64) string {
	return string(encoding.AppendVarint64(nil, fileNumber))
}

// FindTable returns a pinned handle to the opened table for fileNumber,
// opening and inserting it on miss. The file must be exactly fileSize
// bytes. The caller must release the handle.
//
// Failures surface as-is and insert nothing; the next lookup retries.
func (c *Cache) FindTable(fileNumber, fileSize uint64) (*cache.Handle[*Table], error) {
	key := cacheKey(fileNumber)
	if h := c.cache.Lookup(key); h != nil {
		return h, nil
	}

	name := dbformat.FileName(c.dbname, dbformat.FileTypeTable, fileNumber)
	file, err := c.fs.OpenRandomAccess(name)
	if err != nil {
		c.opts.Logger.Errorf("[table] open %s: %v", name, err)
		return nil, err
	}
	t, err := Open(file, fileSize, c.opts.Table)
	if err != nil {
		c.opts.Logger.Errorf("[table] open table %s: %v", name, err)
		_ = file.Close()
		return nil, err
	}

	return c.cache.Insert(key, t, 1, func(_ string, t *Table) {
		_ = t.Close()
	}), nil
}

// Get seeks to ikey in the given table and returns the parsed internal key
// and value of the matching entry, or (nil, nil, nil) when the user key is
// absent. The table handle is released before returning.
func (c *Cache) Get(ro ReadOptions, ikey []byte, fileNumber, fileSize uint64) (*dbformat.ParsedInternalKey, []byte, error) {
	h, err := c.FindTable(fileNumber, fileSize)
	if err != nil {
		return nil, nil, err
	}
	defer c.cache.Release(h)
	return h.Value().InternalGet(ro, ikey)
}

// NewIterator returns an iterator over the table's entries. The table
// stays pinned for the iterator's lifetime; the pin is released exactly
// once when the iterator is closed.
//
// On failure an empty iterator surfacing the error is returned.
//
// Entry format: key is an internal key, value is the user value.
func (c *Cache) NewIterator(ro ReadOptions, fileNumber, fileSize uint64) iterator.Iterator {
	h, err := c.FindTable(fileNumber, fileSize)
	if err != nil {
		return iterator.NewEmpty(err)
	}
	return iterator.WithCleanup(h.Value().NewIterator(ro), func() {
		c.cache.Release(h)
	})
}

// Evict drops any entry for fileNumber. A table still pinned by an
// iterator survives until its last handle is released; it becomes
// unreachable via lookups immediately.
func (c *Cache) Evict(fileNumber uint64) {
	c.cache.Erase(cacheKey(fileNumber))
}

// Len returns the number of resident tables.
func (c *Cache) Len() int {
	return c.cache.Len()
}

// Close drops every unpinned resident table.
func (c *Cache) Close() {
	c.cache.Close()
}
