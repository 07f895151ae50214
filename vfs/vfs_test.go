package vfs

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awfeequdng/wickdb/status"
)

// fsFactories lets the same suite run against every FS implementation.
var fsFactories = map[string]func(t *testing.T) (FS, string){
	"os": func(t *testing.T) (FS, string) {
		return Default(), t.TempDir()
	},
	"mem": func(t *testing.T) (FS, string) {
		return NewMemFS(), "mem"
	},
}

func TestCreateAppendRead(t *testing.T) {
	for name, factory := range fsFactories {
		t.Run(name, func(t *testing.T) {
			fs, dir := factory(t)
			path := filepath.Join(dir, "data.log")

			wf, err := fs.Create(path)
			require.NoError(t, err)
			require.NoError(t, wf.Append([]byte("hello ")))
			require.NoError(t, wf.Append([]byte("world")))
			require.NoError(t, wf.Flush())

			size, err := wf.Size()
			require.NoError(t, err)
			assert.Equal(t, int64(11), size)
			require.NoError(t, wf.Close())

			sf, err := fs.Open(path)
			require.NoError(t, err)
			got, err := io.ReadAll(sf)
			require.NoError(t, err)
			assert.Equal(t, "hello world", string(got))
			require.NoError(t, sf.Close())
		})
	}
}

func TestOpenAppendResumesAtEnd(t *testing.T) {
	for name, factory := range fsFactories {
		t.Run(name, func(t *testing.T) {
			fs, dir := factory(t)
			path := filepath.Join(dir, "data.log")

			wf, err := fs.Create(path)
			require.NoError(t, err)
			require.NoError(t, wf.Append([]byte("abc")))
			require.NoError(t, wf.Close())

			wf, err = fs.OpenAppend(path)
			require.NoError(t, err)
			size, err := wf.Size()
			require.NoError(t, err)
			assert.Equal(t, int64(3), size)
			require.NoError(t, wf.Append([]byte("def")))
			require.NoError(t, wf.Sync())
			require.NoError(t, wf.Close())

			sf, err := fs.Open(path)
			require.NoError(t, err)
			got, err := io.ReadAll(sf)
			require.NoError(t, err)
			assert.Equal(t, "abcdef", string(got))
			require.NoError(t, sf.Close())
		})
	}
}

func TestOpenAppendCreates(t *testing.T) {
	for name, factory := range fsFactories {
		t.Run(name, func(t *testing.T) {
			fs, dir := factory(t)
			path := filepath.Join(dir, "fresh.log")

			wf, err := fs.OpenAppend(path)
			require.NoError(t, err)
			size, err := wf.Size()
			require.NoError(t, err)
			assert.Zero(t, size)
			require.NoError(t, wf.Close())
			assert.True(t, fs.Exists(path))
		})
	}
}

func TestRandomAccess(t *testing.T) {
	for name, factory := range fsFactories {
		t.Run(name, func(t *testing.T) {
			fs, dir := factory(t)
			path := filepath.Join(dir, "table.ldb")

			wf, err := fs.Create(path)
			require.NoError(t, err)
			require.NoError(t, wf.Append([]byte("0123456789")))
			require.NoError(t, wf.Close())

			rf, err := fs.OpenRandomAccess(path)
			require.NoError(t, err)
			assert.Equal(t, int64(10), rf.Size())

			buf := make([]byte, 4)
			n, err := rf.ReadAt(buf, 3)
			require.NoError(t, err)
			assert.Equal(t, 4, n)
			assert.Equal(t, "3456", string(buf))

			// Reading past the end returns EOF.
			_, err = rf.ReadAt(buf, 100)
			assert.ErrorIs(t, err, io.EOF)

			require.NoError(t, rf.Close())
		})
	}
}

func TestSequentialSkip(t *testing.T) {
	for name, factory := range fsFactories {
		t.Run(name, func(t *testing.T) {
			fs, dir := factory(t)
			path := filepath.Join(dir, "data")

			wf, err := fs.Create(path)
			require.NoError(t, err)
			require.NoError(t, wf.Append([]byte("0123456789")))
			require.NoError(t, wf.Close())

			sf, err := fs.Open(path)
			require.NoError(t, err)
			require.NoError(t, sf.Skip(6))
			got, err := io.ReadAll(sf)
			require.NoError(t, err)
			assert.Equal(t, "6789", string(got))
			require.NoError(t, sf.Close())
		})
	}
}

func TestMissingFileIsNotFound(t *testing.T) {
	for name, factory := range fsFactories {
		t.Run(name, func(t *testing.T) {
			fs, dir := factory(t)
			path := filepath.Join(dir, "absent")

			_, err := fs.Open(path)
			assert.True(t, status.IsNotFound(err), "Open: %v", err)

			_, err = fs.OpenRandomAccess(path)
			assert.True(t, status.IsNotFound(err), "OpenRandomAccess: %v", err)

			err = fs.Remove(path)
			assert.True(t, status.IsNotFound(err), "Remove: %v", err)

			assert.False(t, fs.Exists(path))
		})
	}
}

func TestRenameRemove(t *testing.T) {
	for name, factory := range fsFactories {
		t.Run(name, func(t *testing.T) {
			fs, dir := factory(t)
			from := filepath.Join(dir, "from")
			to := filepath.Join(dir, "to")

			wf, err := fs.Create(from)
			require.NoError(t, err)
			require.NoError(t, wf.Append([]byte("x")))
			require.NoError(t, wf.Close())

			require.NoError(t, fs.Rename(from, to))
			assert.False(t, fs.Exists(from))
			assert.True(t, fs.Exists(to))

			require.NoError(t, fs.Remove(to))
			assert.False(t, fs.Exists(to))
		})
	}
}

func TestMemFSContentHelpers(t *testing.T) {
	fs := NewMemFS()
	fs.SetContent("f", []byte{1, 2, 3})

	got, ok := fs.Content("f")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, got)

	// Content returns a copy.
	got[0] = 9
	again, _ := fs.Content("f")
	assert.Equal(t, []byte{1, 2, 3}, again)

	_, ok = fs.Content("missing")
	assert.False(t, ok)
}
