package ix

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lannywong2000/PeterDB/dbms/index"
	"github.com/lannywong2000/PeterDB/dbms/index/ixpage"
)

func TestTree(t *testing.T) {
	eachBackend(t, func(t *testing.T, b Backend) {
		m := newTestManager(t, b, 128)
		name := filepath.Join(t.TempDir(), "name.idx")

		tr, err := Open(m, name, ixpage.TypeVarChar)
		require.NoError(t, err)
		var idx index.Index = tr

		names := []string{"mallory", "alice", "bob", "alice", "eve", "alice"}
		for i, s := range names {
			require.NoError(t, idx.Insert(ixpage.TextKey(s), rid(3, uint16(i))))
		}
		rids, err := idx.Get(ixpage.TextKey("alice"))
		require.NoError(t, err)
		assert.Equal(t, []ixpage.RID{rid(3, 1), rid(3, 3), rid(3, 5)}, rids)

		low := ixpage.TextKey("b")
		it, err := idx.Range(&low, nil, true, false)
		require.NoError(t, err)
		keys, _, err := index.Collect(it)
		require.NoError(t, err)
		require.Len(t, keys, 3)
		assert.Equal(t, "bob", keys[0].String())
		assert.Equal(t, "mallory", keys[2].String())

		require.NoError(t, idx.Delete(ixpage.TextKey("alice"), rid(3, 3)))
		rids, err = idx.Get(ixpage.TextKey("alice"))
		require.NoError(t, err)
		assert.Len(t, rids, 2)
		require.NoError(t, idx.Close())

		_, err = Open(m, name, ixpage.TypeInt)
		assert.True(t, errors.IsNotValid(err))

		tr, err = Open(m, name, ixpage.TypeVarChar)
		require.NoError(t, err)
		rids, err = tr.Get(ixpage.TextKey("eve"))
		require.NoError(t, err)
		assert.Equal(t, []ixpage.RID{rid(3, 4)}, rids)
		require.NoError(t, tr.Close())
	})
}

func TestLoadOptions(t *testing.T) {
	dir := t.TempDir()

	opts, err := LoadOptions(filepath.Join(dir, "missing.ini"))
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), opts)

	path := filepath.Join(dir, "ix.ini")
	require.NoError(t, os.WriteFile(path, []byte("[index]\npage_size = 256\nbackend = Pebble\n\n[logs]\nlog_level = debug\n"), 0644))
	opts, err = LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, 256, opts.PageSize)
	assert.Equal(t, 64, opts.CachePages)
	assert.Equal(t, BackendPebble, opts.Backend)
	assert.Equal(t, "debug", opts.LogLevel)

	require.NoError(t, os.WriteFile(path, []byte("[index]\nbackend = rocks\n"), 0644))
	_, err = LoadOptions(path)
	assert.True(t, errors.IsNotValid(err))

	require.NoError(t, os.WriteFile(path, []byte("[index]\npage_size = 16\n"), 0644))
	_, err = LoadOptions(path)
	assert.True(t, errors.IsNotValid(err))

	_, err = NewManager(Options{PageSize: 4096, Backend: "tape"})
	assert.True(t, errors.IsNotValid(err))
}
