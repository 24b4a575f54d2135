package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phicore/phistore/pkg/codec"
	"github.com/phicore/phistore/pkg/labeled"
)

// eachBackend runs fn against a fresh store of every backend.
func eachBackend(t *testing.T, fn func(t *testing.T, name string, st Store)) {
	t.Helper()
	for _, name := range []string{Pebble, Badger} {
		t.Run(name, func(t *testing.T) {
			st, err := Open(name, t.TempDir(), false)
			require.NoError(t, err)
			defer st.Close()
			fn(t, name, st)
		})
	}
}

func testBlock(t *testing.T, shape []int) *labeled.Block {
	t.Helper()
	values := make([]float64, labeled.NumElements(shape))
	for i := range values {
		values[i] = float64(i)
	}
	b, err := labeled.FromFloat64s(shape, values)
	require.NoError(t, err)
	return b
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open("sqlite", t.TempDir(), false)
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestGroups(t *testing.T) {
	eachBackend(t, func(t *testing.T, name string, st Store) {
		require.NoError(t, st.CreateGroup("/data"))
		require.NoError(t, st.CreateGroup("/data/raw/session1"))

		info, err := st.Stat("/data/raw")
		require.NoError(t, err)
		assert.Equal(t, codec.KindGroup, info.Kind)

		t.Run("duplicate fails", func(t *testing.T) {
			assert.ErrorIs(t, st.CreateGroup("/data"), ErrExists)
		})

		t.Run("missing node", func(t *testing.T) {
			_, err := st.Stat("/nope")
			assert.ErrorIs(t, err, ErrNotFound)
		})

		t.Run("children", func(t *testing.T) {
			names, err := st.Children("/data")
			require.NoError(t, err)
			assert.Equal(t, []string{"raw"}, names)

			names, err = st.Children("/")
			require.NoError(t, err)
			assert.Equal(t, []string{"data"}, names)
		})

		t.Run("children of missing group", func(t *testing.T) {
			_, err := st.Children("/nope")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	})
}

func TestDatasetRoundTrip(t *testing.T) {
	eachBackend(t, func(t *testing.T, name string, st Store) {
		block := testBlock(t, []int{4, 6})
		require.NoError(t, st.CreateDataset("/data/X", block, DatasetOptions{Fletcher32: true}))

		t.Run("stat", func(t *testing.T) {
			info, err := st.Stat("/data/X")
			require.NoError(t, err)
			assert.Equal(t, codec.KindDataset, info.Kind)
			assert.Equal(t, labeled.Float64, info.DType)
			assert.Equal(t, []int{4, 6}, info.Shape)
			assert.Equal(t, []int{4, 6}, info.Chunks)
			assert.True(t, info.Fletcher32)
		})

		t.Run("full read", func(t *testing.T) {
			got, err := st.ReadDataset("/data/X", nil)
			require.NoError(t, err)
			assert.Equal(t, block.Bytes(), got.Bytes())
		})

		t.Run("sliced read", func(t *testing.T) {
			got, err := st.ReadDataset("/data/X", []labeled.Slice{labeled.Sel(1, 3), labeled.Sel(2, 5)})
			require.NoError(t, err)
			assert.Equal(t, []int{2, 3}, got.Shape())
			values, err := got.Float64s()
			require.NoError(t, err)
			assert.Equal(t, []float64{8, 9, 10, 14, 15, 16}, values)
		})

		t.Run("raw read", func(t *testing.T) {
			raw, err := st.ReadRaw("/data/X")
			require.NoError(t, err)
			assert.Equal(t, block.Bytes(), raw.Data)
			assert.Equal(t, []int{4, 6}, raw.Info.Shape)
		})

		t.Run("duplicate fails", func(t *testing.T) {
			assert.ErrorIs(t, st.CreateDataset("/data/X", block, DatasetOptions{}), ErrExists)
		})

		t.Run("read group as dataset", func(t *testing.T) {
			_, err := st.ReadDataset("/data", nil)
			assert.ErrorIs(t, err, ErrNotDataset)
		})
	})
}

func TestDatasetChunked(t *testing.T) {
	eachBackend(t, func(t *testing.T, name string, st Store) {
		block := testBlock(t, []int{5, 5, 3})
		opts := DatasetOptions{Chunks: []int{2, 2, 3}, Fletcher32: true}
		require.NoError(t, st.CreateDataset("/data/X", block, opts))

		got, err := st.ReadDataset("/data/X", nil)
		require.NoError(t, err)
		assert.Equal(t, block.Bytes(), got.Bytes())

		t.Run("edge chunk slice", func(t *testing.T) {
			got, err := st.ReadDataset("/data/X", []labeled.Slice{labeled.Sel(3, 5), labeled.Sel(4, 5)})
			require.NoError(t, err)
			assert.Equal(t, []int{2, 1, 3}, got.Shape())
			want, err := block.Slice([]labeled.Slice{labeled.Sel(3, 5), labeled.Sel(4, 5)})
			require.NoError(t, err)
			assert.Equal(t, want.Bytes(), got.Bytes())
		})
	})
}

func TestCompression(t *testing.T) {
	t.Run("pebble compresses", func(t *testing.T) {
		st, err := Open(Pebble, t.TempDir(), false)
		require.NoError(t, err)
		defer st.Close()

		block := testBlock(t, []int{32, 32})
		opts := DatasetOptions{Complib: "zstd", Complevel: 5, Fletcher32: true}
		require.NoError(t, st.CreateDataset("/data/X", block, opts))

		info, err := st.Stat("/data/X")
		require.NoError(t, err)
		assert.Equal(t, "zstd", info.Complib)
		assert.Equal(t, 5, info.Complevel)

		got, err := st.ReadDataset("/data/X", nil)
		require.NoError(t, err)
		assert.Equal(t, block.Bytes(), got.Bytes())
	})

	t.Run("badger rejects compression", func(t *testing.T) {
		st, err := Open(Badger, t.TempDir(), false)
		require.NoError(t, err)
		defer st.Close()

		block := testBlock(t, []int{4})
		err = st.CreateDataset("/data/X", block, DatasetOptions{Complib: "zstd", Complevel: 5})
		assert.ErrorIs(t, err, ErrUnsupportedOption)
	})

	t.Run("level zero means no compression", func(t *testing.T) {
		st, err := Open(Badger, t.TempDir(), false)
		require.NoError(t, err)
		defer st.Close()

		block := testBlock(t, []int{4})
		require.NoError(t, st.CreateDataset("/data/X", block, DatasetOptions{Complib: "zstd"}))
		info, err := st.Stat("/data/X")
		require.NoError(t, err)
		assert.Empty(t, info.Complib)
	})
}

func TestAttrs(t *testing.T) {
	eachBackend(t, func(t *testing.T, name string, st Store) {
		require.NoError(t, st.CreateGroup("/data"))

		require.NoError(t, st.SetAttr("/data", "comment", "calibration run"))
		require.NoError(t, st.SetAttr("/data", "count", int64(3)))
		require.NoError(t, st.SetAttr("/data", "weights", []float64{0.5, 0.5}))

		t.Run("single attr", func(t *testing.T) {
			value, err := st.Attr("/data", "count")
			require.NoError(t, err)
			assert.Equal(t, int64(3), value)
		})

		t.Run("missing attr", func(t *testing.T) {
			_, err := st.Attr("/data", "nope")
			assert.ErrorIs(t, err, ErrAttrNotFound)
		})

		t.Run("attr on missing node", func(t *testing.T) {
			_, err := st.Attr("/nope", "comment")
			assert.ErrorIs(t, err, ErrNotFound)
		})

		t.Run("set attr on missing node", func(t *testing.T) {
			assert.ErrorIs(t, st.SetAttr("/nope", "comment", "x"), ErrNotFound)
		})

		t.Run("enumeration is sorted and user-only", func(t *testing.T) {
			entries, err := st.Attrs("/data")
			require.NoError(t, err)
			keys := make([]string, len(entries))
			for i, e := range entries {
				keys[i] = e.Key
			}
			assert.Equal(t, []string{"comment", "count", "weights"}, keys)
		})

		t.Run("overwrite", func(t *testing.T) {
			require.NoError(t, st.SetAttr("/data", "count", int64(4)))
			value, err := st.Attr("/data", "count")
			require.NoError(t, err)
			assert.Equal(t, int64(4), value)
		})
	})
}

func TestBadgerSystemAttrs(t *testing.T) {
	st, err := Open(Badger, t.TempDir(), false)
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.CreateGroup("/data"))
	require.NoError(t, st.CreateDataset("/data/X", testBlock(t, []int{2}), DatasetOptions{}))

	t.Run("system keys are readable directly", func(t *testing.T) {
		class, err := st.Attr("/data", "CLASS")
		require.NoError(t, err)
		assert.Equal(t, "GROUP", class)

		class, err = st.Attr("/data/X", "CLASS")
		require.NoError(t, err)
		assert.Equal(t, "ARRAY", class)

		title, err := st.Attr("/data/X", "TITLE")
		require.NoError(t, err)
		assert.Equal(t, "X", title)
	})

	t.Run("system keys are excluded from enumeration", func(t *testing.T) {
		require.NoError(t, st.SetAttr("/data/X", "comment", "x"))
		entries, err := st.Attrs("/data/X")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "comment", entries[0].Key)
	})
}

func TestClosedStore(t *testing.T) {
	eachBackend(t, func(t *testing.T, name string, st Store) {
		require.NoError(t, st.Close())
		assert.ErrorIs(t, st.CreateGroup("/data"), ErrClosed)
		_, err := st.Stat("/")
		assert.ErrorIs(t, err, ErrClosed)
		assert.NoError(t, st.Close())
	})
}

func TestCleanPath(t *testing.T) {
	assert.Equal(t, "/", CleanPath(""))
	assert.Equal(t, "/", CleanPath("/"))
	assert.Equal(t, "/data", CleanPath("data/"))
	assert.Equal(t, "/data/X", CleanPath("//data//X"))
}

func TestParentPaths(t *testing.T) {
	assert.Nil(t, parentPaths("/"))
	assert.Equal(t, []string{"/"}, parentPaths("/data"))
	assert.Equal(t, []string{"/", "/data", "/data/raw"}, parentPaths("/data/raw/X"))
}
