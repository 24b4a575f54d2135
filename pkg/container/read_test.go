package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phicore/phistore/pkg/backend"
	"github.com/phicore/phistore/pkg/labeled"
)

func TestReadArrayRoundTrip(t *testing.T) {
	for _, name := range []string{backend.Pebble, backend.Badger} {
		t.Run(name, func(t *testing.T) {
			s := newContainer(t, WithBackend(name))

			arr := testArray(t, "X", []int{5, 5, 3})
			arr.Attrs["comment"] = "calibration"
			arr.Attrs["shots"] = int64(200)
			require.NoError(t, s.WriteArray(arr, "", nil))

			got, err := s.ReadArray("/data/X", nil)
			require.NoError(t, err)

			assert.Equal(t, "X", got.Name)
			assert.Equal(t, []string{"x", "y", "w"}, got.Dims)
			assert.Equal(t, arr.Coords, got.Coords)
			assert.Equal(t, "calibration", got.Attrs["comment"])
			assert.Equal(t, int64(200), got.Attrs["shots"])
			assert.Equal(t, map[string]string{"x": "px", "y": "px", "w": "PHz.rad"},
				got.Attrs[labeled.ScaleUnitsKey])

			want, err := arr.Values.Materialize()
			require.NoError(t, err)
			block, err := got.Values.Materialize()
			require.NoError(t, err)
			assert.Equal(t, want.Bytes(), block.Bytes())
		})
	}
}

func TestReadArrayReservedKeys(t *testing.T) {
	s := newContainer(t)
	require.NoError(t, s.WriteArray(testArray(t, "X", []int{2, 2}), "", nil))

	got, err := s.ReadArray("/data/X", nil)
	require.NoError(t, err)
	assert.NotContains(t, got.Attrs, "name")
	assert.NotContains(t, got.Attrs, "scales")
	assert.Contains(t, got.Attrs, labeled.ScaleUnitsKey)
}

func TestReadArrayIndexed(t *testing.T) {
	s := newContainer(t)
	require.NoError(t, s.WriteArray(testArray(t, "X", []int{4, 6}), "", nil))

	got, err := s.ReadArray("/data/X", &ReadOptions{
		Index: []labeled.Slice{labeled.Sel(1, 3), labeled.Sel(2, 4)},
	})
	require.NoError(t, err)

	assert.Equal(t, []int{2, 2}, got.Values.Shape())
	assert.Equal(t, []float64{1, 2}, got.Coords["x"])
	assert.Equal(t, []float64{2, 3}, got.Coords["y"])

	block, err := got.Values.Materialize()
	require.NoError(t, err)
	values, err := block.Float64s()
	require.NoError(t, err)
	assert.Equal(t, []float64{8, 9, 14, 15}, values)

	t.Run("partial index selects whole trailing dimensions", func(t *testing.T) {
		got, err := s.ReadArray("/data/X", &ReadOptions{
			Index: []labeled.Slice{labeled.Sel(0, 1)},
		})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 6}, got.Values.Shape())
		assert.Equal(t, []float64{0}, got.Coords["x"])
		assert.Len(t, got.Coords["y"], 6)
	})
}

func TestReadArrayConflictingOptions(t *testing.T) {
	s := newContainer(t)
	require.NoError(t, s.WriteArray(testArray(t, "X", []int{4, 4}), "", nil))

	t.Run("index and chunks", func(t *testing.T) {
		_, err := s.ReadArray("/data/X", &ReadOptions{
			Index:  []labeled.Slice{labeled.Sel(0, 2)},
			Chunks: []int{2, 2},
		})
		assert.ErrorIs(t, err, ErrConflictingOptions)
	})

	t.Run("non-nil empty values still conflict", func(t *testing.T) {
		_, err := s.ReadArray("/data/X", &ReadOptions{
			Index:  []labeled.Slice{},
			Chunks: []int{},
		})
		assert.ErrorIs(t, err, ErrConflictingOptions)
	})

	t.Run("raw read with index", func(t *testing.T) {
		_, err := s.ReadArrayRaw("/data/X", &ReadOptions{Index: []labeled.Slice{labeled.Sel(0, 2)}})
		assert.ErrorIs(t, err, ErrConflictingOptions)
	})

	t.Run("raw read with chunks", func(t *testing.T) {
		_, err := s.ReadArrayRaw("/data/X", &ReadOptions{Chunks: []int{2, 2}})
		assert.ErrorIs(t, err, ErrConflictingOptions)
	})
}

func TestReadArrayChunked(t *testing.T) {
	s := newContainer(t)
	arr := testArray(t, "X", []int{4, 6})
	require.NoError(t, s.WriteArray(arr, "", nil))

	got, err := s.ReadArray("/data/X", &ReadOptions{Chunks: []int{2, 3}})
	require.NoError(t, err)

	lazy, ok := got.Values.(*labeled.LazyBlock)
	require.True(t, ok, "chunked read should produce a lazy block")
	assert.Equal(t, []int{2, 2}, lazy.NumChunks())

	chunk, err := lazy.Chunk(1, 1)
	require.NoError(t, err)
	values, err := chunk.Float64s()
	require.NoError(t, err)
	assert.Equal(t, []float64{15, 16, 17, 21, 22, 23}, values)

	want, err := arr.Values.Materialize()
	require.NoError(t, err)
	full, err := lazy.Materialize()
	require.NoError(t, err)
	assert.Equal(t, want.Bytes(), full.Bytes())

	// The lazy handle stays usable until the session is closed.
	require.NoError(t, s.Close())
	_, err = lazy.Chunk(0, 0)
	assert.Error(t, err)
}

func TestReadArrayChunkedWithoutAdapter(t *testing.T) {
	s := newContainer(t, WithLazyAdapter(nil))
	require.NoError(t, s.WriteArray(testArray(t, "X", []int{4, 4}), "", nil))

	_, err := s.ReadArray("/data/X", &ReadOptions{Chunks: []int{2, 2}})
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestReadArrayRaw(t *testing.T) {
	s := newContainer(t)
	arr := testArray(t, "X", []int{3, 2})
	require.NoError(t, s.WriteArray(arr, "", nil))

	raw, err := s.ReadArrayRaw("/data/X", nil)
	require.NoError(t, err)
	assert.Equal(t, "X", raw.Name)
	assert.Equal(t, []string{"x", "y"}, raw.Dims)
	assert.Equal(t, labeled.Float64, raw.DType)
	assert.Equal(t, []int{3, 2}, raw.Shape)
	assert.Equal(t, arr.Coords, raw.Coords)

	want, err := arr.Values.Materialize()
	require.NoError(t, err)
	assert.Equal(t, want.Bytes(), raw.Data)
}

func TestReadArrayMissing(t *testing.T) {
	s := newContainer(t)

	_, err := s.ReadArray("/data/nope", nil)
	assert.ErrorIs(t, err, backend.ErrNotFound)

	t.Run("bad location", func(t *testing.T) {
		_, err := s.ReadArray("/", nil)
		assert.ErrorIs(t, err, ErrInvalidPath)
	})
}
