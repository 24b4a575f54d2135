package labeled

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lazyFixture(t *testing.T, shape, chunks []int) (*LazyBlock, *Block, *int) {
	t.Helper()
	values := make([]float64, NumElements(shape))
	for i := range values {
		values[i] = float64(i)
	}
	full, err := FromFloat64s(shape, values)
	require.NoError(t, err)

	loads := 0
	lb, err := NewLazyBlock(Float64, shape, chunks, func(index []Slice) (*Block, error) {
		loads++
		if index == nil {
			return full, nil
		}
		return full.Slice(index)
	})
	require.NoError(t, err)
	return lb, full, &loads
}

func TestNewLazyBlock(t *testing.T) {
	t.Run("empty chunk shape covers whole array", func(t *testing.T) {
		lb, _, _ := lazyFixture(t, []int{4, 6}, nil)
		assert.Equal(t, []int{4, 6}, lb.ChunkShape())
		assert.Equal(t, []int{1, 1}, lb.NumChunks())
	})

	t.Run("rank mismatch", func(t *testing.T) {
		_, err := NewLazyBlock(Float64, []int{4, 6}, []int{2}, func([]Slice) (*Block, error) { return nil, nil })
		assert.Error(t, err)
	})

	t.Run("non-positive chunk extent", func(t *testing.T) {
		_, err := NewLazyBlock(Float64, []int{4}, []int{0}, func([]Slice) (*Block, error) { return nil, nil })
		assert.Error(t, err)
	})

	t.Run("nil loader", func(t *testing.T) {
		_, err := NewLazyBlock(Float64, []int{4}, nil, nil)
		assert.Error(t, err)
	})
}

func TestLazyBlockChunk(t *testing.T) {
	lb, full, loads := lazyFixture(t, []int{4, 6}, []int{3, 4})
	assert.Equal(t, []int{2, 2}, lb.NumChunks())
	assert.Equal(t, 0, *loads)

	t.Run("full chunk", func(t *testing.T) {
		chunk, err := lb.Chunk(0, 0)
		require.NoError(t, err)
		assert.Equal(t, []int{3, 4}, chunk.Shape())
		want, err := full.Slice([]Slice{Sel(0, 3), Sel(0, 4)})
		require.NoError(t, err)
		assert.Equal(t, want.Bytes(), chunk.Bytes())
	})

	t.Run("edge chunk is clipped", func(t *testing.T) {
		chunk, err := lb.Chunk(1, 1)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, chunk.Shape())
	})

	t.Run("coordinates out of range", func(t *testing.T) {
		_, err := lb.Chunk(2, 0)
		assert.Error(t, err)
		_, err = lb.Chunk(0, -1)
		assert.Error(t, err)
	})

	t.Run("rank mismatch", func(t *testing.T) {
		_, err := lb.Chunk(0)
		assert.Error(t, err)
	})
}

func TestLazyBlockMaterialize(t *testing.T) {
	lb, full, loads := lazyFixture(t, []int{4, 6}, []int{3, 4})

	got, err := lb.Materialize()
	require.NoError(t, err)
	assert.Equal(t, full.Bytes(), got.Bytes())
	assert.Equal(t, 1, *loads)
}
