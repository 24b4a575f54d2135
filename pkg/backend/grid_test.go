package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGrid(t *testing.T) {
	t.Run("empty chunk shape covers dataset", func(t *testing.T) {
		g, err := newGrid([]int{4, 6}, nil)
		require.NoError(t, err)
		assert.Equal(t, []int{4, 6}, g.chunks)
		assert.Equal(t, 1, g.count())
	})

	t.Run("zero extent gets unit chunk", func(t *testing.T) {
		g, err := newGrid([]int{0}, nil)
		require.NoError(t, err)
		assert.Equal(t, []int{1}, g.chunks)
		assert.Equal(t, 0, g.count())
	})

	t.Run("rank mismatch", func(t *testing.T) {
		_, err := newGrid([]int{4, 6}, []int{2})
		assert.Error(t, err)
	})

	t.Run("non-positive chunk extent", func(t *testing.T) {
		_, err := newGrid([]int{4}, []int{0})
		assert.Error(t, err)
	})
}

func TestGridLayout(t *testing.T) {
	g, err := newGrid([]int{5, 5, 3}, []int{2, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 1}, g.dims)
	assert.Equal(t, 9, g.count())

	t.Run("coords are row-major", func(t *testing.T) {
		assert.Equal(t, []int{0, 0, 0}, g.coords(0))
		assert.Equal(t, []int{0, 1, 0}, g.coords(1))
		assert.Equal(t, []int{1, 0, 0}, g.coords(3))
		assert.Equal(t, []int{2, 2, 0}, g.coords(8))
	})

	t.Run("keys", func(t *testing.T) {
		assert.Equal(t, "0.1.0", g.key([]int{0, 1, 0}))
		assert.Equal(t, "0", g.key(nil))
	})

	t.Run("edge chunks are clipped", func(t *testing.T) {
		offset, size := g.bounds([]int{2, 2, 0})
		assert.Equal(t, []int{4, 4, 0}, offset)
		assert.Equal(t, []int{1, 1, 3}, size)
	})

	t.Run("interior chunks keep full extent", func(t *testing.T) {
		offset, size := g.bounds([]int{1, 0, 0})
		assert.Equal(t, []int{2, 0, 0}, offset)
		assert.Equal(t, []int{2, 2, 3}, size)
	})
}
