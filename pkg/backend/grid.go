package backend

import (
	"fmt"
	"strconv"
	"strings"
)

// grid is the chunk layout of one stored dataset: the dataset shape split
// into a row-major grid of chunks, edge chunks clipped to the shape.
type grid struct {
	shape  []int
	chunks []int
	dims   []int // chunks per dimension
}

// newGrid builds the chunk grid for a shape. An empty chunk shape means one
// chunk covering the whole dataset.
func newGrid(shape, chunks []int) (*grid, error) {
	if len(chunks) == 0 {
		chunks = append([]int(nil), shape...)
		for i, ext := range chunks {
			if ext == 0 {
				chunks[i] = 1
			}
		}
	}
	if len(chunks) != len(shape) {
		return nil, fmt.Errorf("chunk shape %v does not match dataset rank %d", chunks, len(shape))
	}
	dims := make([]int, len(shape))
	for i := range shape {
		if chunks[i] <= 0 {
			return nil, fmt.Errorf("invalid chunk extent %d on dimension %d", chunks[i], i)
		}
		dims[i] = (shape[i] + chunks[i] - 1) / chunks[i]
	}
	return &grid{shape: shape, chunks: chunks, dims: dims}, nil
}

// count returns the total number of chunks.
func (g *grid) count() int {
	n := 1
	for _, d := range g.dims {
		n *= d
	}
	return n
}

// coords decodes a flat chunk number into grid coordinates, row-major.
func (g *grid) coords(i int) []int {
	out := make([]int, len(g.dims))
	for d := len(g.dims) - 1; d >= 0; d-- {
		out[d] = i % g.dims[d]
		i /= g.dims[d]
	}
	return out
}

// key renders grid coordinates as the chunk key suffix, e.g. "0.2.1".
func (g *grid) key(coords []int) string {
	if len(coords) == 0 {
		return "0"
	}
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ".")
}

// bounds returns the element offset and extent of the chunk at the given
// grid coordinates, clipped to the dataset shape.
func (g *grid) bounds(coords []int) (offset, size []int) {
	offset = make([]int, len(coords))
	size = make([]int, len(coords))
	for i, c := range coords {
		offset[i] = c * g.chunks[i]
		size[i] = g.chunks[i]
		if offset[i]+size[i] > g.shape[i] {
			size[i] = g.shape[i] - offset[i]
		}
	}
	return offset, size
}
