package labeled

import "fmt"

// BlockLoader loads the region of a stored array selected by index. A nil
// index loads the full array.
type BlockLoader func(index []Slice) (*Block, error)

// LazyBlock is a chunked view over a stored array. Chunks are loaded on
// demand through the loader; nothing is read until Chunk or Materialize is
// called. An empty chunk shape means a single chunk covering the whole
// array.
type LazyBlock struct {
	dtype  DType
	shape  []int
	chunks []int
	load   BlockLoader
}

// NewLazyBlock builds a lazy chunked view over an array of the given dtype
// and shape.
func NewLazyBlock(dtype DType, shape, chunks []int, load BlockLoader) (*LazyBlock, error) {
	if !dtype.Valid() {
		return nil, fmt.Errorf("invalid dtype %v", dtype)
	}
	if load == nil {
		return nil, fmt.Errorf("nil block loader")
	}
	if len(chunks) == 0 {
		chunks = cloneInts(shape)
	}
	if len(chunks) != len(shape) {
		return nil, fmt.Errorf("chunk shape %v does not match rank %d", chunks, len(shape))
	}
	for i, c := range chunks {
		if c <= 0 {
			return nil, fmt.Errorf("invalid chunk extent %d on dimension %d", c, i)
		}
	}
	return &LazyBlock{
		dtype:  dtype,
		shape:  cloneInts(shape),
		chunks: cloneInts(chunks),
		load:   load,
	}, nil
}

// DType returns the element type.
func (l *LazyBlock) DType() DType { return l.dtype }

// Shape returns a copy of the full array shape.
func (l *LazyBlock) Shape() []int { return cloneInts(l.shape) }

// Rank returns the number of dimensions.
func (l *LazyBlock) Rank() int { return len(l.shape) }

// ChunkShape returns a copy of the chunk shape.
func (l *LazyBlock) ChunkShape() []int { return cloneInts(l.chunks) }

// NumChunks returns the number of chunks along each dimension.
func (l *LazyBlock) NumChunks() []int {
	n := make([]int, len(l.shape))
	for i := range l.shape {
		n[i] = (l.shape[i] + l.chunks[i] - 1) / l.chunks[i]
	}
	return n
}

// Chunk loads the chunk at the given grid coordinates. Edge chunks are
// clipped to the array shape.
func (l *LazyBlock) Chunk(coords ...int) (*Block, error) {
	if len(coords) != len(l.shape) {
		return nil, fmt.Errorf("chunk coordinates %v do not match rank %d", coords, len(l.shape))
	}
	grid := l.NumChunks()
	index := make([]Slice, len(coords))
	for i, c := range coords {
		if c < 0 || c >= grid[i] {
			return nil, fmt.Errorf("chunk coordinate %d out of range on dimension %d (grid %d)", c, i, grid[i])
		}
		start := c * l.chunks[i]
		stop := start + l.chunks[i]
		if stop > l.shape[i] {
			stop = l.shape[i]
		}
		index[i] = Slice{start, stop}
	}
	return l.load(index)
}

// Materialize loads the full array in a single read.
func (l *LazyBlock) Materialize() (*Block, error) {
	return l.load(nil)
}
