package labeled

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Values is a rectangular block of numeric values, either fully realized
// (*Block) or deferred (*LazyBlock).
type Values interface {
	DType() DType
	Shape() []int
	Rank() int

	// Materialize loads the full block into memory. For a *Block this is
	// the identity.
	Materialize() (*Block, error)
}

// Block is a realized rectangular buffer of numeric values. Elements are
// stored little-endian in row-major order.
type Block struct {
	dtype DType
	shape []int
	raw   []byte
}

// NewBlockFromBytes wraps a raw little-endian row-major buffer. The buffer
// length must match the shape and element size exactly.
func NewBlockFromBytes(dtype DType, shape []int, raw []byte) (*Block, error) {
	if !dtype.Valid() {
		return nil, fmt.Errorf("invalid dtype %v", dtype)
	}
	n := NumElements(shape)
	if n < 0 {
		return nil, fmt.Errorf("invalid shape %v", shape)
	}
	if len(raw) != n*dtype.Size() {
		return nil, fmt.Errorf("buffer is %d bytes, shape %v with dtype %s needs %d",
			len(raw), shape, dtype, n*dtype.Size())
	}
	return &Block{dtype: dtype, shape: cloneInts(shape), raw: raw}, nil
}

// FromFloat64s builds a float64 block from values in row-major order.
func FromFloat64s(shape []int, values []float64) (*Block, error) {
	raw := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(v))
	}
	return NewBlockFromBytes(Float64, shape, raw)
}

// FromFloat32s builds a float32 block from values in row-major order.
func FromFloat32s(shape []int, values []float32) (*Block, error) {
	raw := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	return NewBlockFromBytes(Float32, shape, raw)
}

// FromInt64s builds an int64 block from values in row-major order.
func FromInt64s(shape []int, values []int64) (*Block, error) {
	raw := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(raw[i*8:], uint64(v))
	}
	return NewBlockFromBytes(Int64, shape, raw)
}

// FromInt32s builds an int32 block from values in row-major order.
func FromInt32s(shape []int, values []int32) (*Block, error) {
	raw := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[i*4:], uint32(v))
	}
	return NewBlockFromBytes(Int32, shape, raw)
}

// Vector builds a 1-D float64 block, the form used for coordinate scales.
func Vector(values []float64) (*Block, error) {
	return FromFloat64s([]int{len(values)}, values)
}

// DType returns the element type.
func (b *Block) DType() DType { return b.dtype }

// Shape returns a copy of the block's shape.
func (b *Block) Shape() []int { return cloneInts(b.shape) }

// Rank returns the number of dimensions.
func (b *Block) Rank() int { return len(b.shape) }

// Len returns the total number of elements.
func (b *Block) Len() int { return NumElements(b.shape) }

// Bytes returns the underlying little-endian buffer. The slice is shared
// with the block and must not be modified.
func (b *Block) Bytes() []byte { return b.raw }

// Materialize returns the block itself.
func (b *Block) Materialize() (*Block, error) { return b, nil }

// Float64s returns all elements converted to float64 in row-major order.
func (b *Block) Float64s() ([]float64, error) {
	n := b.Len()
	out := make([]float64, n)
	es := b.dtype.Size()
	for i := 0; i < n; i++ {
		w := b.raw[i*es:]
		switch b.dtype {
		case Float64:
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(w))
		case Float32:
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(w)))
		case Int64:
			out[i] = float64(int64(binary.LittleEndian.Uint64(w)))
		case Int32:
			out[i] = float64(int32(binary.LittleEndian.Uint32(w)))
		default:
			return nil, fmt.Errorf("invalid dtype %v", b.dtype)
		}
	}
	return out, nil
}

// Slice returns a copy of the region selected by index. Missing trailing
// index entries select whole dimensions.
func (b *Block) Slice(index []Slice) (*Block, error) {
	norm, err := NormalizeIndex(index, b.shape)
	if err != nil {
		return nil, err
	}
	offset := make([]int, len(norm))
	size := make([]int, len(norm))
	for i, s := range norm {
		offset[i] = s.Start
		size[i] = s.Len()
	}
	return b.Region(offset, size)
}

// Region returns a copy of the rectangular region of the given size starting
// at offset.
func (b *Block) Region(offset, size []int) (*Block, error) {
	if err := b.checkRegion(offset, size); err != nil {
		return nil, err
	}
	es := b.dtype.Size()
	raw := make([]byte, NumElements(size)*es)
	copyRegion(raw, b.raw, size, b.shape, make([]int, len(size)), offset, size, es)
	return &Block{dtype: b.dtype, shape: cloneInts(size), raw: raw}, nil
}

// SetRegion copies sub into the block at the given offset. The sub-block
// must have the same dtype and fit inside the block.
func (b *Block) SetRegion(offset []int, sub *Block) error {
	if sub.dtype != b.dtype {
		return fmt.Errorf("dtype mismatch: %s vs %s", sub.dtype, b.dtype)
	}
	if err := b.checkRegion(offset, sub.shape); err != nil {
		return err
	}
	copyRegion(b.raw, sub.raw, b.shape, sub.shape, offset, make([]int, len(offset)), sub.shape, b.dtype.Size())
	return nil
}

func (b *Block) checkRegion(offset, size []int) error {
	if len(offset) != len(b.shape) || len(size) != len(b.shape) {
		return fmt.Errorf("region rank %d/%d does not match block rank %d", len(offset), len(size), len(b.shape))
	}
	for i := range offset {
		if offset[i] < 0 || size[i] < 0 || offset[i]+size[i] > b.shape[i] {
			return fmt.Errorf("region [%d:%d) out of bounds on dimension %d (extent %d)",
				offset[i], offset[i]+size[i], i, b.shape[i])
		}
	}
	return nil
}

// NumElements returns the element count of a shape, or -1 if any extent is
// negative. The empty shape describes a scalar and has one element.
func NumElements(shape []int) int {
	n := 1
	for _, ext := range shape {
		if ext < 0 {
			return -1
		}
		n *= ext
	}
	return n
}

// Strides returns row-major strides in elements.
func Strides(shape []int) []int {
	st := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		st[i] = acc
		acc *= shape[i]
	}
	return st
}

// copyRegion copies a rectangular region of the given size between two
// row-major buffers, element size es, reading from src at srcOff and writing
// to dst at dstOff. All shapes and offsets must already be validated.
func copyRegion(dst, src []byte, dstShape, srcShape, dstOff, srcOff, size []int, es int) {
	rank := len(size)
	if rank == 0 {
		copy(dst[:es], src[:es])
		return
	}
	if NumElements(size) == 0 {
		return
	}
	dstStr := Strides(dstShape)
	srcStr := Strides(srcShape)
	row := size[rank-1] * es
	counter := make([]int, rank-1)
	for {
		dpos := dstOff[rank-1]
		spos := srcOff[rank-1]
		for i := 0; i < rank-1; i++ {
			dpos += (dstOff[i] + counter[i]) * dstStr[i]
			spos += (srcOff[i] + counter[i]) * srcStr[i]
		}
		copy(dst[dpos*es:dpos*es+row], src[spos*es:spos*es+row])

		i := rank - 2
		for ; i >= 0; i-- {
			counter[i]++
			if counter[i] < size[i] {
				break
			}
			counter[i] = 0
		}
		if i < 0 {
			return
		}
	}
}

func cloneInts(v []int) []int {
	out := make([]int, len(v))
	copy(out, v)
	return out
}
