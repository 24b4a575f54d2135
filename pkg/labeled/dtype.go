package labeled

import "fmt"

// DType identifies the element type of a Block.
type DType uint8

// Supported element types. Values are stored little-endian, row-major.
const (
	Float64 DType = iota + 1
	Float32
	Int64
	Int32
)

// Size returns the element size in bytes.
func (d DType) Size() int {
	switch d {
	case Float64, Int64:
		return 8
	case Float32, Int32:
		return 4
	default:
		return 0
	}
}

func (d DType) String() string {
	switch d {
	case Float64:
		return "float64"
	case Float32:
		return "float32"
	case Int64:
		return "int64"
	case Int32:
		return "int32"
	default:
		return fmt.Sprintf("dtype(%d)", uint8(d))
	}
}

// Valid reports whether d is one of the supported element types.
func (d DType) Valid() bool {
	return d.Size() != 0
}
