package labeled

import "fmt"

// Slice selects the half-open element range [Start, Stop) along one
// dimension. Bounds beyond the dimension extent are clamped.
type Slice struct {
	Start int
	Stop  int
}

// Sel is shorthand for constructing a Slice.
func Sel(start, stop int) Slice {
	return Slice{Start: start, Stop: stop}
}

// Len returns the number of elements selected.
func (s Slice) Len() int {
	if s.Stop < s.Start {
		return 0
	}
	return s.Stop - s.Start
}

// NormalizeIndex validates index against shape and expands it to full rank.
// Missing trailing entries select the whole dimension; Start/Stop are
// clamped to the dimension extent.
func NormalizeIndex(index []Slice, shape []int) ([]Slice, error) {
	if len(index) > len(shape) {
		return nil, fmt.Errorf("index has %d entries for a rank-%d array", len(index), len(shape))
	}
	out := make([]Slice, len(shape))
	for i, ext := range shape {
		if i >= len(index) {
			out[i] = Slice{0, ext}
			continue
		}
		s := index[i]
		if s.Start < 0 || s.Stop < s.Start {
			return nil, fmt.Errorf("invalid slice [%d:%d) on dimension %d", s.Start, s.Stop, i)
		}
		if s.Start > ext {
			s.Start = ext
		}
		if s.Stop > ext {
			s.Stop = ext
		}
		out[i] = s
	}
	return out, nil
}
