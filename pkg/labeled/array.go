package labeled

import "fmt"

// ScaleUnitsKey is the reserved attribute key carrying the per-dimension
// unit map.
const ScaleUnitsKey = "scale_units"

// Array is a labeled multi-dimensional array: a block of values, ordered
// dimension names, one coordinate vector per dimension, and free-form
// attributes. Per-dimension units live in Attrs under ScaleUnitsKey as a
// map[string]string.
type Array struct {
	Name   string
	Dims   []string
	Coords map[string][]float64
	Attrs  map[string]interface{}
	Values Values
}

// New builds an array and validates its invariants.
func New(name string, values Values, dims []string, coords map[string][]float64, attrs map[string]interface{}) (*Array, error) {
	if attrs == nil {
		attrs = map[string]interface{}{}
	}
	a := &Array{
		Name:   name,
		Dims:   dims,
		Coords: coords,
		Attrs:  attrs,
		Values: values,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate checks the structural invariants: one dimension name per axis and
// one coordinate vector per dimension whose length equals the dimension
// extent.
func (a *Array) Validate() error {
	if a.Values == nil {
		return fmt.Errorf("array has no values")
	}
	shape := a.Values.Shape()
	if len(a.Dims) != len(shape) {
		return fmt.Errorf("array has %d dimension names for rank %d", len(a.Dims), len(shape))
	}
	for i, dim := range a.Dims {
		coord, ok := a.Coords[dim]
		if !ok {
			return fmt.Errorf("dimension %q has no coordinate vector", dim)
		}
		if len(coord) != shape[i] {
			return fmt.Errorf("coordinate vector for %q has %d entries, dimension extent is %d",
				dim, len(coord), shape[i])
		}
	}
	return nil
}

// Units returns the per-dimension unit map from the attributes, or an empty
// map if none is declared.
func (a *Array) Units() map[string]string {
	switch u := a.Attrs[ScaleUnitsKey].(type) {
	case map[string]string:
		return u
	default:
		return map[string]string{}
	}
}
