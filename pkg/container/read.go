package container

import (
	"fmt"
	"path"

	"github.com/phicore/phistore/pkg/backend"
	"github.com/phicore/phistore/pkg/codec"
	"github.com/phicore/phistore/pkg/labeled"
)

// ReadOptions configure ReadArray. Index and Chunks are mutually exclusive
// selection strategies; a non-nil empty value still counts as selected.
type ReadOptions struct {
	Backend string
	Index   []labeled.Slice
	Chunks  []int
}

// RawArray is the result of a raw read: the same five fields as a labeled
// array but with the backing buffer left undecoded.
type RawArray struct {
	Name   string
	Dims   []string
	Coords map[string][]float64
	Attrs  map[string]interface{}
	DType  labeled.DType
	Shape  []int
	Data   []byte
}

// ReadArray reconstructs the labeled array stored at location. With
// opts.Index the values and coordinate vectors are sliced before loading;
// with opts.Chunks the values are wrapped in a lazy chunked view and the
// store handle stays open on the session until Close.
func (s *Session) ReadArray(location string, opts *ReadOptions) (*labeled.Array, error) {
	if opts == nil {
		opts = &ReadOptions{}
	}
	if opts.Index != nil && opts.Chunks != nil {
		return nil, fmt.Errorf("%w: index and chunks cannot be combined", ErrConflictingOptions)
	}
	target, name, err := resolveArrayPath(location)
	if err != nil {
		return nil, err
	}

	st, err := s.Open(ModeRead, opts.Backend)
	if err != nil {
		return nil, err
	}
	lazy := opts.Chunks != nil

	arr, err := s.resolveArray(st, target, name, opts, lazy)
	if err != nil {
		st.Close()
		return nil, err
	}
	if lazy {
		// Handle ownership moves to the session; Close releases it.
		s.handles = append(s.handles, st)
		return arr, nil
	}
	if err := st.Close(); err != nil {
		return nil, err
	}
	return arr, nil
}

// ReadArrayRaw reads the array at location without decoding its backing
// buffer. Raw reads cannot be combined with index slicing or chunked
// loading.
func (s *Session) ReadArrayRaw(location string, opts *ReadOptions) (*RawArray, error) {
	if opts == nil {
		opts = &ReadOptions{}
	}
	if opts.Index != nil || opts.Chunks != nil {
		return nil, fmt.Errorf("%w: raw reads cannot be combined with index or chunks", ErrConflictingOptions)
	}
	target, name, err := resolveArrayPath(location)
	if err != nil {
		return nil, err
	}

	var raw *RawArray
	err = s.withStore(ModeRead, opts.Backend, func(st backend.Store) error {
		rd, err := st.ReadRaw(target)
		if err != nil {
			return err
		}
		dims, err := readScaleNames(st, target)
		if err != nil {
			return err
		}
		coords, units, err := readCoords(st, name, dims, nil)
		if err != nil {
			return err
		}
		attrs, err := readUserAttrs(st, target, units)
		if err != nil {
			return err
		}
		raw = &RawArray{
			Name:   name,
			Dims:   dims,
			Coords: coords,
			Attrs:  attrs,
			DType:  rd.Info.DType,
			Shape:  rd.Info.Shape,
			Data:   rd.Data,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// resolveArray reconstructs the array through an already opened store.
func (s *Session) resolveArray(st backend.Store, target, name string, opts *ReadOptions, lazy bool) (*labeled.Array, error) {
	dims, err := readScaleNames(st, target)
	if err != nil {
		return nil, err
	}

	var values labeled.Values
	if lazy {
		if s.lazy == nil {
			return nil, ErrMissingDependency
		}
		info, err := st.Stat(target)
		if err != nil {
			return nil, err
		}
		if info.Kind != codec.KindDataset {
			return nil, fmt.Errorf("%w: %s", backend.ErrNotDataset, target)
		}
		values, err = s.lazy(info.DType, info.Shape, opts.Chunks, func(index []labeled.Slice) (*labeled.Block, error) {
			return st.ReadDataset(target, index)
		})
		if err != nil {
			return nil, err
		}
	} else {
		values, err = st.ReadDataset(target, opts.Index)
		if err != nil {
			return nil, err
		}
	}

	coords, units, err := readCoords(st, name, dims, opts.Index)
	if err != nil {
		return nil, err
	}
	attrs, err := readUserAttrs(st, target, units)
	if err != nil {
		return nil, err
	}

	arr := &labeled.Array{
		Name:   name,
		Dims:   dims,
		Coords: coords,
		Attrs:  attrs,
		Values: values,
	}
	if err := arr.Validate(); err != nil {
		return nil, fmt.Errorf("stored array is inconsistent: %w", err)
	}
	return arr, nil
}

// resolveArrayPath extracts the dataset name from a location.
func resolveArrayPath(location string) (target, name string, err error) {
	target = backend.CleanPath(location)
	name = path.Base(target)
	if name == "/" || name == "." || name == "" {
		return "", "", fmt.Errorf("%w: %q must end in an array name", ErrInvalidPath, location)
	}
	return target, name, nil
}

// readScaleNames recovers the dimension order from the data node's scales
// attribute.
func readScaleNames(st backend.Store, target string) ([]string, error) {
	value, err := st.Attr(target, attrScales)
	if err != nil {
		return nil, err
	}
	switch v := value.(type) {
	case [][]byte:
		dims := make([]string, len(v))
		for i, b := range v {
			dims[i] = string(b)
		}
		return dims, nil
	case []string:
		return v, nil
	default:
		return nil, fmt.Errorf("scales attribute of %s has type %T", target, value)
	}
}

// readCoords loads each dimension's coordinate vector and unit from its
// scale node, slicing coordinates by the matching index entry when present.
func readCoords(st backend.Store, dataset string, dims []string, index []labeled.Slice) (map[string][]float64, map[string]string, error) {
	coords := make(map[string][]float64, len(dims))
	units := make(map[string]string, len(dims))
	for i, dim := range dims {
		scalePath := scaleNodePath(dataset, dim)
		var sel []labeled.Slice
		if index != nil && i < len(index) {
			sel = []labeled.Slice{index[i]}
		}
		block, err := st.ReadDataset(scalePath, sel)
		if err != nil {
			return nil, nil, fmt.Errorf("scale %q: %w", dim, err)
		}
		vec, err := block.Float64s()
		if err != nil {
			return nil, nil, fmt.Errorf("scale %q: %w", dim, err)
		}
		coords[dim] = vec

		value, err := st.Attr(scalePath, attrUnit)
		if err != nil {
			return nil, nil, fmt.Errorf("scale %q: %w", dim, err)
		}
		switch u := value.(type) {
		case []byte:
			units[dim] = string(u)
		case string:
			units[dim] = u
		default:
			return nil, nil, fmt.Errorf("unit attribute of scale %q has type %T", dim, value)
		}
	}
	return coords, units, nil
}

// readUserAttrs enumerates the data node's attributes, drops the reserved
// keys, and folds the unit map in under the scale_units key.
func readUserAttrs(st backend.Store, target string, units map[string]string) (map[string]interface{}, error) {
	entries, err := st.Attrs(target)
	if err != nil {
		return nil, err
	}
	attrs := make(map[string]interface{}, len(entries)+1)
	for _, e := range entries {
		if e.Key == attrName || e.Key == attrScales {
			continue
		}
		attrs[e.Key] = e.Value
	}
	attrs[labeled.ScaleUnitsKey] = units
	return attrs, nil
}
