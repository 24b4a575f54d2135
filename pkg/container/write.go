package container

import (
	"fmt"
	"path"
	"sort"

	"github.com/phicore/phistore/pkg/backend"
	"github.com/phicore/phistore/pkg/labeled"
)

// Reserved attribute keys on data nodes.
const (
	attrName   = "name"
	attrScales = "scales"
	attrUnit   = "unit"
)

// DefaultDataLocation is the group arrays are written to and listed from
// when no location is given.
const DefaultDataLocation = "/data"

// ScalesLocation is the group holding coordinate vectors.
const ScalesLocation = "/scales"

// WriteOptions configure WriteArray. The zero backend name selects the
// session default; an empty chunk shape stores the array as one chunk.
type WriteOptions struct {
	Backend    string
	Chunks     []int
	Fletcher32 bool
	Complib    string
	Complevel  int
}

// DefaultWriteOptions returns the defaults: fletcher32 checksums on, zstd
// selected as the compression library but compression off (level 0).
func DefaultWriteOptions() *WriteOptions {
	return &WriteOptions{Fletcher32: true, Complib: "zstd"}
}

// WriteArray stores a labeled array under location (DefaultDataLocation
// when empty): one data node holding the values, one scale node per
// dimension holding its coordinate vector and unit, and the array's
// attributes on the data node.
//
// The scales attribute is written last: a node without it is not offered by
// ListArrays, so a mid-sequence failure never surfaces a half-written array
// as complete.
func (s *Session) WriteArray(arr *labeled.Array, location string, opts *WriteOptions) error {
	if opts == nil {
		opts = DefaultWriteOptions()
	}
	if location == "" {
		location = DefaultDataLocation
	}

	name := arr.Name
	if name == "" {
		v, ok := arr.Attrs[attrName].(string)
		if !ok {
			return fmt.Errorf("%w: set Array.Name", ErrMissingName)
		}
		s.log.Warn("array name taken from the attribute map; this form is deprecated, set Array.Name instead",
			"name", v)
		name = v
	}
	if name == "" {
		return fmt.Errorf("%w: %s must end in an array name", ErrInvalidPath, path.Join(location, name))
	}
	target := backend.CleanPath(path.Join(location, name))

	if err := arr.Validate(); err != nil {
		return fmt.Errorf("invalid array: %w", err)
	}
	units := arr.Units()
	for _, dim := range arr.Dims {
		if _, ok := units[dim]; !ok {
			return fmt.Errorf("%w: dimension %q", ErrMissingUnit, dim)
		}
	}
	block, err := arr.Values.Materialize()
	if err != nil {
		return fmt.Errorf("materializing values: %w", err)
	}

	return s.withStore(ModeAppend, opts.Backend, func(st backend.Store) error {
		err := st.CreateDataset(target, block, backend.DatasetOptions{
			Chunks:     opts.Chunks,
			Fletcher32: opts.Fletcher32,
			Complib:    opts.Complib,
			Complevel:  opts.Complevel,
		})
		if err != nil {
			return err
		}
		if err := st.SetAttr(target, attrName, name); err != nil {
			return err
		}

		for _, dim := range arr.Dims {
			coord, err := labeled.Vector(arr.Coords[dim])
			if err != nil {
				return err
			}
			scalePath := scaleNodePath(name, dim)
			err = st.CreateDataset(scalePath, coord, backend.DatasetOptions{Fletcher32: opts.Fletcher32})
			if err != nil {
				return err
			}
			if err := st.SetAttr(scalePath, attrUnit, []byte(units[dim])); err != nil {
				return err
			}
		}

		keys := make([]string, 0, len(arr.Attrs))
		for k := range arr.Attrs {
			if k == attrName || k == labeled.ScaleUnitsKey {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := st.SetAttr(target, k, arr.Attrs[k]); err != nil {
				return err
			}
		}

		// Written last; see the doc comment.
		scales := make([][]byte, len(arr.Dims))
		for i, dim := range arr.Dims {
			scales[i] = []byte(dim)
		}
		return st.SetAttr(target, attrScales, scales)
	})
}

// scaleNodePath derives a dimension's scale node path. Scale paths are keyed
// by dataset name only, not by the dataset's full group path, so two
// datasets sharing a name and a dimension collide; callers must keep dataset
// names unique within a container.
func scaleNodePath(dataset, dim string) string {
	return ScalesLocation + "/" + dataset + "_" + dim
}
