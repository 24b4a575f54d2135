package container

import (
	"errors"
	"path"

	"github.com/phicore/phistore/pkg/backend"
)

// ListArrays returns the full path of every immediate child of location
// (DefaultDataLocation when empty) that carries a scales attribute, i.e.
// every child that is a complete data node. An empty result is not an
// error; a missing location surfaces the backend's not-found error.
func (s *Session) ListArrays(location string) ([]string, error) {
	if location == "" {
		location = DefaultDataLocation
	}
	prefix := backend.CleanPath(location)

	var out []string
	err := s.withStore(ModeRead, "", func(st backend.Store) error {
		children, err := st.Children(prefix)
		if err != nil {
			return err
		}
		for _, child := range children {
			full := path.Join(prefix, child)
			if _, err := st.Attr(full, attrScales); err != nil {
				if errors.Is(err, backend.ErrAttrNotFound) {
					continue
				}
				return err
			}
			out = append(out, full)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
