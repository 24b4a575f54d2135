package backend

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/phicore/phistore/pkg/codec"
	"github.com/phicore/phistore/pkg/labeled"
)

// Backend names accepted by Open.
const (
	Pebble = "pebble"
	Badger = "badger"
)

// Default is the backend used when the caller does not pick one.
const Default = Pebble

// Common errors
var (
	ErrUnknownBackend    = errors.New("unknown backend")
	ErrUnsupportedOption = errors.New("compression is not supported by this backend")
	ErrNotFound          = errors.New("node not found")
	ErrAttrNotFound      = errors.New("attribute not found")
	ErrExists            = errors.New("node already exists")
	ErrNotDataset        = errors.New("node is not a dataset")
	ErrClosed            = errors.New("store is closed")
)

// DatasetOptions configure dataset creation. A nil/empty chunk shape stores
// the dataset as a single chunk. Complevel greater than zero requires a
// backend with compression support.
type DatasetOptions struct {
	Chunks     []int
	Fletcher32 bool
	Complib    string
	Complevel  int
}

// AttrEntry is one (key, value) pair from the normalized attribute
// enumeration.
type AttrEntry struct {
	Key   string
	Value interface{}
}

// RawDataset carries a dataset's undecoded backing buffer together with its
// stored description.
type RawDataset struct {
	Info codec.NodeInfo
	Data []byte
}

// Store is the uniform handle over one open container backend. Paths are
// slash-separated and rooted at "/". All operations are synchronous and
// single-threaded; a Store must not be shared between goroutines.
type Store interface {
	// CreateGroup creates a group node, creating missing intermediate
	// groups. Fails with ErrExists if a node already occupies the path.
	CreateGroup(path string) error

	// CreateDataset stores a block at path, creating missing intermediate
	// groups. Fails with ErrExists if a node already occupies the path and
	// with ErrUnsupportedOption if a compression level greater than zero is
	// requested on a backend without compression support.
	CreateDataset(path string, block *labeled.Block, opts DatasetOptions) error

	// ReadDataset loads the region of a dataset selected by index; a nil
	// index loads the full dataset.
	ReadDataset(path string, index []labeled.Slice) (*labeled.Block, error)

	// ReadRaw returns a dataset's backing buffer without element decoding.
	ReadRaw(path string) (*RawDataset, error)

	// Stat returns the stored description of a node.
	Stat(path string) (*codec.NodeInfo, error)

	// SetAttr sets one attribute on an existing node.
	SetAttr(path, name string, value interface{}) error

	// Attr reads one attribute; fails with ErrAttrNotFound if absent.
	Attr(path, name string) (interface{}, error)

	// Attrs enumerates a node's attributes as ordered (key, value) pairs
	// with backend-reserved keys excluded.
	Attrs(path string) ([]AttrEntry, error)

	// Children lists the names of a group's immediate children.
	Children(path string) ([]string, error)

	Close() error
}

// Open opens the container at dir through the named backend.
func Open(name, dir string, readOnly bool) (Store, error) {
	switch name {
	case Pebble:
		return openPebble(dir, readOnly)
	case Badger:
		return openBadger(dir, readOnly)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// CleanPath canonicalizes a node path: forward slashes, leading "/", no
// trailing "/". The root is "/".
func CleanPath(p string) string {
	return path.Clean("/" + strings.Trim(p, "/"))
}

// parentPaths returns the ancestor group paths of p from the root down,
// excluding p itself.
func parentPaths(p string) []string {
	if p == "/" {
		return nil
	}
	var out []string
	for dir := path.Dir(p); ; dir = path.Dir(dir) {
		out = append(out, dir)
		if dir == "/" {
			break
		}
	}
	// reverse: root first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// childName returns the immediate child segment of key under the group
// prefix, or "" if key is a deeper descendant.
func childName(key, prefix string) string {
	rest := strings.TrimPrefix(key, prefix)
	if rest == key || rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}
