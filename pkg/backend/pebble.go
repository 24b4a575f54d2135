package backend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cockroachdb/pebble"

	"github.com/phicore/phistore/pkg/codec"
	"github.com/phicore/phistore/pkg/labeled"
)

// Key spaces inside the pebble store. The separator '!' sorts below '/' so
// a node's own keys never interleave with its descendants'.
const (
	pebbleNodePrefix  = "n!"
	pebbleAttrPrefix  = "a!"
	pebbleChunkPrefix = "d!"
	pebbleSep         = "!"
)

// pebbleStore is the capability-rich backend: per-dataset compression and
// chunking, attributes stored as individual keys so enumeration is a direct
// prefix scan.
type pebbleStore struct {
	db     *pebble.DB
	closed bool
}

func openPebble(dir string, readOnly bool) (Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{ReadOnly: readOnly})
	if err != nil {
		return nil, fmt.Errorf("opening pebble store: %w", err)
	}
	s := &pebbleStore{db: db}
	if !readOnly {
		if err := s.ensureRoot(); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *pebbleStore) ensureRoot() error {
	key := []byte(pebbleNodePrefix + "/")
	_, closer, err := s.db.Get(key)
	if err == nil {
		return closer.Close()
	}
	if !errors.Is(err, pebble.ErrNotFound) {
		return err
	}
	rec, err := codec.EncodeNodeInfo(&codec.NodeInfo{Kind: codec.KindGroup})
	if err != nil {
		return err
	}
	return s.db.Set(key, rec, pebble.Sync)
}

func (s *pebbleStore) get(key string) ([]byte, error) {
	val, closer, err := s.db.Get([]byte(key))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, closer.Close()
}

func (s *pebbleStore) node(path string) (*codec.NodeInfo, error) {
	raw, err := s.get(pebbleNodePrefix + path)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	return codec.DecodeNodeInfo(raw)
}

func (s *pebbleStore) putNode(path string, info *codec.NodeInfo) error {
	rec, err := codec.EncodeNodeInfo(info)
	if err != nil {
		return err
	}
	return s.db.Set([]byte(pebbleNodePrefix+path), rec, pebble.Sync)
}

// ensureGroups creates any missing ancestor groups of path.
func (s *pebbleStore) ensureGroups(path string) error {
	for _, p := range parentPaths(path) {
		if _, err := s.node(p); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := s.putNode(p, &codec.NodeInfo{Kind: codec.KindGroup}); err != nil {
			return err
		}
	}
	return nil
}

func (s *pebbleStore) CreateGroup(path string) error {
	if s.closed {
		return ErrClosed
	}
	path = CleanPath(path)
	if _, err := s.node(path); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, path)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := s.ensureGroups(path); err != nil {
		return err
	}
	return s.putNode(path, &codec.NodeInfo{Kind: codec.KindGroup})
}

func (s *pebbleStore) CreateDataset(path string, block *labeled.Block, opts DatasetOptions) error {
	if s.closed {
		return ErrClosed
	}
	path = CleanPath(path)
	compression := codec.CompNone
	if opts.Complevel > 0 {
		var err error
		if compression, err = codec.CompressionID(opts.Complib); err != nil {
			return err
		}
	}
	if _, err := s.node(path); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, path)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := s.ensureGroups(path); err != nil {
		return err
	}
	info, err := datasetInfo(block, opts, compression)
	if err != nil {
		return err
	}
	err = writeChunks(block, info, compression, func(suffix string, payload []byte) error {
		return s.db.Set([]byte(pebbleChunkPrefix+path+pebbleSep+suffix), payload, pebble.Sync)
	})
	if err != nil {
		return err
	}
	return s.putNode(path, info)
}

func (s *pebbleStore) ReadDataset(path string, index []labeled.Slice) (*labeled.Block, error) {
	if s.closed {
		return nil, ErrClosed
	}
	path = CleanPath(path)
	info, err := s.node(path)
	if err != nil {
		return nil, err
	}
	return readChunks(info, index, func(suffix string) ([]byte, error) {
		return s.get(pebbleChunkPrefix + path + pebbleSep + suffix)
	})
}

func (s *pebbleStore) ReadRaw(path string) (*RawDataset, error) {
	if s.closed {
		return nil, ErrClosed
	}
	path = CleanPath(path)
	info, err := s.node(path)
	if err != nil {
		return nil, err
	}
	block, err := readChunks(info, nil, func(suffix string) ([]byte, error) {
		return s.get(pebbleChunkPrefix + path + pebbleSep + suffix)
	})
	if err != nil {
		return nil, err
	}
	return &RawDataset{Info: *info, Data: block.Bytes()}, nil
}

func (s *pebbleStore) Stat(path string) (*codec.NodeInfo, error) {
	if s.closed {
		return nil, ErrClosed
	}
	return s.node(CleanPath(path))
}

func (s *pebbleStore) SetAttr(path, name string, value interface{}) error {
	if s.closed {
		return ErrClosed
	}
	path = CleanPath(path)
	if _, err := s.node(path); err != nil {
		return err
	}
	enc, err := codec.EncodeAttr(value)
	if err != nil {
		return fmt.Errorf("attribute %q: %w", name, err)
	}
	return s.db.Set([]byte(pebbleAttrPrefix+path+pebbleSep+name), enc, pebble.Sync)
}

func (s *pebbleStore) Attr(path, name string) (interface{}, error) {
	if s.closed {
		return nil, ErrClosed
	}
	path = CleanPath(path)
	if _, err := s.node(path); err != nil {
		return nil, err
	}
	raw, err := s.get(pebbleAttrPrefix + path + pebbleSep + name)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s@%s", ErrAttrNotFound, path, name)
	}
	if err != nil {
		return nil, err
	}
	return codec.DecodeAttr(raw)
}

// Attrs enumerates attributes by scanning the node's attribute key space.
// Pebble keeps no reserved attributes of its own, so every key is yielded,
// in key order.
func (s *pebbleStore) Attrs(path string) ([]AttrEntry, error) {
	if s.closed {
		return nil, ErrClosed
	}
	path = CleanPath(path)
	if _, err := s.node(path); err != nil {
		return nil, err
	}
	prefix := pebbleAttrPrefix + path + pebbleSep
	var out []AttrEntry
	err := s.scan(prefix, func(key string, val []byte) error {
		value, err := codec.DecodeAttr(val)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", key, err)
		}
		out = append(out, AttrEntry{Key: strings.TrimPrefix(key, prefix), Value: value})
		return nil
	})
	return out, err
}

func (s *pebbleStore) Children(path string) ([]string, error) {
	if s.closed {
		return nil, ErrClosed
	}
	path = CleanPath(path)
	if _, err := s.node(path); err != nil {
		return nil, err
	}
	prefix := pebbleNodePrefix + path
	if path != "/" {
		prefix += "/"
	} else {
		prefix = pebbleNodePrefix + "/"
	}
	var out []string
	err := s.scan(prefix, func(key string, _ []byte) error {
		if name := childName(key, prefix); name != "" {
			out = append(out, name)
		}
		return nil
	})
	return out, err
}

// scan visits every key with the given prefix in key order.
func (s *pebbleStore) scan(prefix string, fn func(key string, val []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: keyUpperBound([]byte(prefix)),
	})
	if err != nil {
		return err
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(string(iter.Key()), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

// keyUpperBound returns the smallest key greater than every key with the
// given prefix.
func keyUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func (s *pebbleStore) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
