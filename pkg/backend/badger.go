package backend

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/phicore/phistore/pkg/codec"
	"github.com/phicore/phistore/pkg/labeled"
)

// Key spaces inside the badger store.
const (
	badgerNodePrefix  = "n!"
	badgerMetaPrefix  = "m!"
	badgerChunkPrefix = "d!"
	badgerSep         = "!"
)

// System attribute keys the badger backend maintains on every node. They are
// upper-case-only and excluded from the normalized enumeration.
const (
	badgerAttrClass   = "CLASS"
	badgerAttrVersion = "VERSION"
	badgerAttrTitle   = "TITLE"
)

// badgerStore is the capability-limited backend: no compression support, and
// a node's attributes are kept together in one metadata record that also
// carries the backend's own upper-case system keys. Enumeration is
// synthesized from that record with system keys filtered out.
type badgerStore struct {
	db     *badger.DB
	closed bool
}

func openBadger(dir string, readOnly bool) (Store, error) {
	opts := badger.DefaultOptions(dir).
		WithReadOnly(readOnly).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger store: %w", err)
	}
	s := &badgerStore{db: db}
	if !readOnly {
		if err := s.ensureRoot(); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *badgerStore) ensureRoot() error {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(badgerNodePrefix + "/"))
		return err
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}
	return s.createNode("/", &codec.NodeInfo{Kind: codec.KindGroup})
}

// createNode writes a node record plus its initial metadata record with the
// backend's system attributes.
func (s *badgerStore) createNode(p string, info *codec.NodeInfo) error {
	rec, err := codec.EncodeNodeInfo(info)
	if err != nil {
		return err
	}
	class := "GROUP"
	if info.Kind == codec.KindDataset {
		class = "ARRAY"
	}
	title := path.Base(p)
	if title == "/" {
		title = ""
	}
	meta, err := codec.EncodeAttrMap(map[string]interface{}{
		badgerAttrClass:   class,
		badgerAttrVersion: "1.0",
		badgerAttrTitle:   title,
	})
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(badgerNodePrefix+p), rec); err != nil {
			return err
		}
		return txn.Set([]byte(badgerMetaPrefix+p), meta)
	})
}

func (s *badgerStore) get(key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	return out, err
}

func (s *badgerStore) node(p string) (*codec.NodeInfo, error) {
	raw, err := s.get(badgerNodePrefix + p)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if err != nil {
		return nil, err
	}
	return codec.DecodeNodeInfo(raw)
}

func (s *badgerStore) meta(p string) (map[string]interface{}, error) {
	raw, err := s.get(badgerMetaPrefix + p)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if err != nil {
		return nil, err
	}
	return codec.DecodeAttrMap(raw)
}

func (s *badgerStore) ensureGroups(p string) error {
	for _, parent := range parentPaths(p) {
		if _, err := s.node(parent); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := s.createNode(parent, &codec.NodeInfo{Kind: codec.KindGroup}); err != nil {
			return err
		}
	}
	return nil
}

func (s *badgerStore) CreateGroup(p string) error {
	if s.closed {
		return ErrClosed
	}
	p = CleanPath(p)
	if _, err := s.node(p); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, p)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := s.ensureGroups(p); err != nil {
		return err
	}
	return s.createNode(p, &codec.NodeInfo{Kind: codec.KindGroup})
}

func (s *badgerStore) CreateDataset(p string, block *labeled.Block, opts DatasetOptions) error {
	if s.closed {
		return ErrClosed
	}
	p = CleanPath(p)
	if opts.Complevel > 0 {
		return fmt.Errorf("%w: complevel %d on backend %q", ErrUnsupportedOption, opts.Complevel, Badger)
	}
	if _, err := s.node(p); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, p)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := s.ensureGroups(p); err != nil {
		return err
	}
	info, err := datasetInfo(block, opts, codec.CompNone)
	if err != nil {
		return err
	}
	err = writeChunks(block, info, codec.CompNone, func(suffix string, payload []byte) error {
		return s.db.Update(func(txn *badger.Txn) error {
			return txn.Set([]byte(badgerChunkPrefix+p+badgerSep+suffix), payload)
		})
	})
	if err != nil {
		return err
	}
	return s.createNode(p, info)
}

func (s *badgerStore) ReadDataset(p string, index []labeled.Slice) (*labeled.Block, error) {
	if s.closed {
		return nil, ErrClosed
	}
	p = CleanPath(p)
	info, err := s.node(p)
	if err != nil {
		return nil, err
	}
	return readChunks(info, index, func(suffix string) ([]byte, error) {
		return s.get(badgerChunkPrefix + p + badgerSep + suffix)
	})
}

func (s *badgerStore) ReadRaw(p string) (*RawDataset, error) {
	if s.closed {
		return nil, ErrClosed
	}
	p = CleanPath(p)
	info, err := s.node(p)
	if err != nil {
		return nil, err
	}
	block, err := readChunks(info, nil, func(suffix string) ([]byte, error) {
		return s.get(badgerChunkPrefix + p + badgerSep + suffix)
	})
	if err != nil {
		return nil, err
	}
	return &RawDataset{Info: *info, Data: block.Bytes()}, nil
}

func (s *badgerStore) Stat(p string) (*codec.NodeInfo, error) {
	if s.closed {
		return nil, ErrClosed
	}
	return s.node(CleanPath(p))
}

func (s *badgerStore) SetAttr(p, name string, value interface{}) error {
	if s.closed {
		return ErrClosed
	}
	p = CleanPath(p)
	attrs, err := s.meta(p)
	if err != nil {
		return err
	}
	attrs[name] = value
	enc, err := codec.EncodeAttrMap(attrs)
	if err != nil {
		return fmt.Errorf("attribute %q: %w", name, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerMetaPrefix+p), enc)
	})
}

func (s *badgerStore) Attr(p, name string) (interface{}, error) {
	if s.closed {
		return nil, ErrClosed
	}
	p = CleanPath(p)
	attrs, err := s.meta(p)
	if err != nil {
		return nil, err
	}
	value, ok := attrs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s@%s", ErrAttrNotFound, p, name)
	}
	return value, nil
}

// Attrs synthesizes the enumeration from the node's metadata record,
// excluding the backend's upper-case system keys, in key order.
func (s *badgerStore) Attrs(p string) ([]AttrEntry, error) {
	if s.closed {
		return nil, ErrClosed
	}
	attrs, err := s.meta(CleanPath(p))
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		if isUpperOnly(k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]AttrEntry, len(keys))
	for i, k := range keys {
		out[i] = AttrEntry{Key: k, Value: attrs[k]}
	}
	return out, nil
}

func (s *badgerStore) Children(p string) ([]string, error) {
	if s.closed {
		return nil, ErrClosed
	}
	p = CleanPath(p)
	if _, err := s.node(p); err != nil {
		return nil, err
	}
	prefix := badgerNodePrefix + p
	if p != "/" {
		prefix += "/"
	}
	var out []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			if name := childName(string(it.Item().Key()), prefix); name != "" {
				out = append(out, name)
			}
		}
		return nil
	})
	return out, err
}

func (s *badgerStore) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// isUpperOnly reports whether key contains letters and none of them are
// lower-case, the shape of the backend's system attribute names.
func isUpperOnly(key string) bool {
	return key != "" && key == strings.ToUpper(key) && key != strings.ToLower(key)
}
