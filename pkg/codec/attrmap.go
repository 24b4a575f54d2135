package codec

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// EncodeAttrMap serializes a whole attribute map as one record, the storage
// form used by backends that keep a node's attributes together. Entries are
// sorted by key so the encoding is deterministic.
// Format: [count][key len+bytes][value len+bytes]..., lengths as uvarints,
// values encoded by EncodeAttr.
func EncodeAttrMap(attrs map[string]interface{}) ([]byte, error) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := binary.AppendUvarint(nil, uint64(len(keys)))
	for _, k := range keys {
		val, err := EncodeAttr(attrs[k])
		if err != nil {
			return nil, fmt.Errorf("encoding attribute %q: %w", k, err)
		}
		buf = binary.AppendUvarint(buf, uint64(len(k)))
		buf = append(buf, k...)
		buf = binary.AppendUvarint(buf, uint64(len(val)))
		buf = append(buf, val...)
	}
	return buf, nil
}

// DecodeAttrMap deserializes an attribute map encoded by EncodeAttrMap.
func DecodeAttrMap(data []byte) (map[string]interface{}, error) {
	count, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, fmt.Errorf("malformed attribute map")
	}
	data = data[n:]
	out := make(map[string]interface{}, count)
	for i := uint64(0); i < count; i++ {
		key, rest, err := takeItem(data)
		if err != nil {
			return nil, fmt.Errorf("attribute map entry %d: %w", i, err)
		}
		enc, rest, err := takeItem(rest)
		if err != nil {
			return nil, fmt.Errorf("attribute map entry %d: %w", i, err)
		}
		val, err := DecodeAttr(enc)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", key, err)
		}
		out[string(key)] = val
		data = rest
	}
	if len(data) != 0 {
		return nil, fmt.Errorf("trailing bytes after attribute map")
	}
	return out, nil
}

func takeItem(data []byte) (item, rest []byte, err error) {
	size, n := binary.Uvarint(data)
	if n <= 0 || uint64(len(data[n:])) < size {
		return nil, nil, fmt.Errorf("malformed length prefix")
	}
	return data[n : n+int(size)], data[n+int(size):], nil
}
