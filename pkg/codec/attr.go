package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Attribute value kinds. The kind is the first byte of every encoded value.
const (
	kindString byte = iota + 1
	kindBytes
	kindBool
	kindInt64
	kindFloat64
	kindFloat64s
	kindStringList
	kindBytesList
)

// EncodeAttr serializes an attribute value.
// Format: [kind(1)][payload]; lists are uvarint-counted with uvarint-length
// items, numeric payloads are little-endian.
//
// Supported values: string, []byte, bool, int, int32, int64, float32,
// float64, []float64, []string, [][]byte. Values implementing fmt.Stringer
// are normalized to plain strings.
func EncodeAttr(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return append([]byte{kindString}, v...), nil
	case []byte:
		return append([]byte{kindBytes}, v...), nil
	case bool:
		b := byte(0)
		if v {
			b = 1
		}
		return []byte{kindBool, b}, nil
	case int:
		return encodeInt64(int64(v)), nil
	case int32:
		return encodeInt64(int64(v)), nil
	case int64:
		return encodeInt64(v), nil
	case float32:
		return encodeFloat64(float64(v)), nil
	case float64:
		return encodeFloat64(v), nil
	case []float64:
		buf := binary.AppendUvarint([]byte{kindFloat64s}, uint64(len(v)))
		for _, f := range v {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f))
		}
		return buf, nil
	case []string:
		buf := binary.AppendUvarint([]byte{kindStringList}, uint64(len(v)))
		for _, s := range v {
			buf = binary.AppendUvarint(buf, uint64(len(s)))
			buf = append(buf, s...)
		}
		return buf, nil
	case [][]byte:
		buf := binary.AppendUvarint([]byte{kindBytesList}, uint64(len(v)))
		for _, s := range v {
			buf = binary.AppendUvarint(buf, uint64(len(s)))
			buf = append(buf, s...)
		}
		return buf, nil
	case fmt.Stringer:
		return append([]byte{kindString}, v.String()...), nil
	default:
		return nil, fmt.Errorf("unsupported attribute type %T", value)
	}
}

// DecodeAttr deserializes an attribute value encoded by EncodeAttr.
func DecodeAttr(data []byte) (interface{}, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty attribute value")
	}
	kind, payload := data[0], data[1:]
	switch kind {
	case kindString:
		return string(payload), nil
	case kindBytes:
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil
	case kindBool:
		if len(payload) != 1 {
			return nil, fmt.Errorf("bool attribute has %d payload bytes", len(payload))
		}
		return payload[0] != 0, nil
	case kindInt64:
		if len(payload) != 8 {
			return nil, fmt.Errorf("int64 attribute has %d payload bytes", len(payload))
		}
		return int64(binary.LittleEndian.Uint64(payload)), nil
	case kindFloat64:
		if len(payload) != 8 {
			return nil, fmt.Errorf("float64 attribute has %d payload bytes", len(payload))
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(payload)), nil
	case kindFloat64s:
		count, n := binary.Uvarint(payload)
		if n <= 0 || len(payload[n:]) != int(count)*8 {
			return nil, fmt.Errorf("malformed float64 list attribute")
		}
		out := make([]float64, count)
		for i := range out {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(payload[n+i*8:]))
		}
		return out, nil
	case kindStringList:
		items, err := decodeByteItems(payload)
		if err != nil {
			return nil, err
		}
		out := make([]string, len(items))
		for i, it := range items {
			out[i] = string(it)
		}
		return out, nil
	case kindBytesList:
		return decodeByteItems(payload)
	default:
		return nil, fmt.Errorf("unknown attribute kind %d", kind)
	}
}

func encodeInt64(v int64) []byte {
	return binary.LittleEndian.AppendUint64([]byte{kindInt64}, uint64(v))
}

func encodeFloat64(v float64) []byte {
	return binary.LittleEndian.AppendUint64([]byte{kindFloat64}, math.Float64bits(v))
}

func decodeByteItems(payload []byte) ([][]byte, error) {
	count, n := binary.Uvarint(payload)
	if n <= 0 {
		return nil, fmt.Errorf("malformed list attribute")
	}
	payload = payload[n:]
	out := make([][]byte, 0, count)
	for i := uint64(0); i < count; i++ {
		size, n := binary.Uvarint(payload)
		if n <= 0 || uint64(len(payload[n:])) < size {
			return nil, fmt.Errorf("malformed list attribute item %d", i)
		}
		item := make([]byte, size)
		copy(item, payload[n:])
		payload = payload[n+int(size):]
		out = append(out, item)
	}
	if len(payload) != 0 {
		return nil, fmt.Errorf("trailing bytes after list attribute")
	}
	return out, nil
}
