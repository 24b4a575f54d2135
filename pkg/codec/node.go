package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/phicore/phistore/pkg/labeled"
)

// NodeKind distinguishes stored groups from stored datasets.
type NodeKind byte

const (
	KindGroup   NodeKind = 1
	KindDataset NodeKind = 2
)

const nodeRecordVersion = 1

// NodeInfo is the stored description of one container node. For groups only
// Kind is meaningful.
type NodeInfo struct {
	Kind       NodeKind
	DType      labeled.DType
	Shape      []int
	Chunks     []int // storage chunk shape; equals Shape when unchunked
	Complib    string
	Complevel  int
	Fletcher32 bool
}

// EncodeNodeInfo serializes a node record.
// Format: [version(1)][kind(1)][dtype(1)][flags(1)][complevel(1)]
// [complib len+bytes][rank][shape...][chunks...], lengths as uvarints.
func EncodeNodeInfo(info *NodeInfo) ([]byte, error) {
	if info.Kind != KindGroup && info.Kind != KindDataset {
		return nil, fmt.Errorf("invalid node kind %d", info.Kind)
	}
	if len(info.Chunks) != len(info.Shape) {
		return nil, fmt.Errorf("chunk shape %v does not match shape %v", info.Chunks, info.Shape)
	}
	flags := byte(0)
	if info.Fletcher32 {
		flags |= 1
	}
	buf := []byte{nodeRecordVersion, byte(info.Kind), byte(info.DType), flags, byte(info.Complevel)}
	buf = binary.AppendUvarint(buf, uint64(len(info.Complib)))
	buf = append(buf, info.Complib...)
	buf = binary.AppendUvarint(buf, uint64(len(info.Shape)))
	for _, ext := range info.Shape {
		buf = binary.AppendUvarint(buf, uint64(ext))
	}
	for _, ext := range info.Chunks {
		buf = binary.AppendUvarint(buf, uint64(ext))
	}
	return buf, nil
}

// DecodeNodeInfo deserializes a node record encoded by EncodeNodeInfo.
func DecodeNodeInfo(data []byte) (*NodeInfo, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("node record too short (%d bytes)", len(data))
	}
	if data[0] != nodeRecordVersion {
		return nil, fmt.Errorf("unknown node record version %d", data[0])
	}
	info := &NodeInfo{
		Kind:       NodeKind(data[1]),
		DType:      labeled.DType(data[2]),
		Fletcher32: data[3]&1 != 0,
		Complevel:  int(data[4]),
	}
	rest := data[5:]

	size, n := binary.Uvarint(rest)
	if n <= 0 || uint64(len(rest[n:])) < size {
		return nil, fmt.Errorf("malformed node record complib")
	}
	info.Complib = string(rest[n : n+int(size)])
	rest = rest[n+int(size):]

	rank, n := binary.Uvarint(rest)
	if n <= 0 {
		return nil, fmt.Errorf("malformed node record rank")
	}
	rest = rest[n:]
	readInts := func() ([]int, error) {
		out := make([]int, rank)
		for i := range out {
			ext, n := binary.Uvarint(rest)
			if n <= 0 {
				return nil, fmt.Errorf("malformed node record extents")
			}
			out[i] = int(ext)
			rest = rest[n:]
		}
		return out, nil
	}
	var err error
	if info.Shape, err = readInts(); err != nil {
		return nil, err
	}
	if info.Chunks, err = readInts(); err != nil {
		return nil, err
	}
	return info, nil
}
