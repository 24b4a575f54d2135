package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
)

// Compression identifiers stored in chunk payload headers.
const (
	CompNone   byte = 0
	CompZstd   byte = 1
	CompSnappy byte = 2
)

// CompressionID maps a compression library name to its stored identifier.
func CompressionID(complib string) (byte, error) {
	switch complib {
	case "", "none":
		return CompNone, nil
	case "zstd":
		return CompZstd, nil
	case "snappy":
		return CompSnappy, nil
	default:
		return 0, fmt.Errorf("unknown compression library %q", complib)
	}
}

const chunkFlagFletcher32 = 1

// EncodeChunk serializes one chunk of raw array bytes.
// Format: [compression(1)][flags(1)][fletcher32 checksum(4), if flagged]
// [data]. The checksum covers the uncompressed bytes.
func EncodeChunk(raw []byte, compression byte, level int, fletcher32 bool) ([]byte, error) {
	flags := byte(0)
	header := []byte{compression, 0}
	if fletcher32 {
		flags |= chunkFlagFletcher32
		header = binary.LittleEndian.AppendUint32(header, Fletcher32(raw))
	}
	header[1] = flags

	switch compression {
	case CompNone:
		return append(header, raw...), nil
	case CompZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(raw, header), nil
	case CompSnappy:
		return append(header, s2.EncodeSnappy(nil, raw)...), nil
	default:
		return nil, fmt.Errorf("unknown compression id %d", compression)
	}
}

// DecodeChunk deserializes a chunk payload, decompressing and verifying the
// checksum when present.
func DecodeChunk(payload []byte) ([]byte, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("chunk payload too short (%d bytes)", len(payload))
	}
	compression, flags := payload[0], payload[1]
	rest := payload[2:]

	var want uint32
	checked := flags&chunkFlagFletcher32 != 0
	if checked {
		if len(rest) < 4 {
			return nil, fmt.Errorf("chunk payload missing checksum")
		}
		want = binary.LittleEndian.Uint32(rest)
		rest = rest[4:]
	}

	var raw []byte
	switch compression {
	case CompNone:
		raw = rest
	case CompZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer dec.Close()
		if raw, err = dec.DecodeAll(rest, nil); err != nil {
			return nil, fmt.Errorf("decompressing chunk: %w", err)
		}
	case CompSnappy:
		var err error
		if raw, err = s2.Decode(nil, rest); err != nil {
			return nil, fmt.Errorf("decompressing chunk: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown compression id %d", compression)
	}

	if checked && Fletcher32(raw) != want {
		return nil, fmt.Errorf("fletcher32 mismatch: %08x != %08x", Fletcher32(raw), want)
	}
	return raw, nil
}
