package backend

import (
	"fmt"

	"github.com/phicore/phistore/pkg/codec"
	"github.com/phicore/phistore/pkg/labeled"
)

// datasetInfo derives the stored description of a new dataset from its block
// and creation options.
func datasetInfo(block *labeled.Block, opts DatasetOptions, compression byte) (*codec.NodeInfo, error) {
	shape := block.Shape()
	g, err := newGrid(shape, opts.Chunks)
	if err != nil {
		return nil, err
	}
	complib := opts.Complib
	if compression == codec.CompNone {
		complib = ""
	}
	return &codec.NodeInfo{
		Kind:       codec.KindDataset,
		DType:      block.DType(),
		Shape:      shape,
		Chunks:     g.chunks,
		Complib:    complib,
		Complevel:  opts.Complevel,
		Fletcher32: opts.Fletcher32,
	}, nil
}

// writeChunks splits a block into encoded chunk payloads and hands each to
// put, keyed by the chunk key suffix.
func writeChunks(block *labeled.Block, info *codec.NodeInfo, compression byte, put func(suffix string, payload []byte) error) error {
	g, err := newGrid(info.Shape, info.Chunks)
	if err != nil {
		return err
	}
	for i := 0; i < g.count(); i++ {
		coords := g.coords(i)
		offset, size := g.bounds(coords)
		sub, err := block.Region(offset, size)
		if err != nil {
			return err
		}
		payload, err := codec.EncodeChunk(sub.Bytes(), compression, info.Complevel, info.Fletcher32)
		if err != nil {
			return err
		}
		if err := put(g.key(coords), payload); err != nil {
			return err
		}
	}
	return nil
}

// readChunks assembles the region of a dataset selected by index from its
// stored chunks. A nil index loads the full dataset. Chunks that do not
// intersect the selection are never fetched.
func readChunks(info *codec.NodeInfo, index []labeled.Slice, get func(suffix string) ([]byte, error)) (*labeled.Block, error) {
	if info.Kind != codec.KindDataset {
		return nil, ErrNotDataset
	}
	norm, err := labeled.NormalizeIndex(index, info.Shape)
	if err != nil {
		return nil, err
	}
	outShape := make([]int, len(norm))
	for i, s := range norm {
		outShape[i] = s.Len()
	}
	out, err := labeled.NewBlockFromBytes(info.DType, outShape,
		make([]byte, labeled.NumElements(outShape)*info.DType.Size()))
	if err != nil {
		return nil, err
	}

	g, err := newGrid(info.Shape, info.Chunks)
	if err != nil {
		return nil, err
	}
chunks:
	for i := 0; i < g.count(); i++ {
		coords := g.coords(i)
		offset, size := g.bounds(coords)

		srcOff := make([]int, len(norm))
		dstOff := make([]int, len(norm))
		interSize := make([]int, len(norm))
		for d, s := range norm {
			lo, hi := offset[d], offset[d]+size[d]
			if s.Start > lo {
				lo = s.Start
			}
			if s.Stop < hi {
				hi = s.Stop
			}
			if lo >= hi {
				continue chunks
			}
			srcOff[d] = lo - offset[d]
			dstOff[d] = lo - s.Start
			interSize[d] = hi - lo
		}

		payload, err := get(g.key(coords))
		if err != nil {
			return nil, err
		}
		raw, err := codec.DecodeChunk(payload)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", g.key(coords), err)
		}
		chunk, err := labeled.NewBlockFromBytes(info.DType, size, raw)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", g.key(coords), err)
		}
		sub, err := chunk.Region(srcOff, interSize)
		if err != nil {
			return nil, err
		}
		if err := out.SetRegion(dstOff, sub); err != nil {
			return nil, err
		}
	}
	return out, nil
}
