package csrzip

import (
	"fmt"

	"github.com/mhr3/streamvbyte"
)

// StreamVByte edge-index interop. Tensor pipelines commonly ship a graph as
// two parallel id arrays (edge index); StreamVByte is the cheap interchange
// compression for those arrays. These helpers bridge that format without
// exposing it anywhere else in the store.

// FromEdgeIndexSVB builds a CSR from StreamVByte-encoded source and target
// arrays, each holding count ids.
func FromEdgeIndexSVB(src, dst []byte, count int) (*CSR, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: negative edge count %d", ErrIndexPtrOverflow, count)
	}
	srcIDs := streamvbyte.DecodeUint32(src, count, nil)
	dstIDs := streamvbyte.DecodeUint32(dst, count, nil)
	return FromEdgeIndex(srcIDs, dstIDs)
}

// EdgeIndexSVB exports the graph as StreamVByte-encoded parallel id arrays
// in CSR edge order, with the shared element count.
func (g *CSR) EdgeIndexSVB() (src, dst []byte, count int) {
	srcIDs := make([]uint32, 0, g.numEdges)
	dstIDs := make([]uint32, 0, g.numEdges)
	for e := range g.Edges() {
		srcIDs = append(srcIDs, e.U)
		dstIDs = append(dstIDs, e.V)
	}
	return streamvbyte.EncodeUint32(srcIDs, nil),
		streamvbyte.EncodeUint32(dstIDs, nil),
		len(srcIDs)
}
