package csrzip

import (
	"iter"
	"runtime"
	"slices"
	"unsafe"
)

// CSR is the compressed adjacency store: a dense offset array indexed by
// source vertex and one byte blob holding every encoded neighbour list
// back to back. Construction is the only mutating phase; a returned CSR is
// immutable and safe for concurrent reads.
type CSR struct {
	offsets  []int
	blob     []byte
	numEdges int
}

// Empty returns a graph with no vertices, the unit of Union.
func Empty() *CSR {
	return &CSR{}
}

// New builds a CSR from an edge buffer with default options. The buffer is
// sorted in place.
//
// Duplicate edges collapse; vertices up to the largest id on either side of
// an edge exist even when isolated.
func New(edges []Edge) *CSR {
	return NewWithOptions(edges, Options{})
}

// NewWithOptions builds a CSR from an edge buffer. The buffer is sorted in
// place.
func NewWithOptions(edges []Edge, opt Options) *CSR {
	return buildCSR(edges, opt)
}

// Order returns the number of vertices.
func (g *CSR) Order() int {
	return max(0, len(g.offsets)-1)
}

// Size returns the number of directed edges after deduplication.
func (g *CSR) Size() int {
	return g.numEdges
}

// NBytes reports the resident size of the container, offsets and blob.
func (g *CSR) NBytes() int {
	return int(unsafe.Sizeof(*g)) +
		len(g.offsets)*int(unsafe.Sizeof(int(0))) +
		len(g.blob)
}

// listBytes returns the encoded neighbour list of u, nil when u has none or
// lies outside the graph.
func (g *CSR) listBytes(u uint32) []byte {
	i := int(u)
	if i+1 >= len(g.offsets) {
		return nil
	}
	return g.blob[g.offsets[i]:g.offsets[i+1]]
}

// Adj returns the neighbours of u as a lazy ascending sequence. A vertex
// outside the graph yields nothing.
//
//	g := csrzip.New([]csrzip.Edge{{0, 1}, {0, 2}, {1, 0}, {2, 1}})
//	for v := range g.Adj(0) { ... } // 1, 2
func (g *CSR) Adj(u uint32) iter.Seq[uint32] {
	return Decode(u, g.listBytes(u))
}

// Degree returns the out-degree of u without materialising the list.
func (g *CSR) Degree(u uint32) int {
	return Count(u, g.listBytes(u))
}

// Edges returns every edge in CSR order: sources ascending, neighbours
// ascending within a source.
func (g *CSR) Edges() iter.Seq[Edge] {
	return func(yield func(Edge) bool) {
		for i := 0; i+1 < len(g.offsets); i++ {
			u := uint32(i)
			dec := NewDecoder(u, g.blob[g.offsets[i]:g.offsets[i+1]])
			for v, ok := dec.Next(); ok; v, ok = dec.Next() {
				if !yield(Edge{U: u, V: v}) {
					return
				}
			}
		}
	}
}

// Reverse returns a new CSR with every arc flipped. The vertex set is
// preserved, so isolated trailing vertices survive the round trip.
func (g *CSR) Reverse() *CSR {
	buf := make([]Edge, 0, g.numEdges)
	for e := range g.Edges() {
		buf = append(buf, e.Flip())
	}
	return NewWithOptions(buf, Options{MinOrder: g.Order()})
}

// Reorder returns a new CSR under the vertex permutation perm, which maps
// old ids to new ids and must be a bijection over [0, Order).
func (g *CSR) Reorder(perm []uint32) *CSR {
	buf := make([]Edge, 0, g.numEdges)
	for e := range g.Edges() {
		buf = append(buf, Edge{U: perm[e.U], V: perm[e.V]})
	}
	return NewWithOptions(buf, Options{MinOrder: g.Order()})
}

// unionPart is one contiguous range of vertices re-encoded during Union.
type unionPart struct {
	nnz   []int
	blob  []byte
	edges int
}

// Union returns the graph whose neighbour lists are the sorted set-unions of
// the receiver's and other's. Vertices are re-encoded independently in
// parallel, so the cost is proportional to the larger graph, not to the
// overlap.
func (g *CSR) Union(other *CSR) *CSR {
	order := max(g.Order(), other.Order())
	if order == 0 {
		return Empty()
	}

	workers := runtime.NumCPU()
	chunk := max(1, (order+workers*4-1)/(workers*4))
	numChunks := (order + chunk - 1) / chunk
	parts := make([]unionPart, numChunks)

	parallelFor(numChunks, workers, func(lo, hi int) {
		var scratch []uint32
		for ci := lo; ci < hi; ci++ {
			start := ci * chunk
			end := min(start+chunk, order)
			part := unionPart{nnz: make([]int, 0, end-start)}
			for i := start; i < end; i++ {
				u := uint32(i)
				a := NewDecoder(u, g.listBytes(u))
				b := NewDecoder(u, other.listBytes(u))
				scratch = mergeUnion(scratch[:0], &a, &b)
				before := len(part.blob)
				part.blob = Encode(part.blob, u, scratch)
				part.nnz = append(part.nnz, len(part.blob)-before)
				part.edges += len(scratch)
			}
			parts[ci] = part
		}
	})

	nnz := make([]int, 0, order)
	var blob []byte
	numEdges := 0
	for _, part := range parts {
		nnz = append(nnz, part.nnz...)
		blob = append(blob, part.blob...)
		numEdges += part.edges
	}

	return &CSR{
		offsets:  exclusiveSum(nnz, workers),
		blob:     slices.Clip(blob),
		numEdges: numEdges,
	}
}
