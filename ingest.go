package csrzip

import (
	"fmt"
	"iter"
	"math"
)

// Integer constrains the caller-supplied id types accepted by the CSR-style
// constructors. Conversion to the internal vertex and offset types is checked
// per element.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

func toIndex[T Integer](v T) (int, bool) {
	if v < 0 {
		return 0, false
	}
	u := uint64(v)
	if u > uint64(math.MaxInt) {
		return 0, false
	}
	return int(u), true
}

func toVertex[T Integer](v T) (uint32, bool) {
	if v < 0 {
		return 0, false
	}
	u := uint64(v)
	if u > math.MaxUint32 {
		return 0, false
	}
	return uint32(u), true
}

// FromEdges builds a CSR from a fallible edge sequence, short-circuiting on
// the first error, which is returned verbatim.
func FromEdges(seq iter.Seq2[Edge, error]) (*CSR, error) {
	return FromEdgesWithCapacity(0, seq)
}

// FromEdgesWithCapacity is FromEdges with a preallocated edge buffer.
func FromEdgesWithCapacity(capacity int, seq iter.Seq2[Edge, error]) (*CSR, error) {
	buf := make([]Edge, 0, capacity)
	for e, err := range seq {
		if err != nil {
			return nil, err
		}
		buf = append(buf, e)
	}
	return New(buf), nil
}

// FromCSR builds a CSR from a conventional uncompressed one: indptr of
// length n+1 and indices of length indptr[n]. Ids are range-checked per
// element; failures report the offending position.
func FromCSR[Ix Integer, T Integer](indptr []Ix, indices []T) (*CSR, error) {
	n := max(0, len(indptr)-1)
	if uint64(n) > math.MaxUint32 {
		return nil, ErrTooManyVertices
	}

	buf := make([]Edge, 0, len(indices))
	for i := 0; i < n; i++ {
		start, ok := toIndex(indptr[i])
		if !ok || start > len(indices) {
			return nil, fmt.Errorf("%w: indptr[%d]", ErrIndexPtrOverflow, i)
		}
		end, ok := toIndex(indptr[i+1])
		if !ok || end > len(indices) {
			return nil, fmt.Errorf("%w: indptr[%d]", ErrIndexPtrOverflow, i+1)
		}
		if start > end {
			return nil, fmt.Errorf("%w: indptr[%d] exceeds indptr[%d]", ErrIndexPtrOverflow, i, i+1)
		}
		u := uint32(i)
		for j := start; j < end; j++ {
			v, ok := toVertex(indices[j])
			if !ok {
				return nil, fmt.Errorf("%w: indices[%d]", ErrIndexOverflow, j)
			}
			buf = append(buf, Edge{U: u, V: v})
		}
	}
	return NewWithOptions(buf, Options{MinOrder: n}), nil
}

// FromEdgeIndex builds a CSR from two parallel id arrays of equal length,
// source in src[i] and target in dst[i].
func FromEdgeIndex[T Integer](src, dst []T) (*CSR, error) {
	n := min(len(src), len(dst))
	buf := make([]Edge, 0, n)
	for i := 0; i < n; i++ {
		u, ok := toVertex(src[i])
		if !ok {
			return nil, fmt.Errorf("%w: src[%d]", ErrIndexOverflow, i)
		}
		v, ok := toVertex(dst[i])
		if !ok {
			return nil, fmt.Errorf("%w: dst[%d]", ErrIndexOverflow, i)
		}
		buf = append(buf, Edge{U: u, V: v})
	}
	return New(buf), nil
}

// FromEdgesChunked builds a CSR from a fallible edge sequence without ever
// buffering more than edgesPerChunk edges: each full chunk becomes a partial
// CSR that is unioned into the accumulator. Zero or negative edgesPerChunk
// selects DefaultEdgesPerChunk.
func FromEdgesChunked(edgesPerChunk int, seq iter.Seq2[Edge, error]) (*CSR, error) {
	if edgesPerChunk <= 0 {
		edgesPerChunk = DefaultEdgesPerChunk
	}
	acc := Empty()
	buf := make([]Edge, 0, min(edgesPerChunk, 1<<20))
	flush := func() {
		if len(buf) > 0 {
			acc = acc.Union(New(buf))
			buf = buf[:0]
		}
	}
	for e, err := range seq {
		if err != nil {
			return nil, err
		}
		buf = append(buf, e)
		if len(buf) >= edgesPerChunk {
			flush()
		}
	}
	flush()
	return acc, nil
}
