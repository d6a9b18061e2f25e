package csrzip

import (
	"slices"
	"sync/atomic"
)

// Options tunes CSR construction. The zero value asks for one worker per CPU
// and no padding beyond the largest vertex id on either side of an edge.
type Options struct {
	// Workers caps the number of OS threads construction may occupy.
	// Zero or negative means runtime.NumCPU().
	Workers int

	// MinOrder pads the offset array so the graph has at least this many
	// vertices even when the trailing ones have no outgoing edges.
	MinOrder int
}

// sourceRun records one leaf's contribution: a source vertex and the number
// of blob bytes its encoded neighbour list occupies.
type sourceRun struct {
	u      uint32
	nbytes int
}

// buildCSR sorts the edge buffer in place, partitions it by source with a
// divide-and-conquer pass, encodes each source's deduplicated neighbour list
// and assembles the offset array. The buffer is clobbered by the sort.
func buildCSR(edges []Edge, opt Options) *CSR {
	workers := defaultWorkers(opt.Workers)
	sortEdges(edges, workers)

	var numEdges atomic.Int64
	fj := newForkJoin(workers)
	runs, blob := encodeRuns(edges, &numEdges, fj)
	blob = slices.Clip(blob)

	// Targets count as vertices too, so [(0,3)] yields an order-4 graph with
	// three trailing vertices that have no outgoing edges.
	order := opt.MinOrder
	if len(runs) > 0 {
		if m := int(runs[len(runs)-1].u) + 1; m > order {
			order = m
		}
	}
	if m := maxTarget(edges, workers) + 1; m > order {
		order = m
	}

	nnz := make([]int, order)
	for _, r := range runs {
		nnz[r.u] = r.nbytes
	}

	return &CSR{
		offsets:  exclusiveSum(nnz, workers),
		blob:     blob,
		numEdges: int(numEdges.Load()),
	}
}

// encodeRuns recursively splits the sorted buffer at a source boundary and
// processes the halves in parallel. A slice that cannot be split holds a
// single source and becomes a leaf.
func encodeRuns(edges []Edge, numEdges *atomic.Int64, fj *forkJoin) ([]sourceRun, []byte) {
	if len(edges) == 0 {
		return nil, nil
	}
	i := splitIndex(edges)
	if i < 0 {
		return encodeLeaf(edges, numEdges)
	}

	var leftRuns, rightRuns []sourceRun
	var leftBlob, rightBlob []byte
	fj.do(
		func() { leftRuns, leftBlob = encodeRuns(edges[:i+1], numEdges, fj) },
		func() { rightRuns, rightBlob = encodeRuns(edges[i+1:], numEdges, fj) },
	)
	return append(leftRuns, rightRuns...), append(leftBlob, rightBlob...)
}

// splitIndex finds an index i with edges[i].U != edges[i+1].U, preferring one
// near the midpoint. It scans windows that expand around the midpoint by
// powers of two and falls back to the whole slice, returning -1 only when
// every edge shares one source. The expanding search keeps the recursion
// balanced on power-law degree distributions, where a single hub source can
// cover most of a slice.
func splitIndex(edges []Edge) int {
	mid := len(edges) / 2
	for k := uint(0); ; k++ {
		offset := 1 << k
		start := mid - offset
		end := mid + offset
		last := false
		if start < 1 || end >= len(edges) {
			start, end = 0, len(edges)
			last = true
		}
		for i := start; i+1 < end; i++ {
			if edges[i].U != edges[i+1].U {
				return i
			}
		}
		if last {
			return -1
		}
	}
}

// maxTarget is a parallel max-reduce over the target ids, -1 for an empty
// buffer.
func maxTarget(edges []Edge, workers int) int {
	if len(edges) == 0 {
		return -1
	}
	chunk := max(1, (len(edges)+workers-1)/workers)
	numChunks := (len(edges) + chunk - 1) / chunk
	partial := make([]uint32, numChunks)
	parallelFor(numChunks, workers, func(lo, hi int) {
		for ci := lo; ci < hi; ci++ {
			m := uint32(0)
			for _, e := range edges[ci*chunk : min((ci+1)*chunk, len(edges))] {
				m = max(m, e.V)
			}
			partial[ci] = m
		}
	})
	m := uint32(0)
	for _, p := range partial {
		m = max(m, p)
	}
	return int(m)
}

// encodeLeaf deduplicates and encodes the neighbour list of a single source.
func encodeLeaf(edges []Edge, numEdges *atomic.Int64) ([]sourceRun, []byte) {
	targets := dedupTargets(make([]uint32, 0, len(edges)), edges)
	blob := Encode(make([]byte, 0, len(targets)+4), edges[0].U, targets)
	numEdges.Add(int64(len(targets)))
	return []sourceRun{{u: edges[0].U, nbytes: len(blob)}}, blob
}
