package csrzip

import (
	"math"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// atomicAddFloat64 adds y to an IEEE-754 bit pattern held in a 64-bit atomic.
// Relaxed-style ordering is enough: the accumulators are only read after the
// propagation pass has joined.
func atomicAddFloat64(x *atomic.Uint64, y float64) {
	for {
		old := x.Load()
		sum := math.Float64bits(math.Float64frombits(old) + y)
		if x.CompareAndSwap(old, sum) {
			return
		}
	}
}

// propagation carries the read-only state of one access-probability pass.
type propagation struct {
	incoming  *CSR
	threshold int
	inDegree  []int
	outDegree []int
	p         []atomic.Uint64
}

// visit walks the reversed graph from v, spreading weight according to the
// remaining fan-out schedule. High-degree vertices are pruned on both sides
// of the arc: a popular v stops the walk, a popular u is skipped because its
// rank is forced to the front later anyway.
func (pr *propagation) visit(v uint32, weight float64, sizes []int) {
	if len(sizes) == 0 {
		return
	}
	k := sizes[0]
	if pr.inDegree[v] >= pr.threshold {
		return
	}
	contrib := weight * float64(k) / float64(max(pr.inDegree[v], k))
	for u := range pr.incoming.Adj(v) {
		if pr.outDegree[u] >= pr.threshold {
			continue
		}
		atomicAddFloat64(&pr.p[u], contrib)
		pr.visit(u, contrib, sizes[1:])
	}
}

// AccessProbabilities estimates, for every vertex, the expected number of
// times it is touched when the vertices marked in trainIdx are sampled on
// the reversed graph with the given fan-out schedule. Vertices whose
// out-degree reaches ceil(sqrt(order)) get math.MaxFloat64 so a descending
// sort pins them to the front; training vertices carry their 1.0 seed.
//
// The low-order bits of the result depend on scheduling, since floating-point
// accumulation is not associative across interleavings.
func AccessProbabilities(g *CSR, trainIdx []bool, sizes []int) []float64 {
	order := g.Order()
	incoming := g.Reverse()
	threshold := int(math.Ceil(math.Sqrt(float64(order))))

	outDegree := make([]int, order)
	inDegree := make([]int, order)
	workers := defaultWorkers(0)
	parallelFor(order, workers, func(lo, hi int) {
		for v := lo; v < hi; v++ {
			outDegree[v] = g.Degree(uint32(v))
			inDegree[v] = incoming.Degree(uint32(v))
		}
	})

	pr := &propagation{
		incoming:  incoming,
		threshold: threshold,
		inDegree:  inDegree,
		outDegree: outDegree,
		p:         make([]atomic.Uint64, order),
	}

	// Per-seed walk cost is wildly uneven, so the ranges grow exponentially:
	// plenty of small units keep every worker busy while the tail stays
	// coarse enough not to drown the scheduler.
	var eg errgroup.Group
	eg.SetLimit(workers)
	n := min(order, len(trainIdx))
	exponentialChunks(n, 64, func(lo, hi int) {
		eg.Go(func() error {
			for v := lo; v < hi; v++ {
				if trainIdx[v] {
					pr.visit(uint32(v), 1.0, sizes)
				}
			}
			return nil
		})
	})
	_ = eg.Wait()

	probs := make([]float64, order)
	for v := range probs {
		if outDegree[v] >= threshold {
			probs[v] = math.MaxFloat64
			continue
		}
		probs[v] = math.Float64frombits(pr.p[v].Load())
		if v < len(trainIdx) && trainIdx[v] {
			probs[v] += 1.0
		}
	}
	return probs
}

// ByAccessProbabilities reorders the graph so vertices likely to be touched
// during sampled training sit at the front. It returns the reordered CSR and
// the applied permutation, perm[old] = new. Ties rank deterministically under
// the IEEE total order once the probabilities are fixed.
func ByAccessProbabilities(g *CSR, trainIdx []bool, sizes []int) (*CSR, []uint32) {
	order := g.Order()
	probs := AccessProbabilities(g, trainIdx, sizes)

	inds := make([]int, order)
	floats.Argsort(probs, inds)

	perm := make([]uint32, order)
	for rank := 0; rank < order; rank++ {
		perm[inds[order-1-rank]] = uint32(rank)
	}
	return g.Reorder(perm), perm
}
