package csrzip

import (
	"math"
	"math/rand/v2"
	"slices"
)

// Adj is one sampled bipartite layer: Dst[i] and Src[i] are local ids of the
// input vertex and its sampled neighbour, and Size is (frontier length,
// input length). Local ids index into the frontier the layer produced.
type Adj struct {
	Src  []uint32
	Dst  []uint32
	Size [2]int
}

// GraphSageSampler draws layered neighbourhood samples for mini-batch
// training. Each layer samples up to sizes[l] neighbours per frontier vertex
// with Algorithm L reservoir sampling, then renumbers the touched vertices
// into a dense local space.
//
// Sampling is randomised per worker; two calls with identical inputs draw
// different neighbourhoods.
type GraphSageSampler struct {
	csr     *CSR
	sizes   []int
	workers int
}

// NewGraphSageSampler returns a sampler over g with the per-hop fan-out
// schedule sizes.
func NewGraphSageSampler(g *CSR, sizes []int) *GraphSageSampler {
	return &GraphSageSampler{csr: g, sizes: sizes, workers: defaultWorkers(0)}
}

// Sample expands the seed batch through every scheduled hop. It returns the
// final frontier, the seed count, and one Adj per hop ordered deepest first,
// so adjs[0] is the layer farthest from the seeds.
//
// Duplicate seeds keep distinct local ids: input ids are positional. An empty
// schedule returns the seeds unchanged with no layers.
func (s *GraphSageSampler) Sample(seeds []uint32) (nodes []uint32, batchSize int, adjs []Adj) {
	nodes = slices.Clone(seeds)
	batchSize = len(nodes)
	adjs = make([]Adj, 0, len(s.sizes))

	for _, k := range s.sizes {
		outs, counts := s.sampleKernel(nodes, k)
		frontier, dst, src := reindex(nodes, outs, counts)
		adjs = append(adjs, Adj{Src: src, Dst: dst, Size: [2]int{len(frontier), len(nodes)}})
		nodes = frontier
	}

	slices.Reverse(adjs)
	return nodes, batchSize, adjs
}

// sampleKernel samples up to k neighbours of every input in parallel,
// returning the concatenated samples and the per-input counts. Output order
// follows input order regardless of scheduling.
func (s *GraphSageSampler) sampleKernel(inputs []uint32, k int) ([]uint32, []int) {
	perInput := make([][]uint32, len(inputs))
	parallelFor(len(inputs), s.workers, func(lo, hi int) {
		rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		for i := lo; i < hi; i++ {
			dec := NewDecoder(inputs[i], s.csr.listBytes(inputs[i]))
			perInput[i] = reservoirSample(rng, &dec, k)
		}
	})

	counts := make([]int, len(inputs))
	total := 0
	for i, ns := range perInput {
		counts[i] = len(ns)
		total += len(ns)
	}
	outs := make([]uint32, 0, total)
	for _, ns := range perInput {
		outs = append(outs, ns...)
	}
	return outs, counts
}

// reservoirSample draws up to k neighbours uniformly without replacement
// using Li's Algorithm L: once the reservoir is full it computes how many
// items to skip before the next replacement instead of rolling per item.
func reservoirSample(rng *rand.Rand, dec *Decoder, k int) []uint32 {
	if k <= 0 {
		return nil
	}
	res := make([]uint32, 0, k)
	for len(res) < k {
		v, ok := dec.Next()
		if !ok {
			return res
		}
		res = append(res, v)
	}

	w := math.Exp(math.Log(openUnit(rng)) / float64(k))
	for {
		skip := skipCount(openUnit(rng), w)
		var v uint32
		var ok bool
		for j := 0; j <= skip; j++ {
			v, ok = dec.Next()
			if !ok {
				return res
			}
		}
		res[rng.IntN(k)] = v
		w *= math.Exp(math.Log(openUnit(rng)) / float64(k))
	}
}

// skipCount is floor(ln(u) / ln(1-w)), clamped so an astronomically small w
// cannot overflow the conversion; the decoder runs dry long before the clamp
// matters.
func skipCount(u, w float64) int {
	f := math.Floor(math.Log(u) / math.Log1p(-w))
	if f >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

// openUnit draws from the open interval (0, 1).
func openUnit(rng *rand.Rand) float64 {
	for {
		u := rng.Float64()
		if u > 0 {
			return u
		}
	}
}

// reindex assigns dense local ids to the vertices of one layer: inputs first,
// positionally, then sampled outputs in first-seen order. It returns the
// frontier plus the per-edge (dst, src) local id pairs. An output that equals
// an input resolves to that input's last-assigned id.
func reindex(inputs, outs []uint32, counts []int) (frontier, dst, src []uint32) {
	local := make(map[uint32]uint32, len(inputs)+len(outs))
	frontier = make([]uint32, 0, len(inputs)+len(outs))

	next := uint32(0)
	for _, in := range inputs {
		local[in] = next
		next++
		frontier = append(frontier, in)
	}
	for _, out := range outs {
		if _, ok := local[out]; !ok {
			local[out] = next
			next++
			frontier = append(frontier, out)
		}
	}

	dst = make([]uint32, 0, len(outs))
	src = make([]uint32, 0, len(outs))
	pos := 0
	for i := range inputs {
		for j := 0; j < counts[i]; j++ {
			dst = append(dst, uint32(i))
			src = append(src, local[outs[pos]])
			pos++
		}
	}
	return frontier, dst, src
}
