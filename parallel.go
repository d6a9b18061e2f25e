package csrzip

import (
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// The package keeps no process-wide pool. Every construction call owns a
// forkJoin sized to its worker count, so two concurrent builds never contend
// on shared scheduling state.

// forkJoin bounds the number of extra goroutines a divide-and-conquer pass
// may spawn. The semaphore holds workers-1 tokens: when none is available the
// fork degrades to sequential execution on the calling goroutine.
type forkJoin struct {
	sem chan struct{}
}

func newForkJoin(workers int) *forkJoin {
	if workers < 1 {
		workers = 1
	}
	return &forkJoin{sem: make(chan struct{}, workers-1)}
}

// do runs a and b, concurrently when a worker token is available.
func (f *forkJoin) do(a, b func()) {
	select {
	case f.sem <- struct{}{}:
		done := make(chan struct{})
		go func() {
			defer close(done)
			defer func() { <-f.sem }()
			b()
		}()
		a()
		<-done
	default:
		a()
		b()
	}
}

// defaultWorkers resolves a caller-specified thread count, zero meaning one
// worker per CPU.
func defaultWorkers(workers int) int {
	if workers <= 0 {
		return runtime.NumCPU()
	}
	return workers
}

// parallelFor runs fn over [0, n) split into contiguous ranges, at most
// workers at a time. Ranges are oversubscribed four to one so stragglers do
// not serialise the tail.
func parallelFor(n, workers int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	workers = defaultWorkers(workers)
	if workers == 1 || n < 2 {
		fn(0, n)
		return
	}
	chunk := (n + workers*4 - 1) / (workers * 4)
	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}

// exclusiveSum computes the exclusive prefix sum of counts: the result has
// len(counts)+1 entries, result[0] == 0 and result[len(counts)] is the total.
// Large inputs are scanned in parallel with a per-chunk partial pass, a
// sequential scan over the chunk totals, and a parallel rewrite.
func exclusiveSum(counts []int, workers int) []int {
	out := make([]int, len(counts)+1)
	workers = defaultWorkers(workers)

	const serialCutoff = 1 << 14
	if len(counts) <= serialCutoff || workers == 1 {
		sum := 0
		for i, c := range counts {
			out[i] = sum
			sum += c
		}
		out[len(counts)] = sum
		return out
	}

	chunk := (len(counts) + workers - 1) / workers
	numChunks := (len(counts) + chunk - 1) / chunk
	totals := make([]int, numChunks)

	parallelFor(numChunks, workers, func(lo, hi int) {
		for ci := lo; ci < hi; ci++ {
			start := ci * chunk
			end := min(start+chunk, len(counts))
			sum := 0
			for i := start; i < end; i++ {
				out[i] = sum
				sum += counts[i]
			}
			totals[ci] = sum
		}
	})

	base := 0
	for ci := range totals {
		t := totals[ci]
		totals[ci] = base
		base += t
	}

	parallelFor(numChunks, workers, func(lo, hi int) {
		for ci := lo; ci < hi; ci++ {
			start := ci * chunk
			end := min(start+chunk, len(counts))
			for i := start; i < end; i++ {
				out[i] += totals[ci]
			}
		}
	})

	out[len(counts)] = base
	return out
}

// sortEdges sorts the buffer in lexicographic edge order with an unstable
// parallel merge sort. Small inputs fall through to the standard sort.
func sortEdges(edges []Edge, workers int) {
	workers = defaultWorkers(workers)
	const serialCutoff = 1 << 15
	if len(edges) <= serialCutoff || workers == 1 {
		slices.SortFunc(edges, compareEdges)
		return
	}
	scratch := make([]Edge, len(edges))
	fj := newForkJoin(workers)
	mergeSortEdges(edges, scratch, fj)
}

func mergeSortEdges(edges, scratch []Edge, fj *forkJoin) {
	const serialCutoff = 1 << 15
	if len(edges) <= serialCutoff {
		slices.SortFunc(edges, compareEdges)
		return
	}
	mid := len(edges) / 2
	fj.do(
		func() { mergeSortEdges(edges[:mid], scratch[:mid], fj) },
		func() { mergeSortEdges(edges[mid:], scratch[mid:], fj) },
	)
	mergeEdges(scratch, edges[:mid], edges[mid:])
	copy(edges, scratch)
}

func mergeEdges(dst, left, right []Edge) {
	i, j, k := 0, 0, 0
	for i < len(left) && j < len(right) {
		if left[i].key() <= right[j].key() {
			dst[k] = left[i]
			i++
		} else {
			dst[k] = right[j]
			j++
		}
		k++
	}
	k += copy(dst[k:], left[i:])
	copy(dst[k:], right[j:])
}
