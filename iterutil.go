package csrzip

// mergeUnion appends the sorted set-union of two neighbour streams to dst.
// Both decoders must yield strictly increasing values, which builder-produced
// lists always do.
func mergeUnion(dst []uint32, a, b *Decoder) []uint32 {
	x, okx := a.Next()
	y, oky := b.Next()
	for okx && oky {
		switch {
		case x < y:
			dst = append(dst, x)
			x, okx = a.Next()
		case x > y:
			dst = append(dst, y)
			y, oky = b.Next()
		default:
			dst = append(dst, x)
			x, okx = a.Next()
			y, oky = b.Next()
		}
	}
	for okx {
		dst = append(dst, x)
		x, okx = a.Next()
	}
	for oky {
		dst = append(dst, y)
		y, oky = b.Next()
	}
	return dst
}

// dedupTargets appends the target of every edge in a single-source run,
// skipping consecutive duplicates. The run must be sorted.
func dedupTargets(dst []uint32, edges []Edge) []uint32 {
	for i, e := range edges {
		if i > 0 && e.V == edges[i-1].V {
			continue
		}
		dst = append(dst, e.V)
	}
	return dst
}

// exponentialChunks calls fn over [0, n) in ranges that double from initial,
// so the scheduler sees many cheap ranges up front and few large ones at the
// tail. fn must tolerate being called sequentially.
func exponentialChunks(n, initial int, fn func(lo, hi int)) {
	if initial < 1 {
		initial = 1
	}
	k := initial
	for lo := 0; lo < n; {
		hi := lo + k
		if hi >= n {
			hi = n
		} else {
			k *= 2
		}
		fn(lo, hi)
		lo = hi
	}
}
