package csrzip

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// -----------------------------------------------------------------------------
// Gap head
// -----------------------------------------------------------------------------

// TestGapHeadForwardSmall covers a single neighbour above the source with a
// gap that fits in the first byte.
func TestGapHeadForwardSmall(t *testing.T) {
	buf := Encode(nil, 3, []uint32{5})
	assert.Equal(t, []byte{0x02}, buf)
	assertCodecRoundTrip(t, 3, []uint32{5})
}

// TestGapHeadBackwardSmall covers a neighbour below the source: sign bit set.
func TestGapHeadBackwardSmall(t *testing.T) {
	buf := Encode(nil, 5, []uint32{2})
	assert.Equal(t, []byte{0x43}, buf)
	assertCodecRoundTrip(t, 5, []uint32{2})
}

// TestGapHeadSignBit checks bit 0x40 is set exactly when target < source.
func TestGapHeadSignBit(t *testing.T) {
	cases := []struct {
		source, target uint32
		negative       bool
	}{
		{0, 0, false},
		{7, 7, false},
		{10, 200, false},
		{200, 10, true},
		{1 << 31, 0, true},
		{0, ^uint32(0), false},
	}
	for _, tc := range cases {
		buf := Encode(nil, tc.source, []uint32{tc.target})
		assert.Equal(t, tc.negative, buf[0]&0x40 != 0,
			"source=%d target=%d", tc.source, tc.target)
		assertCodecRoundTrip(t, tc.source, []uint32{tc.target})
	}
}

// TestGapHeadContinuation verifies the 7-bit little-endian continuation
// chunks and the five-byte worst case.
func TestGapHeadContinuation(t *testing.T) {
	assert := assert.New(t)

	t.Run("singleByteBoundary", func(t *testing.T) {
		// Gap 63 is the largest single-byte head.
		assert.Len(Encode(nil, 0, []uint32{63}), 1)
		assert.Len(Encode(nil, 0, []uint32{64}), 2)
	})

	t.Run("maxGap", func(t *testing.T) {
		// Gap 2^32-1 needs the low six bits plus four continuation chunks.
		buf := Encode(nil, 0, []uint32{^uint32(0)})
		assert.Len(buf, 5)
		assert.NotZero(buf[0] & 0x80)
		assert.NotZero(buf[1] & 0x80)
		assert.NotZero(buf[2] & 0x80)
		assert.NotZero(buf[3] & 0x80)
		assert.Zero(buf[4] & 0x80)
		assertCodecRoundTrip(t, 0, []uint32{^uint32(0)})
	})
}

// -----------------------------------------------------------------------------
// Run groups
// -----------------------------------------------------------------------------

// TestRunGroupWidthOne checks the layout for 64 consecutive ids: a one-byte
// gap head, then a single group of 63 width-1 deltas.
func TestRunGroupWidthOne(t *testing.T) {
	assert := assert.New(t)

	s := uint32(100)
	targets := make([]uint32, 64)
	for i := range targets {
		targets[i] = s + uint32(i) + 1
	}
	buf := Encode(nil, s, targets)

	assert.Equal(65, len(buf))
	assert.Equal(byte(0x01), buf[0], "gap head delta 1")
	assert.Equal(byte(62)<<2|0x00, buf[1], "run of 63, width 1")
	for _, b := range buf[2:] {
		assert.Equal(byte(1), b)
	}
	assertCodecRoundTrip(t, s, targets)
}

// TestRunGroupSplitsAt64 checks that a 65th same-width delta opens a second
// group.
func TestRunGroupSplitsAt64(t *testing.T) {
	s := uint32(0)
	targets := make([]uint32, 66)
	for i := range targets {
		targets[i] = s + uint32(i) + 1
	}
	buf := Encode(nil, s, targets)

	// head (1) + header (1) + 64 deltas + header (1) + 1 delta
	assert.Equal(t, 68, len(buf))
	assert.Equal(t, byte(63)<<2, buf[1])
	assert.Equal(t, byte(0), buf[66])
	assertCodecRoundTrip(t, s, targets)
}

// TestRunGroupWidths exercises every width class and the big-endian payload
// order.
func TestRunGroupWidths(t *testing.T) {
	assert := assert.New(t)

	t.Run("widthTwo", func(t *testing.T) {
		buf := Encode(nil, 0, []uint32{1, 1 + 0x1234})
		assert.Equal([]byte{0x01, 0x01, 0x12, 0x34}, buf)
	})

	t.Run("widthThree", func(t *testing.T) {
		buf := Encode(nil, 0, []uint32{1, 1 + 0x123456})
		assert.Equal([]byte{0x01, 0x02, 0x12, 0x34, 0x56}, buf)
	})

	t.Run("widthFour", func(t *testing.T) {
		buf := Encode(nil, 0, []uint32{1, 1 + 0x12345678})
		assert.Equal([]byte{0x01, 0x03, 0x12, 0x34, 0x56, 0x78}, buf)
	})

	t.Run("classBoundaries", func(t *testing.T) {
		assert.Equal(1, deltaWidth(0))
		assert.Equal(1, deltaWidth(255))
		assert.Equal(2, deltaWidth(256))
		assert.Equal(2, deltaWidth(65535))
		assert.Equal(3, deltaWidth(65536))
		assert.Equal(3, deltaWidth(1<<24-1))
		assert.Equal(4, deltaWidth(1<<24))
		assert.Equal(4, deltaWidth(^uint32(0)))
	})
}

// TestRunGroupMixedWidths verifies a width change closes the current group.
func TestRunGroupMixedWidths(t *testing.T) {
	targets := []uint32{10, 11, 12, 12 + 300, 12 + 301, 12 + 301 + 70000}
	buf := Encode(nil, 0, targets)

	// head(10) + [1,1] w1 + [300] w2 + [1] w1 + [70000] w3
	want := []byte{
		0x0a,
		byte(1)<<2 | 0x00, 0x01, 0x01,
		byte(0)<<2 | 0x01, 0x01, 0x2c,
		byte(0)<<2 | 0x00, 0x01,
		byte(0)<<2 | 0x02, 0x01, 0x11, 0x70,
	}
	assert.Equal(t, want, buf)
	assertCodecRoundTrip(t, 0, targets)
}

// TestEncodeEmpty verifies an empty list produces no bytes and Count agrees.
func TestEncodeEmpty(t *testing.T) {
	assert.Empty(t, Encode(nil, 42, nil))
	assert.Equal(t, 0, Count(42, nil))
}

// TestEncodeAppends verifies Encode extends the caller's buffer in place.
func TestEncodeAppends(t *testing.T) {
	buf := Encode(nil, 3, []uint32{5})
	buf = Encode(buf, 7, []uint32{8, 9})
	assert.Equal(t, byte(0x02), buf[0])
	got := appendDecoded(nil, 7, buf[1:])
	assert.Equal(t, []uint32{8, 9}, got)
}

// TestEncodeNonMonotonePanics documents the precondition.
func TestEncodeNonMonotonePanics(t *testing.T) {
	assert.Panics(t, func() { Encode(nil, 0, []uint32{5, 5}) })
	assert.Panics(t, func() { Encode(nil, 0, []uint32{5, 4}) })
	assert.Panics(t, func() { Encode(nil, 0, []uint32{1, 2, 3, 4, 5, 6, 7, 3}) })
}

// -----------------------------------------------------------------------------
// Count
// -----------------------------------------------------------------------------

// TestCountMatchesDecode checks Count against full decodes across shapes
// that cover every header path.
func TestCountMatchesDecode(t *testing.T) {
	cases := [][]uint32{
		{0},
		{1 << 30},
		{5, 6, 7, 8},
		genNeighbours(1, 200),
		genNeighbours(1000, 64),
		genNeighbours(1<<20, 3),
	}
	for _, targets := range cases {
		buf := Encode(nil, 17, targets)
		assert.Equal(t, len(targets), Count(17, buf))
	}
}

// -----------------------------------------------------------------------------
// Round trips
// -----------------------------------------------------------------------------

// TestDecodeSeqEarlyStop verifies the lazy sequence honours yield=false.
func TestDecodeSeqEarlyStop(t *testing.T) {
	buf := Encode(nil, 0, []uint32{1, 2, 3, 4, 5})
	var got []uint32
	for v := range Decode(0, buf) {
		got = append(got, v)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []uint32{1, 2}, got)
}

// TestCodecRoundTripRandom round-trips pseudo-random sorted lists of varying
// density so all four widths appear. A list stops short of n ids when the
// next id would pass the 32-bit id space.
func TestCodecRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, n := range []int{1, 2, 63, 64, 65, 128, 1000} {
		for _, maxStep := range []uint32{1, 7, 1 << 9, 1 << 17, 1 << 25} {
			targets := make([]uint32, 0, n)
			cur := uint32(rng.Intn(1000))
			for len(targets) < n {
				next := uint64(cur) + uint64(rng.Int63n(int64(maxStep))) + 1
				if next > uint64(^uint32(0)) {
					break
				}
				cur = uint32(next)
				targets = append(targets, cur)
			}
			source := rng.Uint32()
			assertCodecRoundTrip(t, source, targets)
		}
	}
}

// TestCodecRoundTripProperty is the rapid form of the round-trip invariant:
// any sorted deduplicated list survives encode/decode for any source, and
// Count reports its length.
func TestCodecRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		source := rapid.Uint32().Draw(rt, "source")
		raw := rapid.SliceOfN(rapid.Uint32(), 0, 300).Draw(rt, "targets")
		slices.Sort(raw)
		targets := slices.Compact(raw)

		buf := Encode(nil, source, targets)
		got := appendDecoded(nil, source, buf)
		if len(targets) == 0 {
			if len(got) != 0 {
				rt.Fatalf("empty list decoded to %v", got)
			}
		} else if !slices.Equal(targets, got) {
			rt.Fatalf("round trip mismatch: want %v, got %v", targets, got)
		}
		if c := Count(source, buf); c != len(targets) {
			rt.Fatalf("Count = %d, want %d", c, len(targets))
		}
	})
}

// -----------------------------------------------------------------------------
// Helpers and benchmarks
// -----------------------------------------------------------------------------

// genNeighbours generates n strictly increasing ids with the given step.
func genNeighbours(step uint32, n int) []uint32 {
	out := make([]uint32, n)
	cur := uint32(0)
	for i := range out {
		cur += step
		out[i] = cur
	}
	return out
}

func assertCodecRoundTrip(t *testing.T, source uint32, targets []uint32) []byte {
	t.Helper()
	buf := Encode(nil, source, targets)
	got := appendDecoded(make([]uint32, 0, len(targets)), source, buf)
	assert.Equal(t, len(targets), len(got), "length mismatch")
	assert.Equal(t, targets, got)
	assert.Equal(t, len(targets), Count(source, buf))
	return buf
}

var (
	resultBytes []byte
	resultU32   []uint32
)

func BenchmarkEncode(b *testing.B) {
	targets := genNeighbours(3, 4096)
	dst := make([]byte, 0, 8192)
	b.ReportAllocs()
	for range b.N {
		dst = Encode(dst[:0], 0, targets)
	}
	resultBytes = dst
}

func BenchmarkDecode(b *testing.B) {
	buf := Encode(nil, 0, genNeighbours(3, 4096))
	dst := make([]uint32, 0, 4096)
	b.ReportAllocs()
	for range b.N {
		dst = appendDecoded(dst[:0], 0, buf)
	}
	resultU32 = dst
}

func BenchmarkCount(b *testing.B) {
	buf := Encode(nil, 0, genNeighbours(3, 4096))
	b.ReportAllocs()
	var n int
	for range b.N {
		n = Count(0, buf)
	}
	if n != 4096 {
		b.Fatal("bad count")
	}
}
