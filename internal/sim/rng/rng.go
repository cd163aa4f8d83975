// Package rng provides the deterministic seeded stream generator used for
// market volatility. Streams are keyed by an arbitrary string; the same
// seed string yields the same infinite float sequence on every platform.
package rng

// Hash128 maps a seed string to 128 bits of generator state (cyrb128).
// Order-sensitive and avalanching: nearby inputs diverge immediately.
func Hash128(s string) [4]uint32 {
	h1 := uint32(1779033703)
	h2 := uint32(3144134277)
	h3 := uint32(1013904242)
	h4 := uint32(2773480762)
	for i := 0; i < len(s); i++ {
		k := uint32(s[i])
		h1 = h2 ^ ((h1 + k) * 2315273531)
		h2 = h3 ^ ((h2 + k) * 1634863923)
		h3 = h4 ^ ((h3 + k) * 580287103)
		h4 = h1 ^ ((h4 + k) * 1251391191)
	}
	return [4]uint32{h1, h2, h3, h4}
}

// Stream is a small-state counter-based generator (sfc32). The state
// transition is pure 32-bit integer arithmetic; floats appear only at the
// output boundary.
type Stream struct {
	a, b, c, d uint32
}

// New seeds a stream from an arbitrary string.
func New(seed string) *Stream {
	h := Hash128(seed)
	return &Stream{a: h[0], b: h[1], c: h[2], d: h[3]}
}

// Float64 returns the next value in [0, 1).
func (s *Stream) Float64() float64 {
	t := s.a + s.b
	s.a = s.b ^ (s.b >> 9)
	s.b = s.c + (s.c << 3)
	s.c = (s.c << 21) | (s.c >> 11)
	s.d++
	t += s.d
	s.c += t
	return float64(t) / 4294967296.0
}

// Skip discards n outputs, advancing the stream to a known position.
func (s *Stream) Skip(n int) {
	for i := 0; i < n; i++ {
		s.Float64()
	}
}
