// Package mt implements a small Mersenne-twister pseudo-random generator.
//
// Each worker thread owns its own Twister: the generator itself must never
// be a point of cross-thread contention, since contention would perturb the
// timing the harness is trying to control. Given the same seed the sequence
// is fully reproducible, which is what makes failing trials replayable.
package mt

const (
	bufLen = 624
	offset = 397

	// warmup discards enough of the initial state that the trivial
	// fill-with-seed initialization no longer shows.
	warmup = bufLen * 100
)

// Twister is a seeded pseudo-random generator. Not safe for concurrent use;
// one instance per thread.
type Twister struct {
	buf [bufLen]uint32
	idx int
}

// New returns a generator seeded deterministically with seed.
func New(seed uint32) *Twister {
	t := &Twister{}
	t.Reseed(seed)
	return t
}

// Reseed resets the generator state deterministically. Two generators
// reseeded with the same value produce identical sequences.
func (t *Twister) Reseed(seed uint32) {
	for i := range t.buf {
		t.buf[i] = seed
	}
	t.idx = 0
	for i := 0; i < warmup; i++ {
		t.Next()
	}
}

// Next advances the state and returns the next value.
func (t *Twister) Next() uint32 {
	i := t.idx
	i2 := t.idx + 1
	if i2 >= bufLen {
		i2 = 0
	}
	j := t.idx + offset
	if j >= bufLen {
		j -= bufLen
	}

	s := (t.buf[i] & 0x80000000) | (t.buf[i2] & 0x7fffffff)
	r := t.buf[j] ^ (s >> 1) ^ ((s & 1) * 0x9908b0df)
	t.buf[t.idx] = r
	t.idx = i2

	r ^= r >> 11
	r ^= (r << 7) & 0x9d2c5680
	r ^= (r << 15) & 0xefc60000
	r ^= r >> 18
	return r
}

// IndexIn returns a pseudo-random index in [0, n).
func (t *Twister) IndexIn(n int) int {
	return int(t.Next() % uint32(n))
}
