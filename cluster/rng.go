package cluster

import "math/rand"

// defaultSeed replaces a zero Options.Seed.
const defaultSeed int64 = 1

// deriveSeed mixes a base seed with a stream id using the SplitMix64
// finalizer, so that start s of a fit gets the same stream whatever the
// number of starts or the order in which they run.
func deriveSeed(base int64, stream uint64) int64 {
	if base == 0 {
		base = defaultSeed
	}
	x := uint64(base) ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31

	return int64(x)
}

// startRNG is the stream used by restart s.
func startRNG(seed int64, s int) *rand.Rand {
	return rand.New(rand.NewSource(deriveSeed(seed, uint64(s))))
}
