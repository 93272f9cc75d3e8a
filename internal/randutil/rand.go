package randutil

import rand "math/rand/v2"

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// The helper centralises how we derive the two 64-bit seeds required by rand/v2
// so that all call sites get reproducible sequences.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// ForIndex returns a *rand.Rand for the item at the given global index within
// a batch identified by masterSeed. Two calls with the same (masterSeed,
// index) always produce the same stream, independent of batch size, shard
// count, or the order in which shards are scheduled — callers that fan work
// out across goroutines key each unit of work by its global index rather
// than by shard number so the split into shards cannot change the draws.
func ForIndex(masterSeed int64, index uint64) *rand.Rand {
	return New(masterSeed ^ int64(mix(index)))
}
