package refsim

import (
	"hash/fnv"
	"math/rand"
)

// DefaultSeed is used when a World is constructed without an explicit root
// seed (NewWorld).
const DefaultSeed = "refsim-default"

// RNGFactory produces a deterministic RNG for a labeled subsystem. A fresh
// RNG is derived from (rootSeed, label) on demand rather than persisted
// across steps, so CopyInto only has to carry the seed itself for every
// replica to draw identical sequences from the same label.
type RNGFactory func(rootSeed, label string) *rand.Rand

// DeterministicSeedValue derives a non-zero int64 seed from rootSeed and
// label so unrelated subsystems never collide on the same sequence.
func DeterministicSeedValue(rootSeed, label string) int64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(rootSeed))
	hasher.Write([]byte{0})
	hasher.Write([]byte(label))
	sum := hasher.Sum64()
	if sum == 0 {
		sum = 1
	}
	return int64(sum)
}

// NewDeterministicRNG is the default RNGFactory.
func NewDeterministicRNG(rootSeed, label string) *rand.Rand {
	return rand.New(rand.NewSource(DeterministicSeedValue(rootSeed, label)))
}
