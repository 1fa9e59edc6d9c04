package bloomset

import (
	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"
)

// Default seeds for the stock xxh3 hasher. Arbitrary odd constants; filters
// only interoperate when built with identical seeds.
const (
	defaultSeed1 uint64 = 0x9e3779b97f4a7c15
	defaultSeed2 uint64 = 0xc2b2ae3d27d4eb4f
)

// Hasher maps an item to a pair of independent 64-bit digests. All k probe
// positions for the item derive from this single pair, so only two hash
// passes (at most) are ever needed per operation.
//
// Implementations must be deterministic: the same input must always yield
// the same pair. Two filters agree on an item's positions, which merging
// and cross-process serialization both require, only when they were built
// with identical hashers.
type Hasher interface {
	// DigestPair returns two independent 64-bit digests of data.
	DigestPair(data []byte) (h1, h2 uint64)

	// DigestPairString is DigestPair for string keys. Implementations
	// should avoid the string-to-[]byte conversion where the underlying
	// hash permits it.
	DigestPairString(s string) (h1, h2 uint64)
}

// DefaultHasher returns the stock hasher: xxh3 with the package seeds.
func DefaultHasher() Hasher {
	return NewXXH3Hasher(defaultSeed1, defaultSeed2)
}

// XXH3Hasher derives the digest pair from two seeded xxh3 passes. It is
// the package default.
type XXH3Hasher struct {
	seed1, seed2 uint64
}

// NewXXH3Hasher creates an xxh3 pair hasher with explicit seeds. The seeds
// must differ for the digests to be independent.
func NewXXH3Hasher(seed1, seed2 uint64) XXH3Hasher {
	return XXH3Hasher{seed1: seed1, seed2: seed2}
}

// DigestPair returns two seeded xxh3 digests of data.
func (h XXH3Hasher) DigestPair(data []byte) (uint64, uint64) {
	return xxh3.HashSeed(data, h.seed1), xxh3.HashSeed(data, h.seed2)
}

// DigestPairString returns two seeded xxh3 digests of s without allocating.
func (h XXH3Hasher) DigestPairString(s string) (uint64, uint64) {
	return xxh3.HashStringSeed(s, h.seed1), xxh3.HashStringSeed(s, h.seed2)
}

// Murmur3Hasher derives the digest pair from a single seeded 128-bit
// murmur3 hash, split into its two halves.
type Murmur3Hasher struct {
	seed uint32
}

// NewMurmur3Hasher creates a murmur3 pair hasher with an explicit seed.
func NewMurmur3Hasher(seed uint32) Murmur3Hasher {
	return Murmur3Hasher{seed: seed}
}

// DigestPair returns the halves of the seeded 128-bit murmur3 digest of data.
func (h Murmur3Hasher) DigestPair(data []byte) (uint64, uint64) {
	return murmur3.Sum128WithSeed(data, h.seed)
}

// DigestPairString is DigestPair for string keys. Murmur3 has no string
// entry point, so this allocates for the conversion.
func (h Murmur3Hasher) DigestPairString(s string) (uint64, uint64) {
	return murmur3.Sum128WithSeed([]byte(s), h.seed)
}
