package bloomset

import (
	"iter"
	"math/bits"
)

// enhancedHashingMinK is the probe count above which plain double hashing
// produces noticeably clustered probe sequences. Past it, a quadratic term
// joins the position derivation.
const enhancedHashingMinK = 7

// Indexer derives k probe positions in [0, m) from a 64-bit digest pair
// using double hashing:
//
//	pos_i = (h1 + i*h2) mod m
//
// and, when k > 7, enhanced double hashing with an extra quadratic stride
// derived from h2:
//
//	pos_i = (h1 + i*h2 + i*i*aux) mod m
//
// Deriving all k positions from one digest pair avoids computing k
// independent hashes while keeping a near-uniform index distribution.
// Position derivation is independent of how the positions are stored.
type Indexer struct {
	m uint64
	k uint32
}

// NewIndexer creates an indexer for the given parameters.
func NewIndexer(p Params) Indexer {
	return Indexer{m: p.M, k: p.K}
}

// M returns the size of the position domain.
func (ix Indexer) M() uint64 { return ix.m }

// K returns the number of positions derived per digest pair.
func (ix Indexer) K() uint32 { return ix.k }

// Positions returns the k positions for the digest pair as a lazy
// sequence. The sequence is finite and recomputed on every range, so it
// may be iterated any number of times.
func (ix Indexer) Positions(h1, h2 uint64) iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		h2, aux := ix.strides(h2)
		for i := uint64(0); i < uint64(ix.k); i++ {
			if !yield(ix.position(h1, h2, aux, i)) {
				return
			}
		}
	}
}

// strides normalizes h2 and derives the quadratic stride. A zero h2 would
// probe the same position k times over.
func (ix Indexer) strides(h2 uint64) (uint64, uint64) {
	if h2 == 0 {
		h2 = 1
	}
	var aux uint64
	if ix.k > enhancedHashingMinK {
		aux = bits.RotateLeft64(h2, 21) | 1
	}
	return h2, aux
}

// position computes pos_i. The multiplications wrap mod 2^64, which is
// harmless: the final reduction mod m is all that determines the position.
func (ix Indexer) position(h1, h2, aux, i uint64) uint64 {
	return (h1 + i*h2 + i*i*aux) % ix.m
}
