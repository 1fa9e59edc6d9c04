package bloomset

import (
	"fmt"
	"math/bits"
	"sync/atomic"
)

// wordsForBits returns the number of 64-bit words needed to hold m bits.
func wordsForBits(m uint64) uint64 {
	return (m + 63) / 64
}

// BitStore is a fixed-size array of m single bits packed into 64-bit
// words. The valid position domain is exactly [0, m). It is not safe for
// concurrent use; AtomicBitStore provides the same surface for shared
// access.
type BitStore struct {
	words []uint64
	m     uint64
}

// NewBitStore creates a zeroed bit store with m positions.
func NewBitStore(m uint64) *BitStore {
	return &BitStore{words: make([]uint64, wordsForBits(m)), m: m}
}

// Len returns the number of bit positions.
func (s *BitStore) Len() uint64 { return s.m }

// Get reports whether the bit at pos is set.
func (s *BitStore) Get(pos uint64) bool {
	return s.words[pos>>6]&(1<<(pos&63)) != 0
}

// Set sets the bit at pos.
func (s *BitStore) Set(pos uint64) {
	s.words[pos>>6] |= 1 << (pos & 63)
}

// Clear clears the bit at pos.
func (s *BitStore) Clear(pos uint64) {
	s.words[pos>>6] &^= 1 << (pos & 63)
}

// CountSet returns the number of set bits.
func (s *BitStore) CountSet() uint64 {
	var n uint64
	for _, w := range s.words {
		n += uint64(bits.OnesCount64(w))
	}
	return n
}

// UnionWith ORs other into s element-wise. The stores must have identical
// lengths.
func (s *BitStore) UnionWith(other *BitStore) error {
	if s.m != other.m {
		return fmt.Errorf("%w: bit store lengths differ (%d vs %d)", ErrParameterMismatch, s.m, other.m)
	}
	for i, w := range other.words {
		s.words[i] |= w
	}
	return nil
}

// Reset clears every bit.
func (s *BitStore) Reset() {
	clear(s.words)
}

// Clone returns an independent copy of s.
func (s *BitStore) Clone() *BitStore {
	words := make([]uint64, len(s.words))
	copy(words, s.words)
	return &BitStore{words: words, m: s.m}
}

// AtomicBitStore is a BitStore safe for concurrent use. Every
// single-position operation is an atomic memory access; no store-wide lock
// exists. Multi-position sequences built on top of it (such as a filter
// insert) are not atomic as a whole.
type AtomicBitStore struct {
	words []atomic.Uint64
	m     uint64
}

// NewAtomicBitStore creates a zeroed atomic bit store with m positions.
func NewAtomicBitStore(m uint64) *AtomicBitStore {
	return &AtomicBitStore{words: make([]atomic.Uint64, wordsForBits(m)), m: m}
}

// Len returns the number of bit positions.
func (s *AtomicBitStore) Len() uint64 { return s.m }

// Get reports whether the bit at pos is set.
func (s *AtomicBitStore) Get(pos uint64) bool {
	return s.words[pos>>6].Load()&(1<<(pos&63)) != 0
}

// Set atomically sets the bit at pos.
func (s *AtomicBitStore) Set(pos uint64) {
	s.words[pos>>6].Or(1 << (pos & 63))
}

// Clear atomically clears the bit at pos.
func (s *AtomicBitStore) Clear(pos uint64) {
	s.words[pos>>6].And(^(uint64(1) << (pos & 63)))
}

// CountSet returns the number of set bits. Concurrent writers may land
// between word reads, so the result is a point-in-time estimate.
func (s *AtomicBitStore) CountSet() uint64 {
	var n uint64
	for i := range s.words {
		n += uint64(bits.OnesCount64(s.words[i].Load()))
	}
	return n
}

// UnionWith ORs other into s element-wise. Safe to call while either store
// is being written; bits arriving in other concurrently may or may not be
// carried over.
func (s *AtomicBitStore) UnionWith(other *AtomicBitStore) error {
	if s.m != other.m {
		return fmt.Errorf("%w: bit store lengths differ (%d vs %d)", ErrParameterMismatch, s.m, other.m)
	}
	for i := range other.words {
		s.words[i].Or(other.words[i].Load())
	}
	return nil
}

// snapshot copies the current words without stopping writers. Each word is
// read atomically, but the copy as a whole is not an atomic snapshot.
func (s *AtomicBitStore) snapshot() []uint64 {
	words := make([]uint64, len(s.words))
	for i := range s.words {
		words[i] = s.words[i].Load()
	}
	return words
}
