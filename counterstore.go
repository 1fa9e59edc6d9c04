package bloomset

import (
	"fmt"
	"sync/atomic"
)

// Supported counter widths, in bits. A width w counter saturates at
// 2^w - 1.
const (
	MinCounterWidth uint8 = 2
	MaxCounterWidth uint8 = 8

	// DefaultCounterWidth is the width used by the counting filter
	// constructors that do not take an explicit width. Four bits tolerate
	// 15 overlapping inserts per position before saturating, which is
	// plenty at any sane fill ratio.
	DefaultCounterWidth uint8 = 4
)

func checkCounterWidth(width uint8) error {
	if width < MinCounterWidth || width > MaxCounterWidth {
		return fmt.Errorf("%w: counter width must be in [%d, %d], got %d",
			ErrInvalidParameters, MinCounterWidth, MaxCounterWidth, width)
	}
	return nil
}

// counterLayout is the packing shared by the plain and atomic counter
// stores. A word holds 64/width whole counters; the leftover high bits of
// each word are unused so that no counter ever straddles a word boundary.
// Keeping a counter within one word is what lets the atomic store update
// it with a single-word compare-and-swap.
type counterLayout struct {
	m       uint64
	width   uint8
	max     uint64 // saturation bound, 2^width - 1
	perWord uint64 // whole counters per 64-bit word
}

func newCounterLayout(m uint64, width uint8) counterLayout {
	return counterLayout{
		m:       m,
		width:   width,
		max:     1<<width - 1,
		perWord: 64 / uint64(width),
	}
}

func (l counterLayout) numWords() uint64 {
	return (l.m + l.perWord - 1) / l.perWord
}

// locate returns the word index and in-word bit shift for pos.
func (l counterLayout) locate(pos uint64) (word uint64, shift uint64) {
	return pos / l.perWord, (pos % l.perWord) * uint64(l.width)
}

// CounterStore is a fixed-size array of m saturating counters, each width
// bits wide. A counter never exceeds its maximum and never drops below
// zero; both bounds absorb silently. It is not safe for concurrent use;
// AtomicCounterStore provides the same surface for shared access.
type CounterStore struct {
	counterLayout
	words []uint64
}

// NewCounterStore creates a zeroed counter store with m counters of the
// given width in bits.
func NewCounterStore(m uint64, width uint8) (*CounterStore, error) {
	if err := checkCounterWidth(width); err != nil {
		return nil, err
	}
	l := newCounterLayout(m, width)
	return &CounterStore{counterLayout: l, words: make([]uint64, l.numWords())}, nil
}

// Len returns the number of counters.
func (s *CounterStore) Len() uint64 { return s.m }

// Width returns the counter width in bits.
func (s *CounterStore) Width() uint8 { return s.width }

// Max returns the saturation bound of each counter.
func (s *CounterStore) Max() uint64 { return s.max }

// Get returns the counter at pos.
func (s *CounterStore) Get(pos uint64) uint64 {
	word, shift := s.locate(pos)
	return (s.words[word] >> shift) & s.max
}

// Increment adds one to the counter at pos, saturating at the maximum.
func (s *CounterStore) Increment(pos uint64) {
	word, shift := s.locate(pos)
	if (s.words[word]>>shift)&s.max == s.max {
		return
	}
	s.words[word] += 1 << shift
}

// Decrement subtracts one from the counter at pos, saturating at zero.
func (s *CounterStore) Decrement(pos uint64) {
	word, shift := s.locate(pos)
	if (s.words[word]>>shift)&s.max == 0 {
		return
	}
	s.words[word] -= 1 << shift
}

// CountNonzero returns the number of counters greater than zero. This is
// the population count of the underlying bit pattern, not the counter sum.
func (s *CounterStore) CountNonzero() uint64 {
	var n, pos uint64
	for _, w := range s.words {
		for j := uint64(0); j < s.perWord && pos < s.m; j++ {
			if (w>>(j*uint64(s.width)))&s.max != 0 {
				n++
			}
			pos++
		}
	}
	return n
}

// Sum returns the sum of all counters.
func (s *CounterStore) Sum() uint64 {
	var n, pos uint64
	for _, w := range s.words {
		for j := uint64(0); j < s.perWord && pos < s.m; j++ {
			n += (w >> (j * uint64(s.width))) & s.max
			pos++
		}
	}
	return n
}

// MergeFrom adds other into s element-wise, saturating each counter at the
// maximum. The stores must have identical lengths and widths.
func (s *CounterStore) MergeFrom(other *CounterStore) error {
	if s.m != other.m || s.width != other.width {
		return fmt.Errorf("%w: counter stores differ (m=%d,w=%d vs m=%d,w=%d)",
			ErrParameterMismatch, s.m, s.width, other.m, other.width)
	}
	for pos := uint64(0); pos < s.m; pos++ {
		sum := s.Get(pos) + other.Get(pos)
		if sum > s.max {
			sum = s.max
		}
		word, shift := s.locate(pos)
		s.words[word] = s.words[word]&^(s.max<<shift) | sum<<shift
	}
	return nil
}

// Reset clears every counter.
func (s *CounterStore) Reset() {
	clear(s.words)
}

// Clone returns an independent copy of s.
func (s *CounterStore) Clone() *CounterStore {
	words := make([]uint64, len(s.words))
	copy(words, s.words)
	return &CounterStore{counterLayout: s.counterLayout, words: words}
}

// AtomicCounterStore is a CounterStore safe for concurrent use. Each
// increment or decrement is a compare-and-swap loop on the single word
// holding the counter; saturation is re-checked on every attempt, so a
// saturated counter is never pushed past its bound by racing writers.
// Contending updates to sibling counters in the same word simply retry.
type AtomicCounterStore struct {
	counterLayout
	words []atomic.Uint64
}

// NewAtomicCounterStore creates a zeroed atomic counter store with m
// counters of the given width in bits.
func NewAtomicCounterStore(m uint64, width uint8) (*AtomicCounterStore, error) {
	if err := checkCounterWidth(width); err != nil {
		return nil, err
	}
	l := newCounterLayout(m, width)
	return &AtomicCounterStore{counterLayout: l, words: make([]atomic.Uint64, l.numWords())}, nil
}

// Len returns the number of counters.
func (s *AtomicCounterStore) Len() uint64 { return s.m }

// Width returns the counter width in bits.
func (s *AtomicCounterStore) Width() uint8 { return s.width }

// Max returns the saturation bound of each counter.
func (s *AtomicCounterStore) Max() uint64 { return s.max }

// Get returns the counter at pos.
func (s *AtomicCounterStore) Get(pos uint64) uint64 {
	word, shift := s.locate(pos)
	return (s.words[word].Load() >> shift) & s.max
}

// Increment atomically adds one to the counter at pos, saturating at the
// maximum.
func (s *AtomicCounterStore) Increment(pos uint64) {
	word, shift := s.locate(pos)
	for {
		old := s.words[word].Load()
		if (old>>shift)&s.max == s.max {
			return
		}
		if s.words[word].CompareAndSwap(old, old+1<<shift) {
			return
		}
	}
}

// Decrement atomically subtracts one from the counter at pos, saturating
// at zero.
func (s *AtomicCounterStore) Decrement(pos uint64) {
	word, shift := s.locate(pos)
	for {
		old := s.words[word].Load()
		if (old>>shift)&s.max == 0 {
			return
		}
		if s.words[word].CompareAndSwap(old, old-1<<shift) {
			return
		}
	}
}

// addSaturating atomically adds delta to the counter at pos, clamping at
// the maximum.
func (s *AtomicCounterStore) addSaturating(pos, delta uint64) {
	if delta == 0 {
		return
	}
	word, shift := s.locate(pos)
	for {
		old := s.words[word].Load()
		cur := (old >> shift) & s.max
		sum := cur + delta
		if sum > s.max {
			sum = s.max
		}
		if sum == cur {
			return
		}
		next := old&^(s.max<<shift) | sum<<shift
		if s.words[word].CompareAndSwap(old, next) {
			return
		}
	}
}

// CountNonzero returns the number of counters greater than zero.
// Concurrent writers may land between word reads, so the result is a
// point-in-time estimate.
func (s *AtomicCounterStore) CountNonzero() uint64 {
	var n, pos uint64
	for i := range s.words {
		w := s.words[i].Load()
		for j := uint64(0); j < s.perWord && pos < s.m; j++ {
			if (w>>(j*uint64(s.width)))&s.max != 0 {
				n++
			}
			pos++
		}
	}
	return n
}

// MergeFrom adds other into s element-wise with saturating addition. Safe
// to call while either store is being written; updates arriving in other
// concurrently may or may not be carried over.
func (s *AtomicCounterStore) MergeFrom(other *AtomicCounterStore) error {
	if s.m != other.m || s.width != other.width {
		return fmt.Errorf("%w: counter stores differ (m=%d,w=%d vs m=%d,w=%d)",
			ErrParameterMismatch, s.m, s.width, other.m, other.width)
	}
	for pos := uint64(0); pos < s.m; pos++ {
		s.addSaturating(pos, other.Get(pos))
	}
	return nil
}

// snapshot copies the current words without stopping writers. Each word is
// read atomically, but the copy as a whole is not an atomic snapshot.
func (s *AtomicCounterStore) snapshot() []uint64 {
	words := make([]uint64, len(s.words))
	for i := range s.words {
		words[i] = s.words[i].Load()
	}
	return words
}
