package bloomset

import (
	"fmt"
	"math"
)

// CountingFilter is a counting bloom filter: each position holds a small
// saturating counter instead of a bit, which makes removal possible.
// A negative Test answer is definitive; a positive one may be a false
// positive. It is not safe for concurrent use; see SharedCountingFilter.
type CountingFilter struct {
	store  *CounterStore
	ix     Indexer
	hasher Hasher
	count  uint64
}

// NewCounting creates a counting filter sized for the expected number of
// items and target false positive rate, with DefaultCounterWidth counters.
// It fails with ErrInvalidParameters when expectedItems is zero or fpRate
// is not in (0, 1).
func NewCounting(expectedItems uint64, fpRate float64, opts ...Option) (*CountingFilter, error) {
	p, err := ParamsForCapacity(expectedItems, fpRate)
	if err != nil {
		return nil, err
	}
	return NewCountingWithParams(p.M, p.K, DefaultCounterWidth, opts...)
}

// NewCountingWithParams creates a counting filter with an explicit counter
// count m, probe count k, and counter width in bits. The width bounds how
// many overlapping inserts one position tolerates before saturating.
func NewCountingWithParams(m uint64, k uint32, width uint8, opts ...Option) (*CountingFilter, error) {
	p := Params{M: m, K: k}
	if err := p.validate(); err != nil {
		return nil, err
	}
	store, err := NewCounterStore(m, width)
	if err != nil {
		return nil, err
	}
	cfg := buildConfig(opts)
	return &CountingFilter{
		store:  store,
		ix:     NewIndexer(p),
		hasher: cfg.hasher,
	}, nil
}

// Add inserts data into the filter, incrementing its k counters. A counter
// already at the maximum stays there; saturation biases the false positive
// estimate upward but never causes false negatives.
func (f *CountingFilter) Add(data []byte) {
	h1, h2 := f.hasher.DigestPair(data)
	f.addDigest(h1, h2)
}

// AddString inserts a string key without allocating.
func (f *CountingFilter) AddString(s string) {
	h1, h2 := f.hasher.DigestPairString(s)
	f.addDigest(h1, h2)
}

func (f *CountingFilter) addDigest(h1, h2 uint64) {
	h2, aux := f.ix.strides(h2)
	for i := uint64(0); i < uint64(f.ix.k); i++ {
		f.store.Increment(f.ix.position(h1, h2, aux, i))
	}
	f.count++
}

// Remove deletes one prior Add of data, decrementing its k counters.
//
// The caller must have added data and not already removed it. Removing an
// item that was never added, or removing it twice, silently decrements
// counters shared with other items and can introduce false negatives for
// them. The filter cannot distinguish a legitimately zero counter from an
// erroneously decremented one, so this is not a detected error; callers
// needing protection must track their own inserts.
func (f *CountingFilter) Remove(data []byte) {
	h1, h2 := f.hasher.DigestPair(data)
	f.removeDigest(h1, h2)
}

// RemoveString is Remove for string keys, without allocating.
func (f *CountingFilter) RemoveString(s string) {
	h1, h2 := f.hasher.DigestPairString(s)
	f.removeDigest(h1, h2)
}

func (f *CountingFilter) removeDigest(h1, h2 uint64) {
	h2, aux := f.ix.strides(h2)
	for i := uint64(0); i < uint64(f.ix.k); i++ {
		f.store.Decrement(f.ix.position(h1, h2, aux, i))
	}
	if f.count > 0 {
		f.count--
	}
}

// Test reports whether data might be in the filter: true iff every one of
// its k counters is greater than zero. A false result guarantees the item
// is not present (unless a bad Remove corrupted the counters).
func (f *CountingFilter) Test(data []byte) bool {
	h1, h2 := f.hasher.DigestPair(data)
	return f.testDigest(h1, h2)
}

// TestString is Test for string keys, without allocating.
func (f *CountingFilter) TestString(s string) bool {
	h1, h2 := f.hasher.DigestPairString(s)
	return f.testDigest(h1, h2)
}

func (f *CountingFilter) testDigest(h1, h2 uint64) bool {
	h2, aux := f.ix.strides(h2)
	for i := uint64(0); i < uint64(f.ix.k); i++ {
		if f.store.Get(f.ix.position(h1, h2, aux, i)) == 0 {
			return false
		}
	}
	return true
}

// M returns the number of counters in the filter.
func (f *CountingFilter) M() uint64 { return f.ix.m }

// K returns the number of hash probes per item.
func (f *CountingFilter) K() uint32 { return f.ix.k }

// CounterWidth returns the counter width in bits.
func (f *CountingFilter) CounterWidth() uint8 { return f.store.Width() }

// MaxCount returns the saturation bound of each counter.
func (f *CountingFilter) MaxCount() uint64 { return f.store.Max() }

// Count returns the net number of items added (Adds minus Removes).
func (f *CountingFilter) Count() uint64 { return f.count }

// EstimatedFillRatio returns the proportion of counters greater than zero.
// Saturated counters weigh the same as singly-set ones: what matters for a
// lookup is only whether a counter is nonzero.
func (f *CountingFilter) EstimatedFillRatio() float64 {
	return float64(f.store.CountNonzero()) / float64(f.ix.m)
}

// EstimatedFalsePositiveRate estimates the probability that a Test on an
// item never added returns true, from the observed fill ratio: ratio^k.
func (f *CountingFilter) EstimatedFalsePositiveRate() float64 {
	return math.Pow(f.EstimatedFillRatio(), float64(f.ix.k))
}

// Clear removes all items from the filter.
func (f *CountingFilter) Clear() {
	f.store.Reset()
	f.count = 0
}

// MergeFrom merges other into f in place by element-wise saturating
// addition, so that f answers true for every item added to either filter.
// The filters must have identical parameters and counter widths, and must
// have been built with identical hashers.
func (f *CountingFilter) MergeFrom(other *CountingFilter) error {
	if err := f.checkCompatible(other); err != nil {
		return err
	}
	if err := f.store.MergeFrom(other.store); err != nil {
		return err
	}
	f.count += other.count
	return nil
}

// MergeCounting returns a new counting filter holding the merge of a and
// b, leaving both inputs unchanged. The merge is commutative and
// associative, so per-shard partial filters from independent producers can
// be combined in any order.
func MergeCounting(a, b *CountingFilter) (*CountingFilter, error) {
	if err := a.checkCompatible(b); err != nil {
		return nil, err
	}
	out := &CountingFilter{
		store:  a.store.Clone(),
		ix:     a.ix,
		hasher: a.hasher,
		count:  a.count + b.count,
	}
	if err := out.store.MergeFrom(b.store); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *CountingFilter) checkCompatible(other *CountingFilter) error {
	if f.ix.m != other.ix.m || f.ix.k != other.ix.k || f.store.Width() != other.store.Width() {
		return fmt.Errorf("%w: filters built with m=%d,k=%d,w=%d and m=%d,k=%d,w=%d",
			ErrParameterMismatch,
			f.ix.m, f.ix.k, f.store.Width(),
			other.ix.m, other.ix.k, other.store.Width())
	}
	return nil
}
