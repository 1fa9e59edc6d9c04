package bloomset

import (
	"fmt"
	"math"
	"sync/atomic"
)

// SharedFilter is a bloom filter safe for concurrent use by any number of
// goroutines against one shared instance, with no caller-side locking and
// no filter-wide lock inside. Goroutines share a filter by sharing the
// pointer; the backing store lives until the last holder drops it.
//
// Every single-position operation is atomic, but an Add touches its k
// positions one at a time: a Test racing with an in-flight Add may observe
// some but not all of them and report the item absent. The
// no-false-negative guarantee holds once the Add call has returned.
// Callers needing whole-item atomicity must synchronize externally, for
// example with a per-item lock.
type SharedFilter struct {
	store  *AtomicBitStore
	ix     Indexer
	hasher Hasher
	count  atomic.Uint64
}

// NewShared creates a shared filter sized for the expected number of items
// and target false positive rate.
func NewShared(expectedItems uint64, fpRate float64, opts ...Option) (*SharedFilter, error) {
	p, err := ParamsForCapacity(expectedItems, fpRate)
	if err != nil {
		return nil, err
	}
	return NewSharedWithParams(p.M, p.K, opts...)
}

// NewSharedWithParams creates a shared filter with an explicit bit count m
// and probe count k, both of which must be positive.
func NewSharedWithParams(m uint64, k uint32, opts ...Option) (*SharedFilter, error) {
	p := Params{M: m, K: k}
	if err := p.validate(); err != nil {
		return nil, err
	}
	cfg := buildConfig(opts)
	return &SharedFilter{
		store:  NewAtomicBitStore(m),
		ix:     NewIndexer(p),
		hasher: cfg.hasher,
	}, nil
}

// Add inserts data into the filter. Safe to call concurrently with any
// other operation.
func (f *SharedFilter) Add(data []byte) {
	h1, h2 := f.hasher.DigestPair(data)
	f.addDigest(h1, h2)
}

// AddString inserts a string key without allocating.
func (f *SharedFilter) AddString(s string) {
	h1, h2 := f.hasher.DigestPairString(s)
	f.addDigest(h1, h2)
}

func (f *SharedFilter) addDigest(h1, h2 uint64) {
	h2, aux := f.ix.strides(h2)
	for i := uint64(0); i < uint64(f.ix.k); i++ {
		f.store.Set(f.ix.position(h1, h2, aux, i))
	}
	f.count.Add(1)
}

// Test reports whether data might be in the filter. Safe to call
// concurrently with any other operation.
func (f *SharedFilter) Test(data []byte) bool {
	h1, h2 := f.hasher.DigestPair(data)
	return f.testDigest(h1, h2)
}

// TestString is Test for string keys, without allocating.
func (f *SharedFilter) TestString(s string) bool {
	h1, h2 := f.hasher.DigestPairString(s)
	return f.testDigest(h1, h2)
}

func (f *SharedFilter) testDigest(h1, h2 uint64) bool {
	h2, aux := f.ix.strides(h2)
	for i := uint64(0); i < uint64(f.ix.k); i++ {
		if !f.store.Get(f.ix.position(h1, h2, aux, i)) {
			return false
		}
	}
	return true
}

// M returns the number of bits in the filter.
func (f *SharedFilter) M() uint64 { return f.ix.m }

// K returns the number of hash probes per item.
func (f *SharedFilter) K() uint32 { return f.ix.k }

// Count returns the approximate number of items added.
func (f *SharedFilter) Count() uint64 { return f.count.Load() }

// EstimatedFillRatio returns the proportion of bits currently set.
func (f *SharedFilter) EstimatedFillRatio() float64 {
	return float64(f.store.CountSet()) / float64(f.ix.m)
}

// EstimatedFalsePositiveRate estimates the current false positive
// probability from the observed fill ratio: ratio^k.
func (f *SharedFilter) EstimatedFalsePositiveRate() float64 {
	return math.Pow(f.EstimatedFillRatio(), float64(f.ix.k))
}

// Merge folds other into f by element-wise OR. The filters must have
// identical parameters and identical hashers. Merge is commutative and
// associative, so per-shard partial filters from independent producers can
// be combined in any order. Safe to call while either filter is being
// written; bits arriving in other concurrently may or may not be included.
func (f *SharedFilter) Merge(other *SharedFilter) error {
	if err := f.checkCompatible(other); err != nil {
		return err
	}
	if err := f.store.UnionWith(other.store); err != nil {
		return err
	}
	f.count.Add(other.count.Load())
	return nil
}

func (f *SharedFilter) checkCompatible(other *SharedFilter) error {
	if f.ix.m != other.ix.m || f.ix.k != other.ix.k {
		return fmt.Errorf("%w: filters built with m=%d,k=%d and m=%d,k=%d",
			ErrParameterMismatch, f.ix.m, f.ix.k, other.ix.m, other.ix.k)
	}
	return nil
}

// SharedCountingFilter is a counting bloom filter safe for concurrent use
// by any number of goroutines against one shared instance. It carries the
// same per-position atomicity contract as SharedFilter, plus the counting
// hazards: interleaved Add/Remove sequences over overlapping positions can
// produce saturation or undercounting artifacts, and removing an item
// never added corrupts shared counters just as in CountingFilter.
type SharedCountingFilter struct {
	store  *AtomicCounterStore
	ix     Indexer
	hasher Hasher
	count  atomic.Uint64
}

// NewSharedCounting creates a shared counting filter sized for the
// expected number of items and target false positive rate, with
// DefaultCounterWidth counters.
func NewSharedCounting(expectedItems uint64, fpRate float64, opts ...Option) (*SharedCountingFilter, error) {
	p, err := ParamsForCapacity(expectedItems, fpRate)
	if err != nil {
		return nil, err
	}
	return NewSharedCountingWithParams(p.M, p.K, DefaultCounterWidth, opts...)
}

// NewSharedCountingWithParams creates a shared counting filter with an
// explicit counter count m, probe count k, and counter width in bits.
func NewSharedCountingWithParams(m uint64, k uint32, width uint8, opts ...Option) (*SharedCountingFilter, error) {
	p := Params{M: m, K: k}
	if err := p.validate(); err != nil {
		return nil, err
	}
	store, err := NewAtomicCounterStore(m, width)
	if err != nil {
		return nil, err
	}
	cfg := buildConfig(opts)
	return &SharedCountingFilter{
		store:  store,
		ix:     NewIndexer(p),
		hasher: cfg.hasher,
	}, nil
}

// Add inserts data, incrementing its k counters with saturation. Safe to
// call concurrently with any other operation.
func (f *SharedCountingFilter) Add(data []byte) {
	h1, h2 := f.hasher.DigestPair(data)
	f.addDigest(h1, h2)
}

// AddString inserts a string key without allocating.
func (f *SharedCountingFilter) AddString(s string) {
	h1, h2 := f.hasher.DigestPairString(s)
	f.addDigest(h1, h2)
}

func (f *SharedCountingFilter) addDigest(h1, h2 uint64) {
	h2, aux := f.ix.strides(h2)
	for i := uint64(0); i < uint64(f.ix.k); i++ {
		f.store.Increment(f.ix.position(h1, h2, aux, i))
	}
	f.count.Add(1)
}

// Remove deletes one prior Add of data. The same precondition as
// CountingFilter.Remove applies: the item must have been added and not
// already removed, or shared counter state is silently corrupted.
func (f *SharedCountingFilter) Remove(data []byte) {
	h1, h2 := f.hasher.DigestPair(data)
	f.removeDigest(h1, h2)
}

// RemoveString is Remove for string keys, without allocating.
func (f *SharedCountingFilter) RemoveString(s string) {
	h1, h2 := f.hasher.DigestPairString(s)
	f.removeDigest(h1, h2)
}

func (f *SharedCountingFilter) removeDigest(h1, h2 uint64) {
	h2, aux := f.ix.strides(h2)
	for i := uint64(0); i < uint64(f.ix.k); i++ {
		f.store.Decrement(f.ix.position(h1, h2, aux, i))
	}
	// Count floors at zero; a stray Remove must not wrap it.
	for {
		cur := f.count.Load()
		if cur == 0 || f.count.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// Test reports whether data might be in the filter. Safe to call
// concurrently with any other operation.
func (f *SharedCountingFilter) Test(data []byte) bool {
	h1, h2 := f.hasher.DigestPair(data)
	return f.testDigest(h1, h2)
}

// TestString is Test for string keys, without allocating.
func (f *SharedCountingFilter) TestString(s string) bool {
	h1, h2 := f.hasher.DigestPairString(s)
	return f.testDigest(h1, h2)
}

func (f *SharedCountingFilter) testDigest(h1, h2 uint64) bool {
	h2, aux := f.ix.strides(h2)
	for i := uint64(0); i < uint64(f.ix.k); i++ {
		if f.store.Get(f.ix.position(h1, h2, aux, i)) == 0 {
			return false
		}
	}
	return true
}

// M returns the number of counters in the filter.
func (f *SharedCountingFilter) M() uint64 { return f.ix.m }

// K returns the number of hash probes per item.
func (f *SharedCountingFilter) K() uint32 { return f.ix.k }

// CounterWidth returns the counter width in bits.
func (f *SharedCountingFilter) CounterWidth() uint8 { return f.store.Width() }

// MaxCount returns the saturation bound of each counter.
func (f *SharedCountingFilter) MaxCount() uint64 { return f.store.Max() }

// Count returns the approximate net number of items added.
func (f *SharedCountingFilter) Count() uint64 { return f.count.Load() }

// EstimatedFillRatio returns the proportion of counters greater than zero.
func (f *SharedCountingFilter) EstimatedFillRatio() float64 {
	return float64(f.store.CountNonzero()) / float64(f.ix.m)
}

// EstimatedFalsePositiveRate estimates the current false positive
// probability from the observed fill ratio: ratio^k.
func (f *SharedCountingFilter) EstimatedFalsePositiveRate() float64 {
	return math.Pow(f.EstimatedFillRatio(), float64(f.ix.k))
}

// Merge folds other into f by element-wise saturating addition. The
// filters must have identical parameters, counter widths, and hashers.
// Commutative and associative, so per-shard partials combine in any order.
func (f *SharedCountingFilter) Merge(other *SharedCountingFilter) error {
	if err := f.checkCompatible(other); err != nil {
		return err
	}
	if err := f.store.MergeFrom(other.store); err != nil {
		return err
	}
	f.count.Add(other.count.Load())
	return nil
}

func (f *SharedCountingFilter) checkCompatible(other *SharedCountingFilter) error {
	if f.ix.m != other.ix.m || f.ix.k != other.ix.k || f.store.Width() != other.store.Width() {
		return fmt.Errorf("%w: filters built with m=%d,k=%d,w=%d and m=%d,k=%d,w=%d",
			ErrParameterMismatch,
			f.ix.m, f.ix.k, f.store.Width(),
			other.ix.m, other.ix.k, other.store.Width())
	}
	return nil
}
