package bloomset

import (
	"fmt"
	"math"
)

// Option configures optional filter behavior at construction.
type Option func(*config)

type config struct {
	hasher Hasher
}

func buildConfig(opts []Option) config {
	cfg := config{hasher: DefaultHasher()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithHasher substitutes the hash strategy used to derive probe positions.
// Filters only interoperate (merging, or reading each other's serialized
// form) when built with identical hashers; nothing detects a mismatch.
func WithHasher(h Hasher) Option {
	return func(c *config) { c.hasher = h }
}

// Filter is a standard bloom filter: insert and membership test only, no
// removal. A negative Test answer is definitive; a positive one may be a
// false positive. It is not safe for concurrent use; see SharedFilter.
type Filter struct {
	store  *BitStore
	ix     Indexer
	hasher Hasher
	count  uint64
}

// New creates a filter sized for the expected number of items and target
// false positive rate. It fails with ErrInvalidParameters when
// expectedItems is zero or fpRate is not in (0, 1).
func New(expectedItems uint64, fpRate float64, opts ...Option) (*Filter, error) {
	p, err := ParamsForCapacity(expectedItems, fpRate)
	if err != nil {
		return nil, err
	}
	return NewWithParams(p.M, p.K, opts...)
}

// NewWithParams creates a filter with an explicit bit count m and probe
// count k, both of which must be positive.
func NewWithParams(m uint64, k uint32, opts ...Option) (*Filter, error) {
	p := Params{M: m, K: k}
	if err := p.validate(); err != nil {
		return nil, err
	}
	cfg := buildConfig(opts)
	return &Filter{
		store:  NewBitStore(m),
		ix:     NewIndexer(p),
		hasher: cfg.hasher,
	}, nil
}

// Add inserts data into the filter. It cannot fail.
func (f *Filter) Add(data []byte) {
	h1, h2 := f.hasher.DigestPair(data)
	f.addDigest(h1, h2)
}

// AddString inserts a string key without allocating.
func (f *Filter) AddString(s string) {
	h1, h2 := f.hasher.DigestPairString(s)
	f.addDigest(h1, h2)
}

func (f *Filter) addDigest(h1, h2 uint64) {
	h2, aux := f.ix.strides(h2)
	for i := uint64(0); i < uint64(f.ix.k); i++ {
		f.store.Set(f.ix.position(h1, h2, aux, i))
	}
	f.count++
}

// Test reports whether data might be in the filter. A false result
// guarantees the item was never added; a true result may be a false
// positive.
func (f *Filter) Test(data []byte) bool {
	h1, h2 := f.hasher.DigestPair(data)
	return f.testDigest(h1, h2)
}

// TestString is Test for string keys, without allocating.
func (f *Filter) TestString(s string) bool {
	h1, h2 := f.hasher.DigestPairString(s)
	return f.testDigest(h1, h2)
}

func (f *Filter) testDigest(h1, h2 uint64) bool {
	h2, aux := f.ix.strides(h2)
	for i := uint64(0); i < uint64(f.ix.k); i++ {
		if !f.store.Get(f.ix.position(h1, h2, aux, i)) {
			return false
		}
	}
	return true
}

// TestAndAdd adds data and reports whether it might already have been
// present before the add.
func (f *Filter) TestAndAdd(data []byte) bool {
	h1, h2 := f.hasher.DigestPair(data)
	h2, aux := f.ix.strides(h2)
	present := true
	for i := uint64(0); i < uint64(f.ix.k); i++ {
		pos := f.ix.position(h1, h2, aux, i)
		if !f.store.Get(pos) {
			present = false
			f.store.Set(pos)
		}
	}
	f.count++
	return present
}

// M returns the number of bits in the filter.
func (f *Filter) M() uint64 { return f.ix.m }

// K returns the number of hash probes per item.
func (f *Filter) K() uint32 { return f.ix.k }

// Count returns the number of items added. It counts Add calls, so
// re-adding the same item inflates it.
func (f *Filter) Count() uint64 { return f.count }

// EstimatedFillRatio returns the proportion of bits currently set.
func (f *Filter) EstimatedFillRatio() float64 {
	return float64(f.store.CountSet()) / float64(f.ix.m)
}

// EstimatedFalsePositiveRate estimates the probability that a Test on an
// item never added returns true, from the observed fill ratio: ratio^k.
// This is the empirical analog of the theoretical FalsePositiveRate.
func (f *Filter) EstimatedFalsePositiveRate() float64 {
	return math.Pow(f.EstimatedFillRatio(), float64(f.ix.k))
}

// Clear removes all items from the filter.
func (f *Filter) Clear() {
	f.store.Reset()
	f.count = 0
}

// UnionWith merges other into f in place, so that f answers true for every
// item added to either filter. The filters must have identical parameters
// and must have been built with identical hashers.
func (f *Filter) UnionWith(other *Filter) error {
	if err := f.checkCompatible(other); err != nil {
		return err
	}
	if err := f.store.UnionWith(other.store); err != nil {
		return err
	}
	f.count += other.count
	return nil
}

// Union returns a new filter holding the union of a and b, leaving both
// inputs unchanged. The union is commutative and associative.
func Union(a, b *Filter) (*Filter, error) {
	if err := a.checkCompatible(b); err != nil {
		return nil, err
	}
	out := &Filter{
		store:  a.store.Clone(),
		ix:     a.ix,
		hasher: a.hasher,
		count:  a.count + b.count,
	}
	if err := out.store.UnionWith(b.store); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *Filter) checkCompatible(other *Filter) error {
	if f.ix.m != other.ix.m || f.ix.k != other.ix.k {
		return fmt.Errorf("%w: filters built with m=%d,k=%d and m=%d,k=%d",
			ErrParameterMismatch, f.ix.m, f.ix.k, other.ix.m, other.ix.k)
	}
	return nil
}
