package bloomset

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountingFilterBasic(t *testing.T) {
	f, err := NewCounting(1000, 0.01)
	require.NoError(t, err)

	f.Add([]byte("hello"))
	f.AddString("world")

	assert.True(t, f.Test([]byte("hello")))
	assert.True(t, f.TestString("world"))
	assert.False(t, f.Test([]byte("missing")))
	assert.Equal(t, uint64(2), f.Count())
	assert.Equal(t, DefaultCounterWidth, f.CounterWidth())
	assert.Equal(t, uint64(15), f.MaxCount())
}

func TestCountingFilterConstructionErrors(t *testing.T) {
	_, err := NewCounting(0, 0.01)
	require.ErrorIs(t, err, ErrInvalidParameters)

	_, err = NewCounting(1000, 1.5)
	require.ErrorIs(t, err, ErrInvalidParameters)

	_, err = NewCountingWithParams(0, 3, 4)
	require.ErrorIs(t, err, ErrInvalidParameters)

	_, err = NewCountingWithParams(100, 3, 1)
	require.ErrorIs(t, err, ErrInvalidParameters)

	_, err = NewCountingWithParams(100, 3, 9)
	require.ErrorIs(t, err, ErrInvalidParameters)
}

func TestCountingFilterRemove(t *testing.T) {
	f, err := NewCounting(1000, 0.01)
	require.NoError(t, err)

	f.AddString("hello")
	f.AddString("world")
	require.True(t, f.TestString("hello"))

	f.RemoveString("hello")
	assert.False(t, f.TestString("hello"))
	assert.True(t, f.TestString("world"), "removing hello must not disturb world")
	assert.Equal(t, uint64(1), f.Count())
}

func TestCountingFilterAddRemoveRoundTrip(t *testing.T) {
	f, err := NewCounting(1000, 0.01)
	require.NoError(t, err)

	// Seed some unrelated state, then verify an add/remove pair restores
	// every counter word exactly.
	for i := range 50 {
		f.Add(fmt.Appendf(nil, "seed-%d", i))
	}
	before := slices.Clone(f.store.words)

	f.AddString("transient")
	f.RemoveString("transient")

	assert.Equal(t, before, f.store.words,
		"add then remove must restore the pre-insert counter state")
}

func TestCountingFilterDuplicateAdds(t *testing.T) {
	f, err := NewCounting(1000, 0.01)
	require.NoError(t, err)

	f.AddString("dup")
	f.AddString("dup")
	f.RemoveString("dup")

	assert.True(t, f.TestString("dup"), "one remove of a double add leaves one count")
	f.RemoveString("dup")
	assert.False(t, f.TestString("dup"))
}

func TestCountingFilterSaturation(t *testing.T) {
	f, err := NewCountingWithParams(100, 3, 2) // MAX = 3
	require.NoError(t, err)

	for range 10 {
		f.AddString("hot")
	}

	h1, h2 := f.hasher.DigestPairString("hot")
	for pos := range f.ix.Positions(h1, h2) {
		assert.Equal(t, uint64(3), f.store.Get(pos), "counter at %d must cap at MAX", pos)
	}

	// Saturation never causes a false negative.
	assert.True(t, f.TestString("hot"))

	for range 20 {
		f.RemoveString("hot")
	}
	for pos := range f.ix.Positions(h1, h2) {
		assert.Zero(t, f.store.Get(pos), "counter at %d must floor at zero", pos)
	}
}

func TestCountingFilterEstimators(t *testing.T) {
	f, err := NewCounting(1000, 0.01)
	require.NoError(t, err)

	assert.Zero(t, f.EstimatedFillRatio())
	assert.Zero(t, f.EstimatedFalsePositiveRate())

	for i := range 500 {
		f.Add(fmt.Appendf(nil, "item-%d", i))
	}
	ratio := f.EstimatedFillRatio()
	assert.Greater(t, ratio, 0.0)
	assert.Less(t, ratio, 1.0)

	// The ratio counts nonzero counters, not their sum: re-adding the same
	// items must not move it.
	for i := range 500 {
		f.Add(fmt.Appendf(nil, "item-%d", i))
	}
	assert.Equal(t, ratio, f.EstimatedFillRatio())
}

func TestCountingFilterNoFalseNegatives(t *testing.T) {
	f, err := NewCounting(1000, 0.01)
	require.NoError(t, err)

	for i := range 1000 {
		f.Add(fmt.Appendf(nil, "item-%d", i))
	}
	for i := range 1000 {
		require.True(t, f.Test(fmt.Appendf(nil, "item-%d", i)))
	}
}

func TestCountingFilterMergeFrom(t *testing.T) {
	a, err := NewCountingWithParams(4096, 4, 4)
	require.NoError(t, err)
	b, err := NewCountingWithParams(4096, 4, 4)
	require.NoError(t, err)

	a.AddString("only-in-a")
	b.AddString("only-in-b")

	require.NoError(t, a.MergeFrom(b))
	assert.True(t, a.TestString("only-in-a"))
	assert.True(t, a.TestString("only-in-b"))
	assert.Equal(t, uint64(2), a.Count())

	// Removal still works on merged state.
	a.RemoveString("only-in-b")
	assert.False(t, a.TestString("only-in-b"))
	assert.True(t, a.TestString("only-in-a"))
}

func TestCountingFilterMergeMismatch(t *testing.T) {
	a, _ := NewCountingWithParams(4096, 4, 4)
	b, _ := NewCountingWithParams(4096, 5, 4)
	c, _ := NewCountingWithParams(4096, 4, 2)

	require.ErrorIs(t, a.MergeFrom(b), ErrParameterMismatch)
	require.ErrorIs(t, a.MergeFrom(c), ErrParameterMismatch)
	_, err := MergeCounting(a, c)
	require.ErrorIs(t, err, ErrParameterMismatch)
}

func TestCountingFilterMergeAlgebra(t *testing.T) {
	build := func(items ...string) *CountingFilter {
		f, err := NewCountingWithParams(4096, 4, 4)
		require.NoError(t, err)
		for _, it := range items {
			f.AddString(it)
		}
		return f
	}

	a := build("a1", "a2")
	b := build("b1")
	c := build("c1", "c2")

	ab, err := MergeCounting(a, b)
	require.NoError(t, err)
	ba, err := MergeCounting(b, a)
	require.NoError(t, err)
	assert.Equal(t, ab.store.words, ba.store.words, "merge is commutative")

	abc1, err := MergeCounting(ab, c)
	require.NoError(t, err)
	bc, err := MergeCounting(b, c)
	require.NoError(t, err)
	abc2, err := MergeCounting(a, bc)
	require.NoError(t, err)
	assert.Equal(t, abc1.store.words, abc2.store.words, "merge is associative")

	// Inputs are untouched.
	assert.False(t, a.TestString("b1"))
}

func TestCountingFilterClear(t *testing.T) {
	f, err := NewCounting(100, 0.01)
	require.NoError(t, err)

	f.AddString("x")
	f.Clear()
	assert.False(t, f.TestString("x"))
	assert.Zero(t, f.Count())
}

func BenchmarkCountingFilterAdd(b *testing.B) {
	f, _ := NewCounting(uint64(b.N)+1, 0.01)
	data := []byte("benchmark-key-of-reasonable-length")
	b.ResetTimer()
	for range b.N {
		f.Add(data)
	}
}
