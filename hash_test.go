package bloomset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXXH3HasherDeterministic(t *testing.T) {
	h := DefaultHasher()

	a1, a2 := h.DigestPair([]byte("hello"))
	b1, b2 := h.DigestPair([]byte("hello"))
	assert.Equal(t, a1, b1)
	assert.Equal(t, a2, b2)
}

func TestXXH3HasherPairIndependence(t *testing.T) {
	h := DefaultHasher()

	h1, h2 := h.DigestPair([]byte("hello"))
	assert.NotEqual(t, h1, h2, "seeds must produce distinct digests")
}

func TestXXH3HasherStringMatchesBytes(t *testing.T) {
	h := NewXXH3Hasher(1, 2)

	b1, b2 := h.DigestPair([]byte("user:12345"))
	s1, s2 := h.DigestPairString("user:12345")
	assert.Equal(t, b1, s1)
	assert.Equal(t, b2, s2)
}

func TestXXH3HasherSeedsMatter(t *testing.T) {
	a := NewXXH3Hasher(1, 2)
	b := NewXXH3Hasher(3, 4)

	a1, a2 := a.DigestPair([]byte("hello"))
	b1, b2 := b.DigestPair([]byte("hello"))
	assert.NotEqual(t, a1, b1)
	assert.NotEqual(t, a2, b2)
}

func TestMurmur3Hasher(t *testing.T) {
	h := NewMurmur3Hasher(42)

	a1, a2 := h.DigestPair([]byte("hello"))
	b1, b2 := h.DigestPairString("hello")
	assert.Equal(t, a1, b1)
	assert.Equal(t, a2, b2)
	assert.NotEqual(t, a1, a2)

	c1, _ := h.DigestPair([]byte("world"))
	assert.NotEqual(t, a1, c1)
}

func TestCustomHasherSatisfiesFilter(t *testing.T) {
	f, err := New(1000, 0.01, WithHasher(NewMurmur3Hasher(7)))
	require.NoError(t, err)

	f.AddString("hello")
	assert.True(t, f.TestString("hello"))
	assert.False(t, f.TestString("goodbye"))
}
