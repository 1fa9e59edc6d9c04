package bloomset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsForCapacity(t *testing.T) {
	p, err := ParamsForCapacity(1000, 0.01)
	require.NoError(t, err)

	// Classic sizing for n=1000, p=0.01.
	assert.InDelta(t, 9586, float64(p.M), 1)
	assert.Equal(t, uint32(7), p.K)
}

func TestParamsForCapacityScalesWithRate(t *testing.T) {
	loose, err := ParamsForCapacity(10_000, 0.1)
	require.NoError(t, err)
	tight, err := ParamsForCapacity(10_000, 0.001)
	require.NoError(t, err)

	assert.Less(t, loose.M, tight.M, "tighter rate needs more bits")
	assert.Less(t, loose.K, tight.K, "tighter rate needs more probes")
}

func TestParamsForCapacityInvalid(t *testing.T) {
	cases := []struct {
		name   string
		items  uint64
		fpRate float64
	}{
		{"zero items", 0, 0.01},
		{"rate above one", 1000, 1.5},
		{"rate exactly one", 1000, 1},
		{"rate zero", 1000, 0},
		{"rate negative", 1000, -0.5},
		{"rate NaN", 1000, math.NaN()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParamsForCapacity(tc.items, tc.fpRate)
			require.ErrorIs(t, err, ErrInvalidParameters)
		})
	}
}

func TestFalsePositiveRate(t *testing.T) {
	// k=1, n=1, m=100: (1 - e^(-1/100))^1
	assert.InDelta(t, 0.00995016625, FalsePositiveRate(100, 1, 1), 1e-9)

	// k=4, n=10000, m=100000 stays near its design point.
	assert.Less(t, FalsePositiveRate(100_000, 4, 10_000), 0.012)

	// Degenerate inputs report zero rather than NaN.
	assert.Zero(t, FalsePositiveRate(0, 4, 10))
	assert.Zero(t, FalsePositiveRate(100, 4, 0))
}

func TestFalsePositiveRateMatchesSizing(t *testing.T) {
	p, err := ParamsForCapacity(5000, 0.01)
	require.NoError(t, err)

	// At the designed capacity the theoretical rate should be at or very
	// near the target.
	got := FalsePositiveRate(p.M, p.K, 5000)
	assert.InDelta(t, 0.01, got, 0.002)
}
