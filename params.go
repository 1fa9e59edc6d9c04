package bloomset

import (
	"fmt"
	"math"
)

const (
	// ln2 is the natural logarithm of 2.
	ln2 = 0.6931471805599453
	// ln2Squared is ln(2)^2.
	ln2Squared = 0.4804530139182014
)

// Params are the immutable construction parameters of a filter: the number
// of bit or counter positions (m) and the number of hash probes per item
// (k). Filters cannot be resized after construction; to grow, build a new
// filter and re-add.
type Params struct {
	M uint64 // number of positions
	K uint32 // probes per item
}

func (p Params) validate() error {
	if p.M == 0 || p.K == 0 {
		return fmt.Errorf("%w: m and k must be positive (m=%d, k=%d)", ErrInvalidParameters, p.M, p.K)
	}
	return nil
}

// ParamsForCapacity computes the optimal parameters for the expected number
// of items and target false positive rate:
//
//	m = ceil(-n * ln(p) / ln(2)^2)
//	k = round((m/n) * ln(2))
//
// It fails with ErrInvalidParameters when expectedItems is zero or fpRate
// is not in (0, 1).
func ParamsForCapacity(expectedItems uint64, fpRate float64) (Params, error) {
	if expectedItems == 0 {
		return Params{}, fmt.Errorf("%w: expected items must be positive", ErrInvalidParameters)
	}
	if math.IsNaN(fpRate) || fpRate <= 0 || fpRate >= 1 {
		return Params{}, fmt.Errorf("%w: false positive rate must be in (0, 1), got %v", ErrInvalidParameters, fpRate)
	}

	n := float64(expectedItems)
	m := math.Ceil(-n * math.Log(fpRate) / ln2Squared)
	k := math.Round(m / n * ln2)
	if k < 1 {
		k = 1
	}

	return Params{M: uint64(m), K: uint32(k)}, nil
}

// FalsePositiveRate returns the theoretical false positive rate of a filter
// with m bits and k probes after n items have been added:
//
//	(1 - e^(-kn/m))^k
//
// The running filters estimate their own rate from the observed fill ratio
// instead; this form is useful when sizing a filter up front. A hash
// strategy with a less than uniform distribution will do worse than this
// predicts.
func FalsePositiveRate(m uint64, k uint32, n uint64) float64 {
	if m == 0 || n == 0 {
		return 0
	}
	kf := float64(k)
	return math.Pow(1-math.Exp(-kf*float64(n)/float64(m)), kf)
}
