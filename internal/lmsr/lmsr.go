// Package lmsr implements a Logarithmic Market Scoring Rule over discretized
// price bins. The market maker's state is the vector q of outstanding shares
// per bin; cost and probabilities are pure functions of q and the liquidity
// parameter b, so pricing is path independent by construction.
package lmsr

import (
	"errors"
	"math"
)

// DefaultLiquidity is the b parameter used when a market does not configure one.
const DefaultLiquidity = 100.0

// ErrInvalidParameter signals malformed LMSR input: empty q, b <= 0, an index
// out of range or a non-finite value. Always a caller bug, never retried.
var ErrInvalidParameter = errors.New("lmsr: invalid parameter")

func validate(q []float64, b float64) error {
	if len(q) == 0 {
		return errors.Join(ErrInvalidParameter, errors.New("empty quantity vector"))
	}
	if b <= 0 || math.IsNaN(b) || math.IsInf(b, 0) {
		return errors.Join(ErrInvalidParameter, errors.New("liquidity must be a positive finite number"))
	}
	for _, qi := range q {
		if math.IsNaN(qi) || math.IsInf(qi, 0) {
			return errors.Join(ErrInvalidParameter, errors.New("quantities must be finite"))
		}
	}
	return nil
}

// logSumExp returns ln(Σ exp(q_i/b)) using the shifted form
// m + ln(Σ exp(q_i/b - m)) with m = max(q_i)/b, so large q_i/b never overflow.
func logSumExp(q []float64, b float64) float64 {
	maxScaled := q[0] / b
	for _, qi := range q[1:] {
		if s := qi / b; s > maxScaled {
			maxScaled = s
		}
	}

	var sum float64
	for _, qi := range q {
		sum += math.Exp(qi/b - maxScaled)
	}
	return maxScaled + math.Log(sum)
}

// Cost returns the LMSR cost function b * ln(Σ exp(q_i/b)).
func Cost(q []float64, b float64) (float64, error) {
	if err := validate(q, b); err != nil {
		return 0, err
	}
	return b * logSumExp(q, b), nil
}

// Probabilities returns the implied probability of each bin,
// exp(q_i/b) / Σ exp(q_j/b). The result sums to 1 within floating tolerance.
func Probabilities(q []float64, b float64) ([]float64, error) {
	if err := validate(q, b); err != nil {
		return nil, err
	}

	maxScaled := q[0] / b
	for _, qi := range q[1:] {
		if s := qi / b; s > maxScaled {
			maxScaled = s
		}
	}

	probs := make([]float64, len(q))
	var sum float64
	for i, qi := range q {
		e := math.Exp(qi/b - maxScaled)
		probs[i] = e
		sum += e
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs, nil
}

// CostOfTrade returns the marginal cost of changing bin index by deltaShares:
// Cost(q') - Cost(q) where q' is q with q[index] += deltaShares. Positive
// deltaShares is a buy, negative a sell. q is not modified.
func CostOfTrade(q []float64, index int, deltaShares float64, b float64) (float64, error) {
	if err := validate(q, b); err != nil {
		return 0, err
	}
	if index < 0 || index >= len(q) {
		return 0, errors.Join(ErrInvalidParameter, errors.New("bin index out of range"))
	}
	if math.IsNaN(deltaShares) || math.IsInf(deltaShares, 0) {
		return 0, errors.Join(ErrInvalidParameter, errors.New("delta shares must be finite"))
	}

	before := b * logSumExp(q, b)

	after := make([]float64, len(q))
	copy(after, q)
	after[index] += deltaShares

	return b*logSumExp(after, b) - before, nil
}
