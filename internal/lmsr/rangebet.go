package lmsr

// OddsBand bounds the payout multiple of a range bet regardless of how thin
// the selected probability mass is. This is a business risk control, not a
// property of LMSR: downstream payout commitments depend on the exact band.
type OddsBand struct {
	Min float64
	Max float64
}

// DefaultOddsBand clamps payouts between 1.01x and 10x the stake.
var DefaultOddsBand = OddsBand{Min: 1.01, Max: 10.0}

// RangeBetQuote is the result of pricing a stake over a set of bins.
type RangeBetQuote struct {
	WinProbability float64 `json:"win_probability"`
	ReceiveIfWin   float64 `json:"receive_if_win"`
	Profit         float64 `json:"profit"`
}

// BetOnRange prices a stake spread over the selected bins. The payout is the
// closed-form probability-proportional stake/p, clamped to the odds band; it
// deliberately does not simulate an LMSR share purchase.
//
// Degenerate bets return a zero quote rather than an error: a non-positive
// stake, an empty selection, zero covered probability, or a selection covering
// the entire probability mass all quote {0, 0, 0}.
func BetOnRange(q []float64, binIndices []int, stake float64, b float64, band OddsBand) (RangeBetQuote, error) {
	probs, err := Probabilities(q, b)
	if err != nil {
		return RangeBetQuote{}, err
	}

	seen := make(map[int]bool, len(binIndices))
	var winProbability float64
	for _, idx := range binIndices {
		if idx < 0 || idx >= len(probs) || seen[idx] {
			continue
		}
		seen[idx] = true
		winProbability += probs[idx]
	}

	if stake <= 0 || len(seen) == 0 || winProbability <= 0 || winProbability >= 1 {
		return RangeBetQuote{}, nil
	}

	receiveIfWin := stake / winProbability
	if min := band.Min * stake; receiveIfWin < min {
		receiveIfWin = min
	}
	if max := band.Max * stake; receiveIfWin > max {
		receiveIfWin = max
	}

	return RangeBetQuote{
		WinProbability: winProbability,
		ReceiveIfWin:   receiveIfWin,
		Profit:         receiveIfWin - stake,
	}, nil
}
