package lmsr

import (
	"errors"
	"math"
	"testing"
)

func TestBetOnRangeUniformScenario(t *testing.T) {
	// q = [10,10,10], b = 100: each bin carries 1/3; a 100 stake on one bin
	// pays raw 300, inside the band.
	q := []float64{10, 10, 10}

	quote, err := BetOnRange(q, []int{0}, 100, 100, DefaultOddsBand)
	if err != nil {
		t.Fatalf("BetOnRange failed: %v", err)
	}

	if math.Abs(quote.WinProbability-1.0/3.0) > 1e-9 {
		t.Errorf("WinProbability = %v, want 1/3", quote.WinProbability)
	}
	if math.Abs(quote.ReceiveIfWin-300) > 1e-6 {
		t.Errorf("ReceiveIfWin = %v, want 300", quote.ReceiveIfWin)
	}
	if math.Abs(quote.Profit-200) > 1e-6 {
		t.Errorf("Profit = %v, want 200", quote.Profit)
	}
}

func TestBetOnRangeLikelyOutcomeClampsLow(t *testing.T) {
	// Bin 0 is heavily bought; betting on it pays close to the 1.01x floor.
	q := []float64{50, 10, 10}

	quote, err := BetOnRange(q, []int{0}, 100, 100, DefaultOddsBand)
	if err != nil {
		t.Fatalf("BetOnRange failed: %v", err)
	}

	if quote.WinProbability <= 1.0/3.0 {
		t.Errorf("WinProbability = %v, expected above uniform 1/3", quote.WinProbability)
	}
	if quote.ReceiveIfWin < 1.01*100-1e-9 {
		t.Errorf("ReceiveIfWin = %v below clamp floor", quote.ReceiveIfWin)
	}
	if quote.ReceiveIfWin > 100/quote.WinProbability+1e-9 {
		t.Errorf("ReceiveIfWin = %v above raw payout", quote.ReceiveIfWin)
	}
}

func TestBetOnRangeClampCeiling(t *testing.T) {
	// A very unlikely bin: raw payout stake/p would exceed 10x, clamp to 1000.
	q := []float64{0, 1000, 1000}

	quote, err := BetOnRange(q, []int{0}, 100, 100, DefaultOddsBand)
	if err != nil {
		t.Fatalf("BetOnRange failed: %v", err)
	}

	if quote.WinProbability <= 0 || quote.WinProbability >= 1 {
		t.Fatalf("unexpected degenerate quote: %+v", quote)
	}
	if math.Abs(quote.ReceiveIfWin-1000) > 1e-6 {
		t.Errorf("ReceiveIfWin = %v, want clamped 1000", quote.ReceiveIfWin)
	}
	if math.Abs(quote.Profit-900) > 1e-6 {
		t.Errorf("Profit = %v, want 900", quote.Profit)
	}
}

func TestBetOnRangeOddsClampBand(t *testing.T) {
	q := []float64{40, 10, 25, 5, 30}

	for _, bins := range [][]int{{0}, {1}, {2}, {3}, {4}, {0, 1}, {2, 3, 4}, {1, 2, 3}} {
		quote, err := BetOnRange(q, bins, 250, 100, DefaultOddsBand)
		if err != nil {
			t.Fatalf("BetOnRange(%v) failed: %v", bins, err)
		}
		if quote.WinProbability <= 0 || quote.WinProbability >= 1 {
			t.Fatalf("BetOnRange(%v) degenerate: %+v", bins, quote)
		}
		if quote.ReceiveIfWin < 1.01*250-1e-9 || quote.ReceiveIfWin > 10*250+1e-9 {
			t.Errorf("BetOnRange(%v) payout %v outside [252.5, 2500]", bins, quote.ReceiveIfWin)
		}
	}
}

func TestBetOnRangeDegenerateGuards(t *testing.T) {
	q := []float64{10, 10, 10}

	cases := []struct {
		name  string
		bins  []int
		stake float64
	}{
		{"empty selection", nil, 100},
		{"zero stake", []int{0}, 0},
		{"negative stake", []int{0}, -50},
		{"all bins selected", []int{0, 1, 2}, 100},
		{"duplicates covering all bins", []int{0, 0, 1, 1, 2}, 100},
		{"indices out of range", []int{-1, 7}, 100},
	}

	for _, tc := range cases {
		quote, err := BetOnRange(q, tc.bins, tc.stake, 100, DefaultOddsBand)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if quote.WinProbability != 0 || quote.ReceiveIfWin != 0 || quote.Profit != 0 {
			t.Errorf("%s: expected zero quote, got %+v", tc.name, quote)
		}
	}
}

func TestBetOnRangeNeverNaN(t *testing.T) {
	// Extreme skew: the unselected mass underflows to ~0, pushing the covered
	// probability to 1. Must return the zero quote, never NaN or Inf.
	q := []float64{1e6, 0, 0}

	quote, err := BetOnRange(q, []int{0}, 100, 10, DefaultOddsBand)
	if err != nil {
		t.Fatalf("BetOnRange failed: %v", err)
	}
	for name, v := range map[string]float64{
		"WinProbability": quote.WinProbability,
		"ReceiveIfWin":   quote.ReceiveIfWin,
		"Profit":         quote.Profit,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("%s is not finite: %v", name, v)
		}
	}
}

func TestBetOnRangePropagatesInvalidParameter(t *testing.T) {
	if _, err := BetOnRange(nil, []int{0}, 100, 100, DefaultOddsBand); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for empty q, got %v", err)
	}
	if _, err := BetOnRange([]float64{1, 2}, []int{0}, 100, -1, DefaultOddsBand); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for b<0, got %v", err)
	}
}
