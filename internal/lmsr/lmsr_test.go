package lmsr

import (
	"errors"
	"math"
	"testing"
)

func TestCostInvalidParameters(t *testing.T) {
	if _, err := Cost(nil, 100); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for empty q, got %v", err)
	}
	if _, err := Cost([]float64{1, 2}, 0); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for b=0, got %v", err)
	}
	if _, err := Cost([]float64{1, 2}, -5); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for b<0, got %v", err)
	}
	if _, err := Cost([]float64{1, math.NaN()}, 100); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for NaN quantity, got %v", err)
	}
	if _, err := Probabilities(nil, 100); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter from Probabilities, got %v", err)
	}
	if _, err := CostOfTrade([]float64{1, 2}, 5, 1, 100); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for index out of range, got %v", err)
	}
}

func TestCostUniform(t *testing.T) {
	// All q equal: cost = b*ln(n*exp(q/b)) = q + b*ln(n)
	q := []float64{10, 10, 10}
	b := 100.0

	cost, err := Cost(q, b)
	if err != nil {
		t.Fatalf("Cost failed: %v", err)
	}

	want := 10 + b*math.Log(3)
	if math.Abs(cost-want) > 1e-9 {
		t.Errorf("Cost = %v, want %v", cost, want)
	}
}

func TestCostStableForLargeQuantities(t *testing.T) {
	// Naive exp(q/b) overflows float64 well before q/b = 1e5.
	q := []float64{1e7, 9.9e6, 5e6}
	b := 100.0

	cost, err := Cost(q, b)
	if err != nil {
		t.Fatalf("Cost failed: %v", err)
	}
	if math.IsInf(cost, 0) || math.IsNaN(cost) {
		t.Fatalf("Cost not finite for large quantities: %v", cost)
	}

	probs, err := Probabilities(q, b)
	if err != nil {
		t.Fatalf("Probabilities failed: %v", err)
	}
	for i, p := range probs {
		if math.IsNaN(p) || p < 0 || p > 1 {
			t.Errorf("probs[%d] = %v out of range", i, p)
		}
	}
}

func TestProbabilitiesNormalization(t *testing.T) {
	cases := [][]float64{
		{10, 10, 10},
		{50, 10, 10},
		{0, 0},
		{-30, 20, 100, 7},
		{1e6, 1e6 - 50, 1e6 - 100},
	}

	for _, q := range cases {
		probs, err := Probabilities(q, 100)
		if err != nil {
			t.Fatalf("Probabilities(%v) failed: %v", q, err)
		}

		var sum float64
		for _, p := range probs {
			sum += p
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("Probabilities(%v) sum = %v, want 1 within 1e-9", q, sum)
		}
	}
}

func TestProbabilitiesUniform(t *testing.T) {
	probs, err := Probabilities([]float64{10, 10, 10}, 100)
	if err != nil {
		t.Fatalf("Probabilities failed: %v", err)
	}
	for i, p := range probs {
		if math.Abs(p-1.0/3.0) > 1e-9 {
			t.Errorf("probs[%d] = %v, want 1/3", i, p)
		}
	}
}

func TestMonotonicPricing(t *testing.T) {
	q := []float64{10, 20, 30}
	b := 100.0

	before, err := Probabilities(q, b)
	if err != nil {
		t.Fatalf("Probabilities failed: %v", err)
	}

	bumped := []float64{10, 20 + 5, 30}
	after, err := Probabilities(bumped, b)
	if err != nil {
		t.Fatalf("Probabilities failed: %v", err)
	}

	if after[1] <= before[1] {
		t.Errorf("increasing q[1] did not increase its probability: %v -> %v", before[1], after[1])
	}
	for _, i := range []int{0, 2} {
		if after[i] >= before[i] {
			t.Errorf("increasing q[1] did not decrease probs[%d]: %v -> %v", i, before[i], after[i])
		}
	}
}

func TestCostOfTradePathIndependence(t *testing.T) {
	q := []float64{10, 20, 30}
	b := 100.0

	apply := func(base []float64, idx int, delta float64) []float64 {
		out := make([]float64, len(base))
		copy(out, base)
		out[idx] += delta
		return out
	}

	// Trade A: +15 on bin 0, trade B: -7 on bin 2.
	costAThenB := func() float64 {
		c1, err := CostOfTrade(q, 0, 15, b)
		if err != nil {
			t.Fatalf("CostOfTrade failed: %v", err)
		}
		q1 := apply(q, 0, 15)
		c2, err := CostOfTrade(q1, 2, -7, b)
		if err != nil {
			t.Fatalf("CostOfTrade failed: %v", err)
		}
		return c1 + c2
	}()

	costBThenA := func() float64 {
		c1, err := CostOfTrade(q, 2, -7, b)
		if err != nil {
			t.Fatalf("CostOfTrade failed: %v", err)
		}
		q1 := apply(q, 2, -7)
		c2, err := CostOfTrade(q1, 0, 15, b)
		if err != nil {
			t.Fatalf("CostOfTrade failed: %v", err)
		}
		return c1 + c2
	}()

	if math.Abs(costAThenB-costBThenA) > 1e-9 {
		t.Errorf("path dependence detected: A->B cost %v, B->A cost %v", costAThenB, costBThenA)
	}
}

func TestCostOfTradeDoesNotMutateInput(t *testing.T) {
	q := []float64{10, 20, 30}
	if _, err := CostOfTrade(q, 1, 50, 100); err != nil {
		t.Fatalf("CostOfTrade failed: %v", err)
	}
	if q[1] != 20 {
		t.Errorf("input q mutated: q[1] = %v", q[1])
	}
}

func TestCostOfTradeBuyPositiveSellNegative(t *testing.T) {
	q := []float64{10, 10, 10}
	b := 100.0

	buy, err := CostOfTrade(q, 0, 30, b)
	if err != nil {
		t.Fatalf("CostOfTrade failed: %v", err)
	}
	if buy <= 0 {
		t.Errorf("buy cost should be positive, got %v", buy)
	}

	sell, err := CostOfTrade(q, 0, -30, b)
	if err != nil {
		t.Fatalf("CostOfTrade failed: %v", err)
	}
	if sell >= 0 {
		t.Errorf("sell cost should be negative, got %v", sell)
	}
}
