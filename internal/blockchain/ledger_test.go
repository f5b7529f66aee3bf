package blockchain

import (
	"math/big"
	"testing"
)

func TestFeeCapLegacyChain(t *testing.T) {
	// Pre-London chains report no base fee; the fee cap must signal the
	// legacy path instead of dereferencing nil.
	if got := feeCap(nil, big.NewInt(2_000_000_000)); got != nil {
		t.Errorf("feeCap with nil base fee = %s, want nil", got)
	}
}

func TestFeeCapEIP1559(t *testing.T) {
	baseFee := big.NewInt(30_000_000_000)
	tip := big.NewInt(2_000_000_000)

	got := feeCap(baseFee, tip)
	want := big.NewInt(62_000_000_000) // tip + 2*baseFee
	if got.Cmp(want) != 0 {
		t.Errorf("feeCap = %s, want %s", got, want)
	}
}
