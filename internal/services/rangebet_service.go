package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"rangebet-market/internal/lmsr"

	"gorm.io/gorm"
)

// ErrInvalidBinSelection means the requested bin set is empty, out of range,
// contains duplicates or is not contiguous.
var ErrInvalidBinSelection = errors.New("services: invalid bin selection")

// RangeBetService quotes stakes over contiguous bin ranges of a market.
type RangeBetService struct {
	db       *gorm.DB
	markets  *MarketService
	oddsBand lmsr.OddsBand
}

func NewRangeBetService(db *gorm.DB, oddsBand lmsr.OddsBand) *RangeBetService {
	return &RangeBetService{
		db:       db,
		markets:  NewMarketService(db),
		oddsBand: oddsBand,
	}
}

// RangeQuote is a priced range bet for one market.
type RangeQuote struct {
	MarketID   uint               `json:"market_id"`
	Slug       string             `json:"slug"`
	BinIndices []int              `json:"bin_indices"`
	Stake      float64            `json:"stake"`
	Quote      lmsr.RangeBetQuote `json:"quote"`
}

// validateSelection enforces the range-bet invariant: a non-empty, duplicate-free,
// contiguous run of in-range bin indices.
func validateSelection(binIndices []int, binCount int) ([]int, error) {
	if len(binIndices) == 0 {
		return nil, fmt.Errorf("%w: empty selection", ErrInvalidBinSelection)
	}

	sorted := make([]int, len(binIndices))
	copy(sorted, binIndices)
	sort.Ints(sorted)

	for i, idx := range sorted {
		if idx < 0 || idx >= binCount {
			return nil, fmt.Errorf("%w: index %d out of range [0, %d)", ErrInvalidBinSelection, idx, binCount)
		}
		if i > 0 && sorted[i] == sorted[i-1] {
			return nil, fmt.Errorf("%w: duplicate index %d", ErrInvalidBinSelection, idx)
		}
		if i > 0 && sorted[i] != sorted[i-1]+1 {
			return nil, fmt.Errorf("%w: indices are not contiguous", ErrInvalidBinSelection)
		}
	}
	return sorted, nil
}

// QuoteRange prices a stake over the selected bins of the market.
func (s *RangeBetService) QuoteRange(ctx context.Context, slug string, binIndices []int, stake float64) (*RangeQuote, error) {
	market, err := s.markets.GetMarketBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !market.IsOpen() {
		return nil, ErrMarketNotOpen
	}

	sorted, err := validateSelection(binIndices, market.BinCount)
	if err != nil {
		return nil, err
	}
	if stake <= 0 {
		return nil, fmt.Errorf("%w: stake must be positive", ErrInvalidBinSelection)
	}

	q, err := BinQuantities(market)
	if err != nil {
		return nil, err
	}

	quote, err := lmsr.BetOnRange(q, sorted, stake, market.LiquidityB, s.oddsBand)
	if err != nil {
		return nil, err
	}

	return &RangeQuote{
		MarketID:   market.ID,
		Slug:       market.Slug,
		BinIndices: sorted,
		Stake:      stake,
		Quote:      quote,
	}, nil
}

// Probabilities returns the market's current implied probability per bin.
func (s *RangeBetService) Probabilities(ctx context.Context, slug string) ([]float64, error) {
	market, err := s.markets.GetMarketBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	q, err := BinQuantities(market)
	if err != nil {
		return nil, err
	}

	return lmsr.Probabilities(q, market.LiquidityB)
}
