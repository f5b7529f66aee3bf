package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	"rangebet-market/internal/models"
	"rangebet-market/internal/oracle"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrMarketNotOpen means resolution (or trading) was attempted on a
	// market that is paused, closed or already resolved. Skip, don't retry.
	ErrMarketNotOpen = errors.New("services: market is not open")

	// ErrMissingOnChainBinding means the market was never deployed to the
	// ledger, so there is nothing to settle on-chain.
	ErrMissingOnChainBinding = errors.New("services: market has no on-chain id")

	// ErrPartialSettlement means the settlement transaction mined but the
	// off-chain market row could not be closed. The system is inconsistent
	// until an operator reconciles; retries must not re-submit.
	ErrPartialSettlement = errors.New("services: on-chain settled but off-chain update failed")

	// ErrInvalidSettlementValue means the fetched close cannot be
	// represented in the contract's unsigned settlement field.
	ErrInvalidSettlementValue = errors.New("services: settlement value not representable as uint256")
)

// settlementScale converts a close price to the contract's fixed-point
// integer representation (6 decimal places).
var settlementScale = decimal.NewFromInt(1_000_000)

// PriceSource resolves a settlement close price, nil when no candle has
// landed in the sample window yet.
type PriceSource interface {
	FetchClose(ctx context.Context, symbol oracle.Symbol, atTime time.Time) (*oracle.PriceData, error)
}

// SettlementLedger submits settlements to the on-chain contract.
type SettlementLedger interface {
	SettleMarket(ctx context.Context, marketID uint64, settlementValue *big.Int) (string, error)
	IsSettled(ctx context.Context, marketID uint64) (bool, error)
}

// SettlementResult is the outcome of one successful (or no-op) Resolve call.
type SettlementResult struct {
	Resolved        bool    `json:"resolved"`
	TxHash          string  `json:"tx_hash,omitempty"`
	SettlementClose float64 `json:"settlement_close,omitempty"`
}

// SettlementService drives a market from open to closed with the settlement
// value written both on-chain and off-chain. A failed attempt never mutates
// the market, so retrying an open market is always safe; the one exception is
// the partial-settlement hazard, which is surfaced as ErrPartialSettlement
// and recorded for reconciliation.
type SettlementService struct {
	db      *gorm.DB
	markets *MarketService
	prices  PriceSource
	ledger  SettlementLedger
	mu      sync.Mutex
}

func NewSettlementService(db *gorm.DB, prices PriceSource, ledger SettlementLedger) *SettlementService {
	return &SettlementService{
		db:      db,
		markets: NewMarketService(db),
		prices:  prices,
		ledger:  ledger,
	}
}

// ResolveBySlug loads the market and resolves it.
func (s *SettlementService) ResolveBySlug(ctx context.Context, slug string) (*SettlementResult, error) {
	market, err := s.markets.GetMarketBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.Resolve(ctx, market)
}

// Resolve performs one settlement attempt:
//
//	guard open -> extract symbol -> fetch close -> scale -> submit -> persist
//
// Attempts are serialized; the final persistence step is additionally a
// conditional update, so a lost race can never close a market twice.
func (s *SettlementService) Resolve(ctx context.Context, market *models.Market) (*SettlementResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !market.IsOpen() {
		return nil, fmt.Errorf("%w: market %d is %s", ErrMarketNotOpen, market.ID, market.Status)
	}
	if market.OnChainID == nil {
		return nil, fmt.Errorf("%w: market %d", ErrMissingOnChainBinding, market.ID)
	}
	onChainID := *market.OnChainID

	attempt := &models.SettlementAttempt{
		ID:          uuid.New(),
		MarketID:    market.ID,
		WindowStart: market.EndDate.Add(-60 * time.Second),
		WindowEnd:   market.EndDate,
	}

	symbol, err := oracle.ExtractSymbol(market.Question)
	if err != nil {
		s.recordAttempt(attempt, models.SettlementStatusFailed, err)
		return nil, err
	}
	attempt.Symbol = string(symbol)

	// A prior attempt may have mined and then failed to persist. Never
	// re-submit over an already-settled on-chain market.
	settled, err := s.ledger.IsSettled(ctx, onChainID)
	if err != nil {
		return nil, fmt.Errorf("failed to check on-chain settlement state: %w", err)
	}
	if settled {
		err := fmt.Errorf("%w: market %d already settled on-chain", ErrPartialSettlement, market.ID)
		s.recordAttempt(attempt, models.SettlementStatusPartial, err)
		return nil, err
	}

	priceData, err := s.prices.FetchClose(ctx, symbol, market.EndDate)
	if err != nil {
		s.recordAttempt(attempt, models.SettlementStatusFailed, err)
		return nil, err
	}
	if priceData == nil {
		// Feed reachable but the candle has not landed yet. Not an error:
		// leave the market open and let the caller retry later.
		log.Printf("[Settlement] No %s candle in window ending %s for market %d, skipping",
			symbol, market.EndDate.Format(time.RFC3339), market.ID)
		s.recordAttempt(attempt, models.SettlementStatusNoData, nil)
		return &SettlementResult{Resolved: false}, nil
	}

	closePrice := decimal.NewFromFloat(priceData.Close)
	attempt.ClosePrice = &closePrice

	// Fixed-point x1e6, round half away from zero, per the contract's
	// integer settlement representation.
	scaled := closePrice.Mul(settlementScale).Round(0)
	if scaled.Sign() < 0 {
		err := fmt.Errorf("%w: close %s", ErrInvalidSettlementValue, closePrice)
		s.recordAttempt(attempt, models.SettlementStatusFailed, err)
		return nil, err
	}
	scaledStr := scaled.String()
	attempt.ScaledValue = &scaledStr

	txHash, err := s.ledger.SettleMarket(ctx, onChainID, scaled.BigInt())
	if err != nil {
		if txHash != "" {
			attempt.TxHash = &txHash
		}
		s.recordAttempt(attempt, models.SettlementStatusFailed, err)
		return nil, err
	}
	attempt.TxHash = &txHash

	closed, err := s.markets.CloseIfOpen(ctx, market.ID, closePrice.String(), time.Now())
	if err != nil || !closed {
		if err == nil {
			err = fmt.Errorf("market %d no longer open at persistence time", market.ID)
		}
		wrapped := fmt.Errorf("%w: tx %s: %v", ErrPartialSettlement, txHash, err)
		s.recordAttempt(attempt, models.SettlementStatusPartial, wrapped)
		log.Printf("[Settlement] PARTIAL SETTLEMENT for market %d: %v", market.ID, wrapped)
		return nil, wrapped
	}

	s.recordAttempt(attempt, models.SettlementStatusSuccess, nil)
	log.Printf("[Settlement] Market %d settled at %s (tx %s)", market.ID, closePrice, txHash)

	return &SettlementResult{
		Resolved:        true,
		TxHash:          txHash,
		SettlementClose: priceData.Close,
	}, nil
}

// recordAttempt persists the audit row for one resolution attempt. Best
// effort: a failed write must not mask the attempt's own outcome.
func (s *SettlementService) recordAttempt(attempt *models.SettlementAttempt, status string, cause error) {
	attempt.Status = status
	if cause != nil {
		attempt.Error = cause.Error()
	}
	if err := s.db.Create(attempt).Error; err != nil {
		log.Printf("[Settlement] Failed to record settlement attempt for market %d: %v", attempt.MarketID, err)
	}
}
