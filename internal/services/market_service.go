package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"rangebet-market/internal/lmsr"
	"rangebet-market/internal/models"

	"gorm.io/gorm"
)

// ErrQuantityFloor means a sell would push a bin's outstanding quantity
// below zero.
var ErrQuantityFloor = errors.New("services: trade would push bin quantity below floor")

// MarketService handles market and bin-state operations
type MarketService struct {
	db *gorm.DB
}

func NewMarketService(db *gorm.DB) *MarketService {
	return &MarketService{db: db}
}

// CreateMarketRequest describes a new market and its price-bin grid.
type CreateMarketRequest struct {
	Question   string    `json:"question" binding:"required"`
	Slug       string    `json:"slug" binding:"required"`
	EndDate    time.Time `json:"end_date" binding:"required"`
	LiquidityB float64   `json:"liquidity_b"`
	BinCount   int       `json:"bin_count" binding:"required"`
	BinStart   float64   `json:"bin_start"`
	BinWidth   float64   `json:"bin_width" binding:"required"`
	OnChainID  *uint64   `json:"on_chain_id"`
}

// CreateMarket creates a market and its contiguous equal-width bins.
func (s *MarketService) CreateMarket(ctx context.Context, req *CreateMarketRequest) (*models.Market, error) {
	if req.BinCount < 2 {
		return nil, fmt.Errorf("bin count must be at least 2, got %d", req.BinCount)
	}
	if req.BinWidth <= 0 {
		return nil, fmt.Errorf("bin width must be positive, got %v", req.BinWidth)
	}
	liquidityB := req.LiquidityB
	if liquidityB == 0 {
		liquidityB = lmsr.DefaultLiquidity
	}
	if liquidityB <= 0 {
		return nil, fmt.Errorf("liquidity parameter must be positive, got %v", liquidityB)
	}

	market := &models.Market{
		Question:   req.Question,
		Slug:       req.Slug,
		Status:     models.MarketStatusOpen,
		EndDate:    req.EndDate,
		OnChainID:  req.OnChainID,
		LiquidityB: liquidityB,
		BinCount:   req.BinCount,
		BinStart:   req.BinStart,
		BinWidth:   req.BinWidth,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(market).Error; err != nil {
			return fmt.Errorf("failed to create market: %w", err)
		}

		bins := make([]models.MarketBin, req.BinCount)
		for i := 0; i < req.BinCount; i++ {
			bins[i] = models.MarketBin{
				MarketID: market.ID,
				BinIndex: i,
				Price:    req.BinStart + float64(i)*req.BinWidth,
				Quantity: 0,
			}
		}
		if err := tx.Create(&bins).Error; err != nil {
			return fmt.Errorf("failed to create market bins: %w", err)
		}
		market.Bins = bins
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[MarketService] Created market %q (%d bins, b=%v)", market.Slug, market.BinCount, market.LiquidityB)
	return market, nil
}

// GetMarkets returns markets filtered by status.
func (s *MarketService) GetMarkets(ctx context.Context, status string, limit, offset int) ([]models.Market, error) {
	var markets []models.Market
	query := s.db.WithContext(ctx)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("end_date ASC").Limit(limit).Offset(offset).Find(&markets).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch markets: %w", err)
	}
	return markets, nil
}

// GetMarketBySlug returns a market with its bins ordered by index.
func (s *MarketService) GetMarketBySlug(ctx context.Context, slug string) (*models.Market, error) {
	var market models.Market
	err := s.db.WithContext(ctx).
		Preload("Bins", func(db *gorm.DB) *gorm.DB { return db.Order("bin_index ASC") }).
		First(&market, "slug = ?", slug).Error
	if err != nil {
		return nil, err
	}
	return &market, nil
}

// GetMarketByID returns a market with its bins ordered by index.
func (s *MarketService) GetMarketByID(ctx context.Context, id uint) (*models.Market, error) {
	var market models.Market
	err := s.db.WithContext(ctx).
		Preload("Bins", func(db *gorm.DB) *gorm.DB { return db.Order("bin_index ASC") }).
		First(&market, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &market, nil
}

// ExpiredOpenMarkets lists OPEN markets past their end date that carry an
// on-chain binding, i.e. the settlement job's work queue.
func (s *MarketService) ExpiredOpenMarkets(ctx context.Context, now time.Time, limit int) ([]models.Market, error) {
	var markets []models.Market
	err := s.db.WithContext(ctx).
		Where("status = ? AND end_date <= ? AND on_chain_id IS NOT NULL", models.MarketStatusOpen, now).
		Order("end_date ASC").
		Limit(limit).
		Find(&markets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch expired markets: %w", err)
	}
	return markets, nil
}

// SetPaused toggles a market between open and paused. Closed and resolved
// markets are never touched; the update is conditional on the current status.
func (s *MarketService) SetPaused(ctx context.Context, id uint, paused bool) (*models.Market, error) {
	from, to := models.MarketStatusOpen, models.MarketStatusPaused
	if !paused {
		from, to = models.MarketStatusPaused, models.MarketStatusOpen
	}

	result := s.db.WithContext(ctx).Model(&models.Market{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update market status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("market %d is not %s", id, from)
	}

	return s.GetMarketByID(ctx, id)
}

// BinQuantities extracts the LMSR q vector from a market's bins, verifying
// the indices form the expected contiguous zero-based range.
func BinQuantities(market *models.Market) ([]float64, error) {
	if len(market.Bins) != market.BinCount {
		return nil, fmt.Errorf("market %d has %d bins, expected %d", market.ID, len(market.Bins), market.BinCount)
	}
	q := make([]float64, market.BinCount)
	for i, bin := range market.Bins {
		if bin.BinIndex != i {
			return nil, fmt.Errorf("market %d bin indices are not contiguous at position %d", market.ID, i)
		}
		q[i] = bin.Quantity
	}
	return q, nil
}

// ApplyTrade prices a quantity change on one bin via the LMSR cost function
// and commits it with an optimistic conditional update, so two concurrent
// trades cannot both apply against the same observed quantity.
func (s *MarketService) ApplyTrade(ctx context.Context, marketID uint, binIndex int, deltaShares float64) (float64, error) {
	market, err := s.GetMarketByID(ctx, marketID)
	if err != nil {
		return 0, err
	}
	if !market.IsOpen() {
		return 0, ErrMarketNotOpen
	}

	q, err := BinQuantities(market)
	if err != nil {
		return 0, err
	}

	cost, err := lmsr.CostOfTrade(q, binIndex, deltaShares, market.LiquidityB)
	if err != nil {
		return 0, err
	}

	oldQuantity := q[binIndex]
	newQuantity := oldQuantity + deltaShares
	if newQuantity < 0 {
		return 0, fmt.Errorf("%w: bin %d would go to %v", ErrQuantityFloor, binIndex, newQuantity)
	}

	result := s.db.WithContext(ctx).Model(&models.MarketBin{}).
		Where("market_id = ? AND bin_index = ? AND quantity = ?", marketID, binIndex, oldQuantity).
		Update("quantity", newQuantity)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update bin quantity: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, fmt.Errorf("concurrent trade on market %d bin %d, retry", marketID, binIndex)
	}

	return cost, nil
}

// CloseIfOpen performs the guarded OPEN -> CLOSED transition as a single
// conditional update. Returns false when the market was not open anymore (or
// already carried a resolution), i.e. the caller lost the race.
func (s *MarketService) CloseIfOpen(ctx context.Context, marketID uint, outcome string, resolvedAt time.Time) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.Market{}).
		Where("id = ? AND status = ? AND resolved_at IS NULL", marketID, models.MarketStatusOpen).
		Updates(map[string]interface{}{
			"status":             models.MarketStatusClosed,
			"resolved_at":        resolvedAt,
			"resolution_outcome": outcome,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to close market %d: %w", marketID, result.Error)
	}
	return result.RowsAffected == 1, nil
}
