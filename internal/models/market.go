package models

import (
	"time"
)

// Market status constants
const (
	MarketStatusOpen     = "open"
	MarketStatusClosed   = "closed"
	MarketStatusResolved = "resolved"
	MarketStatusPaused   = "paused"
)

// Market is a tradable question over a price outcome, priced by an LMSR over
// discretized price bins. ResolutionOutcome and ResolvedAt stay null until the
// settlement coordinator closes the market; once set they are never changed.
type Market struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Question          string     `gorm:"size:500;not null" json:"question"`
	Slug              string     `gorm:"size:255;not null;uniqueIndex" json:"slug"`
	Status            string     `gorm:"size:50;default:open;index" json:"status"` // open, closed, resolved, paused
	EndDate           time.Time  `gorm:"not null;index" json:"end_date"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
	ResolutionOutcome *string    `gorm:"size:100" json:"resolution_outcome,omitempty"` // decimal string
	OnChainID         *uint64    `gorm:"uniqueIndex" json:"on_chain_id,omitempty"`

	// LMSR pricing parameters. Bins partition [BinStart, BinStart+BinCount*BinWidth)
	// into equal-width contiguous intervals.
	LiquidityB float64 `gorm:"not null;default:100" json:"liquidity_b"`
	BinCount   int     `gorm:"not null" json:"bin_count"`
	BinStart   float64 `gorm:"not null" json:"bin_start"`
	BinWidth   float64 `gorm:"not null" json:"bin_width"`

	Bins      []MarketBin `gorm:"foreignKey:MarketID" json:"bins,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (Market) TableName() string {
	return "markets"
}

// IsOpen reports whether the market can still be traded and resolved.
func (m *Market) IsOpen() bool {
	return m.Status == MarketStatusOpen
}

// MarketBin holds the LMSR outstanding-share quantity q_i for one price bin.
// BinIndex is the zero-based ordinal; indices are contiguous per market.
type MarketBin struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	MarketID uint    `gorm:"not null;index:idx_market_bin,unique" json:"market_id"`
	BinIndex int     `gorm:"not null;index:idx_market_bin,unique" json:"bin_index"`
	Price    float64 `gorm:"not null" json:"price"` // lower bound of the bin interval
	Quantity float64 `gorm:"not null;default:0" json:"quantity"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (MarketBin) TableName() string {
	return "market_bins"
}
