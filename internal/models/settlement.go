package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Settlement attempt status constants
const (
	SettlementStatusSuccess = "success"
	SettlementStatusNoData  = "no_data"
	SettlementStatusFailed  = "failed"
	// SettlementStatusPartial marks the one non-idempotent hazard: the
	// on-chain transaction mined but the off-chain market update failed.
	// These rows are the operator's reconciliation queue.
	SettlementStatusPartial = "partial"
)

// SettlementAttempt is the audit record of one resolution attempt for a
// market. The market itself only ever transitions open -> closed; everything
// that happened on the way (or went wrong) lands here.
type SettlementAttempt struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MarketID    uint      `gorm:"not null;index" json:"market_id"`
	Symbol      string    `gorm:"size:20" json:"symbol"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`

	ClosePrice  *decimal.Decimal `gorm:"type:decimal(30,10)" json:"close_price,omitempty"`
	ScaledValue *string          `gorm:"size:100" json:"scaled_value,omitempty"`
	TxHash      *string          `gorm:"size:100" json:"tx_hash,omitempty"`

	Status    string    `gorm:"size:20;not null;index" json:"status"` // success, no_data, failed, partial
	Error     string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (SettlementAttempt) TableName() string {
	return "settlement_attempts"
}
