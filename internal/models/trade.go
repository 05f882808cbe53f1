package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trade represents a committed trade, written in the same transaction as its two balance legs.
type Trade struct {
	ID            uuid.UUID       `gorm:"type:text;primaryKey" json:"id"`
	AccountID     uuid.UUID       `gorm:"type:text;not null;index" json:"account_id"`
	Symbol        string          `gorm:"not null" json:"symbol"`
	Side          string          `gorm:"not null" json:"side"` // "BUY" or "SELL"
	Price         decimal.Decimal `gorm:"type:text;not null" json:"price"`
	Quantity      decimal.Decimal `gorm:"type:text;not null" json:"quantity"`
	QuoteQuantity decimal.Decimal `gorm:"type:text;not null" json:"quote_quantity"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
}
