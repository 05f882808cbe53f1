package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Balance is the amount of one asset held by one account.
// Amount is kept as text so the database never rounds it through a float.
// Version is bumped on every write and guards conditional updates.
type Balance struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	AccountID uuid.UUID       `gorm:"type:text;not null;uniqueIndex:idx_account_symbol" json:"account_id"`
	Symbol    string          `gorm:"not null;uniqueIndex:idx_account_symbol" json:"symbol"`
	Amount    decimal.Decimal `gorm:"type:text;not null" json:"amount"`
	Version   int64           `gorm:"not null;default:0" json:"-"`
	UpdatedAt time.Time       `json:"updated_at"`
}
