// Package ledger validates trades between the reference currency and tradable
// coins, prices them through a PriceOracle and applies both balance legs as one
// atomic transfer.
package ledger

import (
	"context"
	"strings"

	"coin-ledger-go/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side is the direction of a trade, seen from the coin.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Leg is one side of a two-sided balance mutation.
type Leg struct {
	Symbol string
	Amount decimal.Decimal
}

// PriceOracle supplies the current price of one unit of a coin in reference currency terms.
type PriceOracle interface {
	UnitPrice(ctx context.Context, oracleID string) (decimal.Decimal, map[string]any, error)
}

// AssetCatalog knows which coins exist and which are open for trading.
type AssetCatalog interface {
	Lookup(ctx context.Context, symbol string) (models.Asset, bool, error)
	IsActive(ctx context.Context, symbol string) (bool, error)
	ListActive(ctx context.Context) ([]models.Asset, error)
}

// BalanceStore owns every balance mutation.
type BalanceStore interface {
	// Read returns the balance, zero when the row is missing for an existing account.
	Read(ctx context.Context, accountID uuid.UUID, symbol string) (decimal.Decimal, error)
	List(ctx context.Context, accountID uuid.UUID) ([]models.Balance, error)
	// Transfer debits one leg and credits the other in a single unit of work.
	// It fails with ErrInsufficientBalance when the debit would go negative and
	// with ErrMutationConflict when a concurrent writer won the race.
	// record, when not nil, is persisted in the same unit of work.
	Transfer(ctx context.Context, accountID uuid.UUID, debit, credit Leg, record *models.Trade) error
}

// TradeJournal reads back committed trades.
type TradeJournal interface {
	Trades(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Trade, error)
}

// AccountStore persists a new account together with its seeded balances, all or nothing.
type AccountStore interface {
	CreateWithBalances(ctx context.Context, account *models.Account, balances []models.Balance) error
}

// TradeRequest is a buy or sell asked for by an account. When UseAll is set
// Quantity is ignored and the whole available balance is traded.
type TradeRequest struct {
	AccountID uuid.UUID
	Symbol    string
	Quantity  string
	UseAll    bool
}

// Execution describes a committed trade.
type Execution struct {
	TradeID       uuid.UUID       `json:"trade_id"`
	Side          Side            `json:"side"`
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Quantity      decimal.Decimal `json:"quantity"`
	QuoteQuantity decimal.Decimal `json:"quote_quantity"`
}

// NormalizeSymbol makes asset symbols case-insensitive.
func NormalizeSymbol(symbol string) string {
	return strings.ToLower(strings.TrimSpace(symbol))
}
