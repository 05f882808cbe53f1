package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coin-ledger-go/internal/config"
	"coin-ledger-go/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxBackoff = time.Second

// Engine is the only component allowed to move value between balances.
type Engine struct {
	logger       *zap.Logger
	balances     BalanceStore
	journal      TradeJournal
	catalog      AssetCatalog
	resolver     *Resolver
	reference    string
	maxRetries   int
	retryBackoff time.Duration
}

// NewEngine creates a new trade engine. journal may be nil when trade history is not needed.
func NewEngine(logger *zap.Logger, cfg *config.Ledger, balances BalanceStore, journal TradeJournal, catalog AssetCatalog, resolver *Resolver) *Engine {
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Engine{
		logger:       logger.Named("trade-engine"),
		balances:     balances,
		journal:      journal,
		catalog:      catalog,
		resolver:     resolver,
		reference:    NormalizeSymbol(cfg.ReferenceCurrency),
		maxRetries:   maxRetries,
		retryBackoff: cfg.RetryBackoff,
	}
}

// Buy spends reference currency on req.Symbol at the current price.
func (e *Engine) Buy(ctx context.Context, req TradeRequest) (Execution, error) {
	symbol := NormalizeSymbol(req.Symbol)
	l := e.logger.With(
		zap.String("account_id", req.AccountID.String()),
		zap.String("symbol", symbol),
		zap.String("side", string(SideBuy)),
		zap.Bool("all", req.UseAll),
	)

	requested, err := e.requestedQuantity(req)
	if err != nil {
		return Execution{}, err
	}

	cash, err := e.balances.Read(ctx, req.AccountID, e.reference)
	if err != nil {
		return Execution{}, err
	}

	quote, err := e.resolver.Resolve(ctx, symbol, SideBuy)
	if err != nil {
		return Execution{}, err
	}
	price := quote.UnitPrice

	quantity := requested
	if req.UseAll {
		affordable := cash.Div(price).RoundFloor(Precision)
		if quantity, err = ValidateQuantity("", affordable, true); err != nil {
			return Execution{}, fmt.Errorf("%w: %s %s does not buy any %s at %s",
				err, cash, e.reference, symbol, price)
		}
	}

	cost := price.Mul(quantity).RoundCeil(Precision)
	if cost.GreaterThan(cash) {
		return Execution{}, fmt.Errorf("%w: cost %s exceeds %s balance %s",
			ErrInsufficientBalance, cost, e.reference, cash)
	}

	exec := Execution{
		TradeID:       uuid.New(),
		Side:          SideBuy,
		Symbol:        symbol,
		Price:         price,
		Quantity:      quantity,
		QuoteQuantity: cost,
	}
	debit := Leg{Symbol: e.reference, Amount: cost}
	credit := Leg{Symbol: symbol, Amount: quantity}

	if err := e.transfer(ctx, l, req.AccountID, debit, credit, exec); err != nil {
		return Execution{}, err
	}

	l.Info("Buy executed",
		zap.String("price", price.String()),
		zap.String("quantity", quantity.String()),
		zap.String("cost", cost.String()))
	return exec, nil
}

// Sell turns req.Symbol back into reference currency at the current price.
func (e *Engine) Sell(ctx context.Context, req TradeRequest) (Execution, error) {
	symbol := NormalizeSymbol(req.Symbol)
	l := e.logger.With(
		zap.String("account_id", req.AccountID.String()),
		zap.String("symbol", symbol),
		zap.String("side", string(SideSell)),
		zap.Bool("all", req.UseAll),
	)

	requested, err := e.requestedQuantity(req)
	if err != nil {
		return Execution{}, err
	}

	// The reference currency never has a position of its own to sell.
	if symbol == "" || symbol == e.reference {
		return Execution{}, fmt.Errorf("%w: %q", ErrUnsupportedAsset, symbol)
	}

	held, err := e.balances.Read(ctx, req.AccountID, symbol)
	if err != nil {
		return Execution{}, err
	}

	quote, err := e.resolver.Resolve(ctx, symbol, SideSell)
	if err != nil {
		return Execution{}, err
	}
	price := quote.UnitPrice

	quantity := requested
	if req.UseAll {
		if quantity, err = ValidateQuantity("", held, true); err != nil {
			return Execution{}, fmt.Errorf("%w: no %s to sell", err, symbol)
		}
	} else if quantity.GreaterThan(held) {
		return Execution{}, fmt.Errorf("%w: selling %s exceeds %s balance %s",
			ErrInsufficientBalance, quantity, symbol, held)
	}

	proceeds := price.Mul(quantity).RoundFloor(Precision)
	if !proceeds.IsPositive() {
		return Execution{}, fmt.Errorf("%w: selling %s %s at %s yields no %s",
			ErrInsufficientBalance, quantity, symbol, price, e.reference)
	}

	exec := Execution{
		TradeID:       uuid.New(),
		Side:          SideSell,
		Symbol:        symbol,
		Price:         price,
		Quantity:      quantity,
		QuoteQuantity: proceeds,
	}
	debit := Leg{Symbol: symbol, Amount: quantity}
	credit := Leg{Symbol: e.reference, Amount: proceeds}

	if err := e.transfer(ctx, l, req.AccountID, debit, credit, exec); err != nil {
		return Execution{}, err
	}

	l.Info("Sell executed",
		zap.String("price", price.String()),
		zap.String("quantity", quantity.String()),
		zap.String("proceeds", proceeds.String()))
	return exec, nil
}

// Quote prices a coin without trading it.
func (e *Engine) Quote(ctx context.Context, symbol string) (Quote, error) {
	return e.resolver.Resolve(ctx, symbol, SideBuy)
}

// Balances lists an account's balances. Zero balances are skipped unless includeZero is set.
func (e *Engine) Balances(ctx context.Context, accountID uuid.UUID, includeZero bool) ([]models.Balance, error) {
	all, err := e.balances.List(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if includeZero {
		return all, nil
	}
	held := make([]models.Balance, 0, len(all))
	for _, b := range all {
		if !b.Amount.IsZero() {
			held = append(held, b)
		}
	}
	return held, nil
}

// Trades returns the most recent trades of an account, newest first.
func (e *Engine) Trades(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Trade, error) {
	if e.journal == nil {
		return nil, nil
	}
	return e.journal.Trades(ctx, accountID, limit)
}

// ActiveAssets lists the coins new trades can be opened on.
func (e *Engine) ActiveAssets(ctx context.Context) ([]models.Asset, error) {
	assets, err := e.catalog.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	coins := make([]models.Asset, 0, len(assets))
	for _, a := range assets {
		if !a.Reference {
			coins = append(coins, a)
		}
	}
	return coins, nil
}

// requestedQuantity validates the manual quantity before any store or oracle call.
func (e *Engine) requestedQuantity(req TradeRequest) (decimal.Decimal, error) {
	if req.UseAll {
		return decimal.Zero, nil
	}
	qty, err := ValidateQuantity(req.Quantity, decimal.Zero, false)
	if err != nil {
		return decimal.Zero, err
	}
	if qty.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: quantity must be greater than zero", ErrInvalidQuantityFormat)
	}
	return qty, nil
}

// transfer applies both legs, retrying conflicts with exponential backoff.
// The store re-checks the debit leg on every attempt.
func (e *Engine) transfer(ctx context.Context, l *zap.Logger, accountID uuid.UUID, debit, credit Leg, exec Execution) error {
	record := &models.Trade{
		ID:            exec.TradeID,
		AccountID:     accountID,
		Symbol:        exec.Symbol,
		Side:          string(exec.Side),
		Price:         exec.Price,
		Quantity:      exec.Quantity,
		QuoteQuantity: exec.QuoteQuantity,
	}

	var err error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		err = e.balances.Transfer(ctx, accountID, debit, credit, record)
		if !errors.Is(err, ErrMutationConflict) {
			return err
		}
		if attempt == e.maxRetries {
			break
		}

		wait := backoff(e.retryBackoff, attempt)
		l.Warn("Balance transfer conflicted, retrying...",
			zap.Int("attempt", attempt+1),
			zap.Duration("retry_after", wait))

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrMutationConflict, ctx.Err())
		}
	}

	l.Error("Balance transfer kept conflicting", zap.Int("attempts", e.maxRetries+1), zap.Error(err))
	return err
}

// backoff returns base * 2^attempt, capped at maxBackoff.
func backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt > 30 {
		return maxBackoff
	}
	wait := base * time.Duration(1<<attempt)
	if wait > maxBackoff || wait <= 0 {
		return maxBackoff
	}
	return wait
}
