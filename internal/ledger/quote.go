package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Quote is the price of one unit of Symbol at the moment it was resolved.
type Quote struct {
	Symbol    string          `json:"symbol"`
	UnitPrice decimal.Decimal `json:"price"`
	Raw       map[string]any  `json:"data"`
}

// Resolver checks that a coin is tradable and asks the oracle for its price.
// It never caches: every trade is priced at execution time.
type Resolver struct {
	logger    *zap.Logger
	catalog   AssetCatalog
	oracle    PriceOracle
	reference string
	timeout   time.Duration
}

// NewResolver creates a Resolver. A zero timeout leaves the caller's deadline in charge.
func NewResolver(logger *zap.Logger, catalog AssetCatalog, oracle PriceOracle, reference string, timeout time.Duration) *Resolver {
	return &Resolver{
		logger:    logger.Named("quote-resolver"),
		catalog:   catalog,
		oracle:    oracle,
		reference: NormalizeSymbol(reference),
		timeout:   timeout,
	}
}

// Resolve prices symbol for a trade on side. Deactivated coins can still be sold
// so that existing positions are never stranded, but not bought.
func (r *Resolver) Resolve(ctx context.Context, symbol string, side Side) (Quote, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" || symbol == r.reference {
		return Quote{}, fmt.Errorf("%w: %q", ErrUnsupportedAsset, symbol)
	}

	asset, ok, err := r.catalog.Lookup(ctx, symbol)
	if err != nil {
		return Quote{}, fmt.Errorf("could not look up asset %s: %w", symbol, err)
	}
	if !ok || asset.Reference {
		return Quote{}, fmt.Errorf("%w: %q", ErrUnsupportedAsset, symbol)
	}
	if !asset.Active && side != SideSell {
		return Quote{}, fmt.Errorf("%w: %q is not active", ErrUnsupportedAsset, symbol)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	price, raw, err := r.oracle.UnitPrice(ctx, asset.OracleID)
	if err != nil {
		r.logger.Warn("Price oracle failed", zap.String("symbol", symbol), zap.Error(err))
		return Quote{}, fmt.Errorf("%w: %s: %v", ErrQuoteUnavailable, symbol, err)
	}
	if !price.IsPositive() {
		r.logger.Warn("Price oracle returned a non-positive price",
			zap.String("symbol", symbol), zap.String("price", price.String()))
		return Quote{}, fmt.Errorf("%w: %s: non-positive price %s", ErrQuoteUnavailable, symbol, price)
	}

	return Quote{Symbol: symbol, UnitPrice: price, Raw: raw}, nil
}
