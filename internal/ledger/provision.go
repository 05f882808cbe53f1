package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"coin-ledger-go/internal/config"
	"coin-ledger-go/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Provisioner seeds the balances of a freshly registered account.
type Provisioner struct {
	logger    *zap.Logger
	accounts  AccountStore
	catalog   AssetCatalog
	reference string
	starting  decimal.Decimal
}

// NewProvisioner validates the starting balance up front so a bad config fails at startup.
func NewProvisioner(logger *zap.Logger, cfg *config.Ledger, accounts AccountStore, catalog AssetCatalog) (*Provisioner, error) {
	starting, err := ValidateQuantity(cfg.StartingBalance, decimal.Zero, false)
	if err != nil {
		return nil, fmt.Errorf("invalid starting balance %q: %w", cfg.StartingBalance, err)
	}
	reference := NormalizeSymbol(cfg.ReferenceCurrency)
	if reference == "" {
		return nil, fmt.Errorf("reference currency is not configured")
	}
	return &Provisioner{
		logger:    logger.Named("provisioner"),
		accounts:  accounts,
		catalog:   catalog,
		reference: reference,
		starting:  starting,
	}, nil
}

// Provision stores account with the starting reference balance and a zero balance
// for every active coin. Either all of it is committed or none of it.
func (p *Provisioner) Provision(ctx context.Context, account *models.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))

	l := p.logger.With(zap.String("account_id", account.ID.String()))

	assets, err := p.catalog.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("%w: could not list active assets: %v", ErrProvisioningFailed, err)
	}

	balances := make([]models.Balance, 0, len(assets)+1)
	balances = append(balances, models.Balance{AccountID: account.ID, Symbol: p.reference, Amount: p.starting})
	for _, asset := range assets {
		if asset.Reference || asset.Symbol == p.reference {
			continue
		}
		balances = append(balances, models.Balance{AccountID: account.ID, Symbol: asset.Symbol, Amount: decimal.Zero})
	}

	if err := p.accounts.CreateWithBalances(ctx, account, balances); err != nil {
		if errors.Is(err, ErrAccountExists) {
			return err
		}
		l.Error("Failed to provision account", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrProvisioningFailed, err)
	}

	l.Info("Account provisioned",
		zap.String("starting_balance", p.starting.String()),
		zap.Int("balances", len(balances)))
	return nil
}
