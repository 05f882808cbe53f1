package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coin-ledger-go/internal/ledger"
	"coin-ledger-go/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Read returns the amount of symbol held by the account.
// A missing row reads as zero as long as the account itself exists.
func (s *Store) Read(ctx context.Context, accountID uuid.UUID, symbol string) (decimal.Decimal, error) {
	db := s.db.WithContext(ctx)
	balance, found, err := findBalance(db, accountID, ledger.NormalizeSymbol(symbol))
	if err != nil {
		return decimal.Zero, err
	}
	if found {
		return balance.Amount, nil
	}
	if err := requireAccount(db, accountID); err != nil {
		return decimal.Zero, err
	}
	return decimal.Zero, nil
}

// List returns every balance row of the account ordered by symbol.
func (s *Store) List(ctx context.Context, accountID uuid.UUID) ([]models.Balance, error) {
	db := s.db.WithContext(ctx)
	if err := requireAccount(db, accountID); err != nil {
		return nil, err
	}
	var balances []models.Balance
	if err := db.Where("account_id = ?", accountID).Order("symbol").Find(&balances).Error; err != nil {
		return nil, fmt.Errorf("could not list balances: %w", err)
	}
	return balances, nil
}

// Transfer applies the debit and credit legs in one transaction.
// Each row is written with a compare-and-swap on its version, so a concurrent
// writer that slipped in between read and write makes the whole transfer fail
// with ledger.ErrMutationConflict and nothing is committed.
func (s *Store) Transfer(ctx context.Context, accountID uuid.UUID, debit, credit ledger.Leg, record *models.Trade) error {
	debit.Symbol = ledger.NormalizeSymbol(debit.Symbol)
	credit.Symbol = ledger.NormalizeSymbol(credit.Symbol)

	if debit.Symbol == credit.Symbol {
		return fmt.Errorf("transfer legs must differ, both are %s", debit.Symbol)
	}
	if debit.Amount.IsNegative() || credit.Amount.IsNegative() {
		return fmt.Errorf("transfer amounts must not be negative")
	}
	if err := ledger.CheckPrecision(debit.Amount); err != nil {
		return err
	}
	if err := ledger.CheckPrecision(credit.Amount); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		from, found, err := findBalance(tx, accountID, debit.Symbol)
		if err != nil {
			return err
		}
		if !found {
			if err := requireAccount(tx, accountID); err != nil {
				return err
			}
			from = models.Balance{Amount: decimal.Zero}
		}
		if from.Amount.LessThan(debit.Amount) {
			return fmt.Errorf("%w: %s balance %s is below %s",
				ledger.ErrInsufficientBalance, debit.Symbol, from.Amount, debit.Amount)
		}

		to, found, err := findBalance(tx, accountID, credit.Symbol)
		if err != nil {
			return err
		}
		if !found {
			// The coin was activated after this account was provisioned.
			if to, err = createBalance(tx, accountID, credit.Symbol); err != nil {
				return err
			}
		}

		if !debit.Amount.IsZero() {
			if err := compareAndSwap(tx, from, from.Amount.Sub(debit.Amount)); err != nil {
				return err
			}
		}
		if !credit.Amount.IsZero() {
			if err := compareAndSwap(tx, to, to.Amount.Add(credit.Amount)); err != nil {
				return err
			}
		}

		if record != nil {
			if err := tx.Create(record).Error; err != nil {
				return fmt.Errorf("could not record trade: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ledger.ErrMutationConflict) {
			s.logger.Debug("Transfer rolled back on version conflict",
				zap.String("account_id", accountID.String()),
				zap.String("debit", debit.Symbol),
				zap.String("credit", credit.Symbol))
		}
		return err
	}
	return nil
}

// Trades returns the account's most recent trades, newest first. limit <= 0 means no limit.
func (s *Store) Trades(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Trade, error) {
	q := s.db.WithContext(ctx).Where("account_id = ?", accountID).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var trades []models.Trade
	if err := q.Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("could not get trades: %w", err)
	}
	return trades, nil
}

func findBalance(db *gorm.DB, accountID uuid.UUID, symbol string) (models.Balance, bool, error) {
	var balance models.Balance
	err := db.Where("account_id = ? AND symbol = ?", accountID, symbol).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Balance{}, false, nil
	}
	if err != nil {
		return models.Balance{}, false, fmt.Errorf("could not read %s balance: %w", symbol, err)
	}
	return balance, true, nil
}

func createBalance(tx *gorm.DB, accountID uuid.UUID, symbol string) (models.Balance, error) {
	if err := requireAccount(tx, accountID); err != nil {
		return models.Balance{}, err
	}
	balance := models.Balance{AccountID: accountID, Symbol: symbol, Amount: decimal.Zero}
	if err := tx.Create(&balance).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.Balance{}, fmt.Errorf("%w: %s balance created concurrently", ledger.ErrMutationConflict, symbol)
		}
		return models.Balance{}, fmt.Errorf("could not create %s balance: %w", symbol, err)
	}
	return balance, nil
}

// compareAndSwap writes amount only if the row still carries the version that was read.
func compareAndSwap(tx *gorm.DB, read models.Balance, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s would drop to %s", ledger.ErrInsufficientBalance, read.Symbol, amount)
	}
	res := tx.Model(&models.Balance{}).
		Where("id = ? AND version = ?", read.ID, read.Version).
		Updates(map[string]interface{}{
			"amount":     amount,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("could not update %s balance: %w", read.Symbol, res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("%w: %s balance changed since it was read", ledger.ErrMutationConflict, read.Symbol)
	}
	return nil
}

func requireAccount(db *gorm.DB, accountID uuid.UUID) error {
	var count int64
	if err := db.Model(&models.Account{}).Where("id = ?", accountID).Count(&count).Error; err != nil {
		return fmt.Errorf("could not look up account: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, accountID)
	}
	return nil
}
