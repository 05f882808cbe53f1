package store

import (
	"context"
	"errors"
	"fmt"

	"coin-ledger-go/internal/ledger"
	"coin-ledger-go/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateWithBalances inserts the account and each seeded balance in one transaction.
// Rows go in one at a time; a failure on any of them rolls back the account too.
func (s *Store) CreateWithBalances(ctx context.Context, account *models.Account, balances []models.Balance) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: %s", ledger.ErrAccountExists, account.Email)
			}
			return fmt.Errorf("could not create account: %w", err)
		}

		for i := range balances {
			balances[i].AccountID = account.ID
			if err := tx.Create(&balances[i]).Error; err != nil {
				return fmt.Errorf("could not seed %s balance: %w", balances[i].Symbol, err)
			}
		}
		return nil
	})
}

// Account loads an account by id.
func (s *Store) Account(ctx context.Context, id uuid.UUID) (models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Account{}, fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, id)
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("could not get account: %w", err)
	}
	return account, nil
}
