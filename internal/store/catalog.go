package store

import (
	"context"
	"errors"
	"fmt"

	"coin-ledger-go/internal/ledger"
	"coin-ledger-go/internal/models"
	"gorm.io/gorm"
)

// Lookup finds an asset by symbol, case-insensitively.
func (s *Store) Lookup(ctx context.Context, symbol string) (models.Asset, bool, error) {
	var asset models.Asset
	err := s.db.WithContext(ctx).Where("symbol = ?", ledger.NormalizeSymbol(symbol)).First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Asset{}, false, nil
	}
	if err != nil {
		return models.Asset{}, false, fmt.Errorf("could not look up asset: %w", err)
	}
	return asset, true, nil
}

// IsActive reports whether symbol exists and is open for trading.
func (s *Store) IsActive(ctx context.Context, symbol string) (bool, error) {
	asset, ok, err := s.Lookup(ctx, symbol)
	if err != nil || !ok {
		return false, err
	}
	return asset.Active, nil
}

// ListActive returns every active asset, the reference currency included, ordered by symbol.
func (s *Store) ListActive(ctx context.Context) ([]models.Asset, error) {
	var assets []models.Asset
	if err := s.db.WithContext(ctx).Where("active = ?", true).Order("symbol").Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("could not list active assets: %w", err)
	}
	return assets, nil
}

// SetActive opens or closes a coin for trading. The reference currency can't be disabled.
func (s *Store) SetActive(ctx context.Context, symbol string, active bool) error {
	asset, ok, err := s.Lookup(ctx, symbol)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q", ledger.ErrUnsupportedAsset, symbol)
	}
	if asset.Reference && !active {
		return fmt.Errorf("reference currency %s cannot be deactivated", asset.Symbol)
	}
	if err := s.db.WithContext(ctx).Model(&asset).Update("active", active).Error; err != nil {
		return fmt.Errorf("could not update asset %s: %w", asset.Symbol, err)
	}
	return nil
}
