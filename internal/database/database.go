package database

import (
	"fmt"
	"strings"

	"coin-ledger-go/internal/config"
	"coin-ledger-go/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the ledger database, migrates the schema and seeds the asset catalog.
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := Open(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.Database.Reset {
		if err := Reset(db); err != nil {
			return nil, err
		}
	}

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}

	if err := SeedAssets(db, &cfg.Ledger); err != nil {
		return nil, err
	}

	return db, nil
}

// Open connects to SQLite. Errors such as unique violations are translated into gorm sentinels.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Reset drops every ledger table. Only meant for fresh demo environments.
func Reset(db *gorm.DB) error {
	if err := db.Migrator().DropTable(&models.Trade{}, &models.Balance{}, &models.Account{}, &models.Asset{}); err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	return nil
}

// AutoMigrate creates or updates the ledger tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Asset{}, &models.Account{}, &models.Balance{}, &models.Trade{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}

// SeedAssets creates the reference currency and every configured coin that is not present yet.
// Existing rows are left untouched so an operator's activation changes survive restarts.
func SeedAssets(db *gorm.DB, cfg *config.Ledger) error {
	ref := strings.ToLower(strings.TrimSpace(cfg.ReferenceCurrency))
	if ref == "" {
		return fmt.Errorf("reference currency is not configured")
	}

	reference := models.Asset{Symbol: ref}
	if err := db.Where(models.Asset{Symbol: ref}).
		Attrs(models.Asset{OracleID: ref, Active: true, Reference: true}).
		FirstOrCreate(&reference).Error; err != nil {
		return fmt.Errorf("failed to populate reference currency '%s': %w", ref, err)
	}

	for _, seed := range cfg.Assets {
		symbol := strings.ToLower(strings.TrimSpace(seed.Symbol))
		if symbol == "" || symbol == ref {
			continue
		}
		oracleID := seed.OracleID
		if oracleID == "" {
			oracleID = symbol
		}

		asset := models.Asset{}
		res := db.Where(models.Asset{Symbol: symbol}).
			Attrs(models.Asset{OracleID: oracleID}).
			FirstOrCreate(&asset)
		if res.Error != nil {
			return fmt.Errorf("failed to populate coin '%s': %w", symbol, res.Error)
		}
		// Active has a column default of true, so a false zero value is dropped on create.
		if res.RowsAffected == 1 {
			if err := db.Model(&asset).Update("active", seed.Active).Error; err != nil {
				return fmt.Errorf("failed to set activation for coin '%s': %w", symbol, err)
			}
		}
	}

	return nil
}
