// Package store implements the ledger's persistence on gorm.
package store

import (
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store is the gorm-backed balance store, asset catalog, account store and trade journal.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New creates a Store on an already migrated database.
func New(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger.Named("store")}
}
