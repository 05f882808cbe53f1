package models

import (
	"time"

	"github.com/google/uuid"
)

// Account owns one Balance per provisioned asset.
// CredentialHash is produced and checked by the auth layer; the ledger only stores it.
type Account struct {
	ID             uuid.UUID `gorm:"type:text;primaryKey" json:"id"`
	Name           string    `gorm:"not null" json:"name"`
	Email          string    `gorm:"uniqueIndex;not null" json:"email"`
	CredentialHash string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
