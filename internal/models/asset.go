package models

import "gorm.io/gorm"

// Asset represents a tradable coin, or the reference currency when Reference is set.
type Asset struct {
	gorm.Model
	Symbol    string `gorm:"uniqueIndex;not null"`
	OracleID  string `gorm:"not null"`
	Active    bool   `gorm:"default:true"`
	Reference bool   `gorm:"default:false"`
}
