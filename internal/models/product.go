package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID         string          `json:"id" gorm:"type:varchar(36);primaryKey"`
	ExternalID string          `json:"external_id" gorm:"uniqueIndex;not null"`
	Title      string          `json:"title" gorm:"not null"`
	Vendor     string          `json:"vendor"`
	Price      decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null;default:0"`
	StoreID    string          `json:"store_id" gorm:"index;not null"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}
