package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Order struct {
	ID         string          `json:"id" gorm:"type:varchar(36);primaryKey"`
	ExternalID string          `json:"external_id" gorm:"uniqueIndex;not null"`
	TotalPrice decimal.Decimal `json:"total_price" gorm:"type:decimal(12,2);not null;default:0"`
	// CreatedAt is the remote creation time, not the local insert time.
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	CustomerID *string     `json:"customer_id" gorm:"type:varchar(36);index"`
	Customer   *Customer   `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	StoreID    string      `json:"store_id" gorm:"index;not null"`
	Items      []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}

// OrderItem is identified by the (order, product) pair it links.
type OrderItem struct {
	ID        string          `json:"id" gorm:"type:varchar(80);primaryKey"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null;default:0"`
	OrderID   string          `json:"order_id" gorm:"type:varchar(36);index;not null"`
	ProductID string          `json:"product_id" gorm:"type:varchar(36);index;not null"`
	Product   *Product        `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	StoreID   string          `json:"store_id" gorm:"index;not null"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// OrderItemID derives the identity of the line linking orderID and productID.
func OrderItemID(orderID, productID string) string {
	return orderID + "-" + productID
}
