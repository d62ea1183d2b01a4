package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type EventType string

const (
	EventTypeCartCreated       EventType = "cart_created"
	EventTypeCheckoutCreated   EventType = "checkout_created"
	EventTypeCartUpdated       EventType = "cart_updated"
	EventTypeCheckoutCompleted EventType = "checkout_completed"
)

// Event is one inbound webhook delivery. Rows are never updated or deleted.
type Event struct {
	ID         string         `json:"id" gorm:"type:varchar(36);primaryKey"`
	Type       EventType      `json:"type" gorm:"index;not null"`
	Payload    datatypes.JSON `json:"payload"`
	StoreID    string         `json:"store_id" gorm:"index;not null"`
	ReceivedAt time.Time      `json:"received_at" gorm:"index;not null"`
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now().UTC()
	}
	return nil
}
