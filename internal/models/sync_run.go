package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SyncRunStatus string

const (
	SyncRunStatusRunning SyncRunStatus = "RUNNING"
	SyncRunStatusSuccess SyncRunStatus = "SUCCESS"
	SyncRunStatusFailed  SyncRunStatus = "FAILED"
)

// SyncRun records one reconciliation pass and what it touched.
type SyncRun struct {
	ID           string        `json:"id" gorm:"type:varchar(36);primaryKey"`
	StoreID      string        `json:"store_id" gorm:"index;not null"`
	Status       SyncRunStatus `json:"status" gorm:"not null"`
	Products     int           `json:"products"`
	Customers    int           `json:"customers"`
	Orders       int           `json:"orders"`
	OrderItems   int           `json:"order_items"`
	SkippedItems int           `json:"skipped_items"`
	Error        *string       `json:"error"`
	StartedAt    time.Time     `json:"started_at" gorm:"index"`
	FinishedAt   *time.Time    `json:"finished_at"`
}

func (r *SyncRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// All lists every table owned by the mirror, in dependency order.
func All() []interface{} {
	return []interface{}{
		&Product{},
		&Customer{},
		&Order{},
		&OrderItem{},
		&Event{},
		&SyncRun{},
	}
}
