// Package store is the local side of the mirror: upserts keyed by the remote
// external id, the append-only event log and sync run bookkeeping.
package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"shopsync/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// UpsertProduct inserts p or refreshes the row with the same external id.
// On return p holds the stored row, including its local id.
func (s *Store) UpsertProduct(ctx context.Context, p *models.Product) error {
	return s.upsert(ctx, p, p.ExternalID, []string{"title", "vendor", "price", "store_id", "updated_at"})
}

func (s *Store) UpsertCustomer(ctx context.Context, c *models.Customer) error {
	return s.upsert(ctx, c, c.ExternalID, []string{"first_name", "last_name", "email", "store_id", "updated_at"})
}

// UpsertOrder refreshes total, creation time, customer link and store.
func (s *Store) UpsertOrder(ctx context.Context, o *models.Order) error {
	return s.upsert(ctx, o, o.ExternalID, []string{"total_price", "created_at", "customer_id", "store_id", "updated_at"})
}

func (s *Store) upsert(ctx context.Context, row interface{}, externalID string, updates []string) error {
	if externalID == "" {
		return fmt.Errorf("upsert %T: empty external id", row)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns(updates),
		}).Create(row).Error
		if err != nil {
			return fmt.Errorf("upsert %T %s: %w", row, externalID, err)
		}
		// the conflict path keeps the existing id, so read the stored row back
		// into a fresh value; gorm would otherwise filter on row's own id
		stored := reflect.New(reflect.TypeOf(row).Elem())
		if err := tx.Where("external_id = ?", externalID).First(stored.Interface()).Error; err != nil {
			return fmt.Errorf("reload %T %s: %w", row, externalID, err)
		}
		reflect.ValueOf(row).Elem().Set(stored.Elem())
		return nil
	})
}

// FindProductByExternalID returns nil, nil when no such product is mirrored.
func (s *Store) FindProductByExternalID(ctx context.Context, externalID string) (*models.Product, error) {
	var p models.Product
	if err := s.findByExternalID(ctx, &p, externalID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// FindCustomerByExternalID returns nil, nil when no such customer is mirrored.
func (s *Store) FindCustomerByExternalID(ctx context.Context, externalID string) (*models.Customer, error) {
	var c models.Customer
	if err := s.findByExternalID(ctx, &c, externalID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) findByExternalID(ctx context.Context, row interface{}, externalID string) error {
	return s.db.WithContext(ctx).Where("external_id = ?", externalID).First(row).Error
}

// EnsureCustomer returns the customer with c's external id, creating it from
// c when absent. An existing row is left untouched.
func (s *Store) EnsureCustomer(ctx context.Context, c *models.Customer) (*models.Customer, error) {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(c).Error
	if err != nil {
		return nil, fmt.Errorf("create customer %s: %w", c.ExternalID, err)
	}

	var stored models.Customer
	if err := s.findByExternalID(ctx, &stored, c.ExternalID); err != nil {
		return nil, fmt.Errorf("reload customer %s: %w", c.ExternalID, err)
	}
	return &stored, nil
}

// UpsertOrderItem writes the item for its (order, product) pair; a re-sync
// only changes quantity, price and store.
func (s *Store) UpsertOrderItem(ctx context.Context, item *models.OrderItem) error {
	if item.ID == "" {
		item.ID = models.OrderItemID(item.OrderID, item.ProductID)
	}
	err := s.db.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "price", "store_id", "updated_at"}),
	}).Create(item).Error
	if err != nil {
		return fmt.Errorf("upsert order item %s: %w", item.ID, err)
	}
	return nil
}

// CreateEvent appends one webhook delivery.
func (s *Store) CreateEvent(ctx context.Context, e *models.Event) error {
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("create %s event: %w", e.Type, err)
	}
	return nil
}

func (s *Store) StartSyncRun(ctx context.Context, storeID string) (*models.SyncRun, error) {
	run := &models.SyncRun{
		StoreID:   storeID,
		Status:    models.SyncRunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, fmt.Errorf("create sync run: %w", err)
	}
	return run, nil
}

// FinishSyncRun stamps the run as finished; runErr nil means success.
func (s *Store) FinishSyncRun(ctx context.Context, run *models.SyncRun, runErr error) error {
	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Status = models.SyncRunStatusSuccess
	run.Error = nil
	if runErr != nil {
		msg := runErr.Error()
		run.Status = models.SyncRunStatusFailed
		run.Error = &msg
	}
	if err := s.db.WithContext(ctx).Save(run).Error; err != nil {
		return fmt.Errorf("finish sync run %s: %w", run.ID, err)
	}
	return nil
}
