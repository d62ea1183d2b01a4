// Package reconcile pulls products, customers and orders from Shopify and
// merges them into the local store.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"shopsync/internal/events"
	"shopsync/internal/logger"
	"shopsync/internal/metrics"
	"shopsync/internal/models"
	"shopsync/internal/services/shopify"
)

const DefaultPageSize = 50

// Remote is the read side of the Shopify client.
type Remote interface {
	ListProducts(ctx context.Context, limit int, pageInfo string) (*shopify.ProductsResponse, error)
	ListCustomers(ctx context.Context, limit int, pageInfo string) (*shopify.CustomersResponse, error)
	ListOrders(ctx context.Context, limit int, pageInfo string) (*shopify.OrdersResponse, error)
}

// Gateway is the local store as the reconciler sees it.
type Gateway interface {
	UpsertProduct(ctx context.Context, p *models.Product) error
	UpsertCustomer(ctx context.Context, c *models.Customer) error
	UpsertOrder(ctx context.Context, o *models.Order) error
	FindProductByExternalID(ctx context.Context, externalID string) (*models.Product, error)
	UpsertOrderItem(ctx context.Context, item *models.OrderItem) error
	StartSyncRun(ctx context.Context, storeID string) (*models.SyncRun, error)
	FinishSyncRun(ctx context.Context, run *models.SyncRun, runErr error) error
}

// CustomerResolver returns the local customer for an order's embedded
// customer, creating it when it has not been mirrored yet.
type CustomerResolver interface {
	EnsureCustomer(ctx context.Context, c *models.Customer) (*models.Customer, error)
}

type Config struct {
	StoreID  string
	PageSize int
	// AllPages follows page_info cursors; otherwise only the first page of
	// each collection is read.
	AllPages bool
}

type Reconciler struct {
	cfg         Config
	remote      Remote
	store       Gateway
	customers   CustomerResolver
	transformer *shopify.Transformer
	publisher   events.Publisher
	metrics     *metrics.Metrics
	logger      *logger.Logger
}

type Option func(*Reconciler)

func WithPublisher(p events.Publisher) Option {
	return func(r *Reconciler) {
		r.publisher = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

func New(cfg Config, remote Remote, store Gateway, customers CustomerResolver, logger *logger.Logger, opts ...Option) *Reconciler {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	r := &Reconciler{
		cfg:         cfg,
		remote:      remote,
		store:       store,
		customers:   customers,
		transformer: shopify.NewTransformer(cfg.StoreID),
		publisher:   events.NopPublisher{},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one reconciliation pass: products, then customers, then
// orders. The first error aborts the pass; rows written before it stay.
// The returned run carries the counts either way.
func (r *Reconciler) Run(ctx context.Context) (*models.SyncRun, error) {
	started := time.Now()
	run, err := r.store.StartSyncRun(ctx, r.cfg.StoreID)
	if err != nil {
		return nil, err
	}
	r.logger.Info("Starting sync run %s for store %s", run.ID, r.cfg.StoreID)

	runErr := r.reconcile(ctx, run)

	// record the outcome even when ctx was cancelled mid-run
	finishCtx := context.WithoutCancel(ctx)
	if err := r.store.FinishSyncRun(finishCtx, run, runErr); err != nil {
		r.logger.Error("Failed to record sync run %s: %v", run.ID, err)
	}
	r.metrics.SyncRun(string(run.Status), time.Since(started).Seconds())

	msgType := events.TypeSyncCompleted
	if runErr != nil {
		msgType = events.TypeSyncFailed
		r.logger.Error("Sync run %s failed: %v", run.ID, runErr)
	} else {
		r.logger.Info("Sync complete: %d products, %d customers, %d orders, %d items (%d items skipped)",
			run.Products, run.Customers, run.Orders, run.OrderItems, run.SkippedItems)
	}
	err = r.publisher.Publish(finishCtx, run.ID, events.Message{
		Type:    msgType,
		StoreID: r.cfg.StoreID,
		Data:    run,
	})
	if err != nil {
		r.logger.Warn("Failed to publish sync run %s: %v", run.ID, err)
	}

	return run, runErr
}

func (r *Reconciler) reconcile(ctx context.Context, run *models.SyncRun) error {
	if err := r.syncProducts(ctx, run); err != nil {
		return fmt.Errorf("products: %w", err)
	}
	if err := r.syncCustomers(ctx, run); err != nil {
		return fmt.Errorf("customers: %w", err)
	}
	// orders last: they reference both customers and products
	if err := r.syncOrders(ctx, run); err != nil {
		return fmt.Errorf("orders: %w", err)
	}
	return nil
}

// eachPage calls fetch with successive cursors until there is no next page,
// or just once unless AllPages is set.
func (r *Reconciler) eachPage(fetch func(pageInfo string) (string, error)) error {
	pageInfo := ""
	for {
		next, err := fetch(pageInfo)
		if err != nil {
			return err
		}
		if !r.cfg.AllPages || next == "" {
			return nil
		}
		pageInfo = next
	}
}

func (r *Reconciler) syncProducts(ctx context.Context, run *models.SyncRun) error {
	r.logger.Info("Syncing products...")
	return r.eachPage(func(pageInfo string) (string, error) {
		resp, err := r.remote.ListProducts(ctx, r.cfg.PageSize, pageInfo)
		if err != nil {
			return "", err
		}
		for i := range resp.Products {
			product, err := r.transformer.TransformProduct(&resp.Products[i])
			if err != nil {
				return "", err
			}
			if err := r.store.UpsertProduct(ctx, product); err != nil {
				return "", err
			}
			run.Products++
			r.metrics.SyncRecord(string(shopify.EntityProducts), metrics.OutcomeUpserted)
		}
		r.logger.Info("Synced %d products", len(resp.Products))
		return resp.NextPageInfo, nil
	})
}

func (r *Reconciler) syncCustomers(ctx context.Context, run *models.SyncRun) error {
	r.logger.Info("Syncing customers...")
	return r.eachPage(func(pageInfo string) (string, error) {
		resp, err := r.remote.ListCustomers(ctx, r.cfg.PageSize, pageInfo)
		if err != nil {
			return "", err
		}
		for i := range resp.Customers {
			customer, err := r.transformer.TransformCustomer(&resp.Customers[i])
			if err != nil {
				return "", err
			}
			if err := r.store.UpsertCustomer(ctx, customer); err != nil {
				return "", err
			}
			run.Customers++
			r.metrics.SyncRecord(string(shopify.EntityCustomers), metrics.OutcomeUpserted)
		}
		r.logger.Info("Synced %d customers", len(resp.Customers))
		return resp.NextPageInfo, nil
	})
}

func (r *Reconciler) syncOrders(ctx context.Context, run *models.SyncRun) error {
	r.logger.Info("Syncing orders...")
	return r.eachPage(func(pageInfo string) (string, error) {
		resp, err := r.remote.ListOrders(ctx, r.cfg.PageSize, pageInfo)
		if err != nil {
			return "", err
		}
		for i := range resp.Orders {
			if err := r.syncOrder(ctx, run, &resp.Orders[i]); err != nil {
				return "", err
			}
		}
		r.logger.Info("Synced %d orders", len(resp.Orders))
		return resp.NextPageInfo, nil
	})
}

func (r *Reconciler) syncOrder(ctx context.Context, run *models.SyncRun, shopifyOrder *shopify.Order) error {
	order, err := r.transformer.TransformOrder(shopifyOrder)
	if err != nil {
		return err
	}

	if inline := r.transformer.InlineCustomer(shopifyOrder); inline != nil {
		customer, err := r.customers.EnsureCustomer(ctx, inline)
		if err != nil {
			return fmt.Errorf("order %d: %w", shopifyOrder.ID, err)
		}
		order.CustomerID = &customer.ID
	}

	if err := r.store.UpsertOrder(ctx, order); err != nil {
		return err
	}
	run.Orders++
	r.metrics.SyncRecord(string(shopify.EntityOrders), metrics.OutcomeUpserted)

	for i := range shopifyOrder.LineItems {
		lineItem := &shopifyOrder.LineItems[i]

		var product *models.Product
		if lineItem.ProductID != nil {
			product, err = r.store.FindProductByExternalID(ctx, shopify.ExternalID(*lineItem.ProductID))
			if err != nil {
				return fmt.Errorf("order %d: %w", shopifyOrder.ID, err)
			}
		}
		if product == nil {
			r.logger.Debug("Skipping line item %d of order %d: product not mirrored", lineItem.ID, shopifyOrder.ID)
			run.SkippedItems++
			r.metrics.SyncRecord("order_items", metrics.OutcomeSkipped)
			continue
		}

		item, err := r.transformer.TransformLineItem(lineItem, order.ID, product.ID)
		if err != nil {
			return err
		}
		if err := r.store.UpsertOrderItem(ctx, item); err != nil {
			return err
		}
		run.OrderItems++
		r.metrics.SyncRecord("order_items", metrics.OutcomeUpserted)
	}
	return nil
}
