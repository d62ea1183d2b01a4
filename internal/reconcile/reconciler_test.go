package reconcile

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"shopsync/internal/database"
	"shopsync/internal/events"
	"shopsync/internal/logger"
	"shopsync/internal/models"
	"shopsync/internal/services/shopify"
	"shopsync/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeShop serves collection pages keyed by entity; page n is reached with
// page_info=p<n>.
type fakeShop struct {
	mu    sync.Mutex
	pages map[string][]string
	fail  map[string]int
	calls map[string]int
}

func (f *fakeShop) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entity := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".json")
	f.calls[entity]++
	if status := f.fail[entity]; status != 0 {
		w.WriteHeader(status)
		fmt.Fprint(w, `{"errors":"boom"}`)
		return
	}

	idx := 0
	if info := r.URL.Query().Get("page_info"); info != "" {
		idx, _ = strconv.Atoi(strings.TrimPrefix(info, "p"))
	}
	pages := f.pages[entity]
	body := "[]"
	if idx < len(pages) {
		body = pages[idx]
	}
	if idx+1 < len(pages) {
		w.Header().Set("Link", fmt.Sprintf(`<http://%s%s?limit=50&page_info=p%d>; rel="next"`, r.Host, r.URL.Path, idx+1))
	}
	fmt.Fprintf(w, `{%q: %s}`, entity, body)
}

type recordingPublisher struct {
	messages []events.Message
}

func (p *recordingPublisher) Publish(ctx context.Context, key string, msg events.Message) error {
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type harness struct {
	shop *fakeShop
	db   *gorm.DB
	pub  *recordingPublisher
	new  func(cfg Config) *Reconciler
}

func newHarness(t *testing.T, pages map[string][]string) *harness {
	t.Helper()

	shop := &fakeShop{pages: pages, fail: map[string]int{}, calls: map[string]int{}}
	srv := httptest.NewServer(shop)
	t.Cleanup(srv.Close)

	db, err := database.New("sqlite://file:"+uuid.NewString()+"?mode=memory&cache=shared", logger.Nop(), "error")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	client := shopify.NewClient("demo-shop", "shpat_test", logger.Nop(),
		shopify.WithBaseURL(srv.URL),
		shopify.WithRetryPolicy(shopify.RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond}),
		shopify.WithSleep(func(ctx context.Context, d time.Duration) error { return nil }),
	)
	st := store.New(db.DB)
	pub := &recordingPublisher{}

	return &harness{
		shop: shop,
		db:   db.DB,
		pub:  pub,
		new: func(cfg Config) *Reconciler {
			if cfg.StoreID == "" {
				cfg.StoreID = "demo-shop"
			}
			return New(cfg, client, st, st, logger.Nop(), WithPublisher(pub))
		},
	}
}

func (h *harness) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(model).Count(&n).Error)
	return n
}

const (
	productsPage = `[
		{"id": 1001, "title": "Classic Mug", "vendor": "Acme Co", "variants": [{"id": 11, "price": "9.99", "position": 1}]},
		{"id": 1002, "title": "Eco Cap", "vendor": "Globex", "variants": [{"id": 12, "price": "15.00", "position": 1}]}
	]`
	customersPage = `[{"id": 501, "first_name": "Alex", "last_name": "Smith", "email": "alex@example.com"}]`
)

func TestRun_IdempotentAcrossRuns(t *testing.T) {
	h := newHarness(t, map[string][]string{
		"products":  {productsPage},
		"customers": {customersPage},
		"orders": {`[{"id": 9001, "total_price": "34.98", "created_at": "2024-06-01T10:00:00-04:00",
			"customer": {"id": 501},
			"line_items": [
				{"id": 1, "product_id": 1001, "quantity": 2, "price": "9.99"},
				{"id": 2, "product_id": 1002, "quantity": 1, "price": "15.00"}
			]}]`},
	})
	r := h.new(Config{})

	for i := 0; i < 2; i++ {
		run, err := r.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, models.SyncRunStatusSuccess, run.Status)
		assert.Equal(t, 2, run.Products)
		assert.Equal(t, 1, run.Customers)
		assert.Equal(t, 1, run.Orders)
		assert.Equal(t, 2, run.OrderItems)
	}

	assert.Equal(t, int64(2), h.count(t, &models.Product{}))
	assert.Equal(t, int64(1), h.count(t, &models.Customer{}))
	assert.Equal(t, int64(1), h.count(t, &models.Order{}))
	assert.Equal(t, int64(2), h.count(t, &models.OrderItem{}))
	assert.Equal(t, int64(2), h.count(t, &models.SyncRun{}))

	var order models.Order
	require.NoError(t, h.db.Preload("Customer").First(&order, "external_id = ?", "9001").Error)
	require.NotNil(t, order.Customer)
	assert.Equal(t, "alex@example.com", order.Customer.Email)
	assert.Equal(t, "34.98", order.TotalPrice.StringFixed(2))
	assert.True(t, order.CreatedAt.Equal(time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC)))

	require.Len(t, h.pub.messages, 2)
	assert.Equal(t, events.TypeSyncCompleted, h.pub.messages[1].Type)
	assert.Equal(t, "demo-shop", h.pub.messages[1].StoreID)
}

func TestRun_OrderWithoutCustomer(t *testing.T) {
	h := newHarness(t, map[string][]string{
		"orders": {`[{"id": 9002, "total_price": "5.00", "line_items": []}]`},
	})

	_, err := h.new(Config{}).Run(context.Background())
	require.NoError(t, err)

	var order models.Order
	require.NoError(t, h.db.First(&order, "external_id = ?", "9002").Error)
	assert.Nil(t, order.CustomerID)
}

func TestRun_MissingProductSkipped(t *testing.T) {
	h := newHarness(t, map[string][]string{
		"products": {productsPage},
		"orders": {`[{"id": 9003, "total_price": "40.00", "line_items": [
			{"id": 1, "product_id": 1001, "quantity": 1, "price": "9.99"},
			{"id": 2, "product_id": 7777, "quantity": 1, "price": "1.00"},
			{"id": 3, "product_id": null, "title": "Gift wrap", "quantity": 1, "price": "2.00"},
			{"id": 4, "product_id": 1002, "quantity": 3, "price": "15.00"}
		]}]`},
	})

	run, err := h.new(Config{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, run.OrderItems)
	assert.Equal(t, 2, run.SkippedItems)
	assert.Equal(t, int64(2), h.count(t, &models.OrderItem{}))

	var quantities []int
	require.NoError(t, h.db.Model(&models.OrderItem{}).Order("quantity").Pluck("quantity", &quantities).Error)
	assert.Equal(t, []int{1, 3}, quantities)
}

func TestRun_InlineCustomerCreated(t *testing.T) {
	h := newHarness(t, map[string][]string{
		"orders": {`[{"id": 9004, "total_price": "1.00", "customer": {"id": 777, "first_name": "Pat"}}]`},
	})

	run, err := h.new(Config{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, run.Customers)

	var customer models.Customer
	require.NoError(t, h.db.First(&customer, "external_id = ?", "777").Error)
	assert.Equal(t, "Pat", customer.FirstName)
	assert.Equal(t, "guest-9004@example.com", customer.Email)
	assert.Equal(t, "demo-shop", customer.StoreID)

	var order models.Order
	require.NoError(t, h.db.First(&order, "external_id = ?", "9004").Error)
	require.NotNil(t, order.CustomerID)
	assert.Equal(t, customer.ID, *order.CustomerID)
}

func TestRun_AbortsOnRemoteFailure(t *testing.T) {
	h := newHarness(t, map[string][]string{
		"products": {productsPage},
		"orders":   {`[{"id": 9005}]`},
	})
	h.shop.fail["customers"] = http.StatusInternalServerError

	run, err := h.new(Config{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "customers")

	var apiErr *shopify.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)

	// one attempt plus two retries, then nothing after customers
	assert.Equal(t, 3, h.shop.calls["customers"])
	assert.Equal(t, 0, h.shop.calls["orders"])

	assert.Equal(t, int64(2), h.count(t, &models.Product{}))
	assert.Equal(t, int64(0), h.count(t, &models.Order{}))

	var stored models.SyncRun
	require.NoError(t, h.db.First(&stored, "id = ?", run.ID).Error)
	assert.Equal(t, models.SyncRunStatusFailed, stored.Status)
	assert.Equal(t, 2, stored.Products)
	require.NotNil(t, stored.Error)

	require.Len(t, h.pub.messages, 1)
	assert.Equal(t, events.TypeSyncFailed, h.pub.messages[0].Type)
}

func TestRun_Pagination(t *testing.T) {
	pages := map[string][]string{
		"products": {
			`[{"id": 1, "title": "One"}]`,
			`[{"id": 2, "title": "Two"}]`,
		},
	}

	h := newHarness(t, pages)
	run, err := h.new(Config{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, run.Products)
	assert.Equal(t, 1, h.shop.calls["products"])

	h = newHarness(t, pages)
	run, err = h.new(Config{AllPages: true}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, run.Products)
	assert.Equal(t, 2, h.shop.calls["products"])
	assert.Equal(t, int64(2), h.count(t, &models.Product{}))
}

func TestRun_InvalidPriceAborts(t *testing.T) {
	h := newHarness(t, map[string][]string{
		"products": {`[{"id": 1, "title": "Bad", "variants": [{"price": "free"}]}]`},
	})

	run, err := h.new(Config{}).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.SyncRunStatusFailed, run.Status)
	assert.Equal(t, 0, h.shop.calls["customers"])
}
