// Package seed creates synthetic products, customers and orders in a shop
// through the Admin API. It never writes to the local store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopsync/internal/logger"
	"shopsync/internal/metrics"
	"shopsync/internal/services/shopify"

	"github.com/brianvoe/gofakeit/v7"
	"golang.org/x/time/rate"
)

var (
	vendors    = []string{"Acme Co", "Globex", "Umbrella", "Wayne Enterprises", "Soylent"}
	types      = []string{"T-Shirt", "Mug", "Sticker", "Poster", "Hoodie", "Cap", "Bag"}
	adjectives = []string{"Classic", "Premium", "Eco", "Limited", "Vintage", "Modern", "Essential"}
	firstNames = []string{"Alex", "Sam", "Jordan", "Taylor", "Casey", "Riley", "Avery", "Morgan", "Quinn", "Charlie"}
	lastNames  = []string{"Smith", "Johnson", "Brown", "Taylor", "Anderson", "Thomas", "Jackson", "White", "Harris", "Martin"}
)

const (
	seedTags    = "seed,dummy,automated"
	minPrice    = 5.0
	maxPrice    = 200.0
	backdateMax = 30 * 24 * time.Hour
)

// Creator is the write side of the Shopify client.
type Creator interface {
	CreateProduct(ctx context.Context, product *shopify.Product) (*shopify.Product, error)
	CreateCustomer(ctx context.Context, customer *shopify.Customer) (*shopify.Customer, error)
	CreateOrder(ctx context.Context, order *shopify.Order) (*shopify.Order, error)
}

type Config struct {
	Products  int
	Customers int
	Orders    int
	// Delay paces product and customer requests, OrderDelay paces orders.
	Delay      time.Duration
	OrderDelay time.Duration
}

// Report counts what a seeding pass did per entity.
type Report struct {
	ProductsCreated  int `json:"products_created"`
	ProductsFailed   int `json:"products_failed"`
	CustomersCreated int `json:"customers_created"`
	CustomersFailed  int `json:"customers_failed"`
	OrdersCreated    int `json:"orders_created"`
	OrdersFailed     int `json:"orders_failed"`
	OrdersSkipped    int `json:"orders_skipped"`
}

type Seeder struct {
	cfg          Config
	remote       Creator
	faker        *gofakeit.Faker
	limiter      *rate.Limiter
	orderLimiter *rate.Limiter
	now          func() time.Time
	metrics      *metrics.Metrics
	logger       *logger.Logger
}

type Option func(*Seeder)

// WithFaker fixes the random source, e.g. gofakeit.New(42) in tests.
func WithFaker(f *gofakeit.Faker) Option {
	return func(s *Seeder) {
		s.faker = f
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Seeder) {
		s.metrics = m
	}
}

func New(cfg Config, remote Creator, logger *logger.Logger, opts ...Option) *Seeder {
	s := &Seeder{
		cfg:          cfg,
		remote:       remote,
		faker:        gofakeit.New(0),
		limiter:      newLimiter(cfg.Delay),
		orderLimiter: newLimiter(cfg.OrderDelay),
		now:          time.Now,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newLimiter allows one request per delay; zero means unpaced.
func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// Run creates the configured number of products, customers and orders.
// Failed items are logged and counted; only cancellation stops the pass.
func (s *Seeder) Run(ctx context.Context) (*Report, error) {
	report := &Report{}
	s.logger.Info("Seeding %d products, %d customers, and %d orders...",
		s.cfg.Products, s.cfg.Customers, s.cfg.Orders)

	products, err := s.seedProducts(ctx, report)
	if err != nil {
		return report, err
	}
	customers, err := s.seedCustomers(ctx, report)
	if err != nil {
		return report, err
	}
	if err := s.seedOrders(ctx, report, customers, products); err != nil {
		return report, err
	}

	s.logger.Info("Seeding complete: %d/%d products, %d/%d customers, %d/%d orders",
		report.ProductsCreated, s.cfg.Products,
		report.CustomersCreated, s.cfg.Customers,
		report.OrdersCreated, s.cfg.Orders)
	return report, nil
}

func (s *Seeder) seedProducts(ctx context.Context, report *Report) ([]*shopify.Product, error) {
	var created []*shopify.Product
	for i := 0; i < s.cfg.Products; i++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return created, err
		}
		product, err := s.remote.CreateProduct(ctx, s.Product(i))
		if err != nil {
			if ctx.Err() != nil {
				return created, ctx.Err()
			}
			report.ProductsFailed++
			s.metrics.SeedRecord(string(shopify.EntityProducts), metrics.OutcomeFailed)
			s.logFailure("product", i, s.cfg.Products, err)
			continue
		}
		created = append(created, product)
		report.ProductsCreated++
		s.metrics.SeedRecord(string(shopify.EntityProducts), metrics.OutcomeCreated)
		s.logger.Info("Created product %d/%d: %s (id: %d)", i+1, s.cfg.Products, product.Title, product.ID)
	}
	return created, nil
}

func (s *Seeder) seedCustomers(ctx context.Context, report *Report) ([]*shopify.Customer, error) {
	var created []*shopify.Customer
	for i := 0; i < s.cfg.Customers; i++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return created, err
		}
		customer, err := s.remote.CreateCustomer(ctx, s.Customer(i))
		if err != nil {
			if ctx.Err() != nil {
				return created, ctx.Err()
			}
			report.CustomersFailed++
			s.metrics.SeedRecord(string(shopify.EntityCustomers), metrics.OutcomeFailed)
			s.logFailure("customer", i, s.cfg.Customers, err)
			continue
		}
		created = append(created, customer)
		report.CustomersCreated++
		s.metrics.SeedRecord(string(shopify.EntityCustomers), metrics.OutcomeCreated)
		s.logger.Info("Created customer %d/%d: %s %s (id: %d)",
			i+1, s.cfg.Customers, customer.FirstName, customer.LastName, customer.ID)
	}
	return created, nil
}

func (s *Seeder) seedOrders(ctx context.Context, report *Report, customers []*shopify.Customer, products []*shopify.Product) error {
	if s.cfg.Orders <= 0 {
		return nil
	}
	orderable := withVariants(products)
	if len(customers) == 0 || len(orderable) == 0 {
		report.OrdersSkipped = s.cfg.Orders
		s.logger.Warn("Skipping %d orders: need at least one customer and one product with a variant (have %d customers, %d products)",
			s.cfg.Orders, len(customers), len(orderable))
		return nil
	}

	for i := 0; i < s.cfg.Orders; i++ {
		if err := s.orderLimiter.Wait(ctx); err != nil {
			return err
		}
		customer := customers[s.faker.IntRange(0, len(customers)-1)]
		order, err := s.remote.CreateOrder(ctx, s.Order(customer, orderable))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			report.OrdersFailed++
			s.metrics.SeedRecord(string(shopify.EntityOrders), metrics.OutcomeFailed)
			s.logFailure("order", i, s.cfg.Orders, err)
			continue
		}
		report.OrdersCreated++
		s.metrics.SeedRecord(string(shopify.EntityOrders), metrics.OutcomeCreated)
		s.logger.Info("Created order %d/%d: id=%d, customer=%s", i+1, s.cfg.Orders, order.ID, customer.Email)
	}
	return nil
}

func (s *Seeder) logFailure(kind string, index, total int, err error) {
	var apiErr *shopify.APIError
	if errors.As(err, &apiErr) {
		s.logger.Error("Failed to create %s %d/%d: status=%d %s", kind, index+1, total, apiErr.StatusCode, apiErr.Body)
		return
	}
	s.logger.Error("Failed to create %s %d/%d: %v", kind, index+1, total, err)
}

// Product builds the synthetic product for the index-th slot.
func (s *Seeder) Product(index int) *shopify.Product {
	productType := s.faker.RandomString(types)
	title := fmt.Sprintf("%s %s #%d", s.faker.RandomString(adjectives), productType, index+1)
	return &shopify.Product{
		Title:       title,
		BodyHTML:    fmt.Sprintf("<p>%s: automatically seeded product.</p>", title),
		Vendor:      s.faker.RandomString(vendors),
		ProductType: productType,
		Status:      "active",
		Tags:        seedTags,
		Variants: []shopify.Variant{{
			Price:               s.price(),
			Sku:                 fmt.Sprintf("SKU-%d-%d", s.now().UnixMilli(), index),
			InventoryManagement: "shopify",
		}},
	}
}

// price is a two-decimal amount in [minPrice, maxPrice).
func (s *Seeder) price() string {
	price := fmt.Sprintf("%.2f", s.faker.Float64Range(minPrice, maxPrice))
	if price == fmt.Sprintf("%.2f", maxPrice) {
		price = fmt.Sprintf("%.2f", maxPrice-0.01)
	}
	return price
}

func (s *Seeder) Customer(index int) *shopify.Customer {
	first := s.faker.RandomString(firstNames)
	last := s.faker.RandomString(lastNames)
	return &shopify.Customer{
		FirstName:     first,
		LastName:      last,
		Email:         fmt.Sprintf("seed+%s.%s.%d_%d@example.com", strings.ToLower(first), strings.ToLower(last), s.now().UnixMilli(), index),
		VerifiedEmail: true,
		Tags:          seedTags,
	}
}

// Order builds a paid order for customer with 1-3 lines drawn from products,
// backdated to a random point in the last 30 days. Every product must have a
// variant.
func (s *Seeder) Order(customer *shopify.Customer, products []*shopify.Product) *shopify.Order {
	lines := make([]shopify.LineItem, s.faker.IntRange(1, 3))
	for i := range lines {
		product := products[s.faker.IntRange(0, len(products)-1)]
		variantID := product.Variants[0].ID
		lines[i] = shopify.LineItem{
			VariantID: &variantID,
			Quantity:  s.faker.IntRange(1, 3),
		}
	}

	now := s.now().UTC()
	createdAt := s.faker.DateRange(now.Add(-backdateMax), now).UTC()
	return &shopify.Order{
		Email:             customer.Email,
		Customer:          &shopify.Customer{ID: customer.ID},
		LineItems:         lines,
		FinancialStatus:   "paid",
		FulfillmentStatus: "fulfilled",
		Tags:              seedTags,
		CreatedAt:         &createdAt,
	}
}

func withVariants(products []*shopify.Product) []*shopify.Product {
	var out []*shopify.Product
	for _, p := range products {
		if p != nil && len(p.Variants) > 0 {
			out = append(out, p)
		}
	}
	return out
}
