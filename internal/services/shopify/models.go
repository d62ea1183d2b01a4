package shopify

import (
	"time"
)

// Entity names a remote collection. The value is the plural key used in
// URLs and response bodies.
type Entity string

const (
	EntityProducts  Entity = "products"
	EntityCustomers Entity = "customers"
	EntityOrders    Entity = "orders"
)

// Singular is the envelope key for single-record requests and responses.
func (e Entity) Singular() string {
	switch e {
	case EntityProducts:
		return "product"
	case EntityCustomers:
		return "customer"
	case EntityOrders:
		return "order"
	}
	return ""
}

func (e Entity) valid() bool {
	return e.Singular() != ""
}

// Product represents a Shopify product
type Product struct {
	ID          int64      `json:"id,omitempty"`
	Title       string     `json:"title"`
	BodyHTML    string     `json:"body_html,omitempty"`
	Vendor      string     `json:"vendor,omitempty"`
	ProductType string     `json:"product_type,omitempty"`
	Status      string     `json:"status,omitempty"`
	Tags        string     `json:"tags,omitempty"`
	Variants    []Variant  `json:"variants,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Variant represents a product variant
type Variant struct {
	ID                  int64  `json:"id,omitempty"`
	ProductID           int64  `json:"product_id,omitempty"`
	Title               string `json:"title,omitempty"`
	Price               string `json:"price"`
	Sku                 string `json:"sku,omitempty"`
	Position            int    `json:"position,omitempty"`
	InventoryManagement string `json:"inventory_management,omitempty"`
	InventoryQuantity   int    `json:"inventory_quantity,omitempty"`
}

// Customer represents a Shopify customer, either listed directly or embedded
// in an order.
type Customer struct {
	ID               int64  `json:"id,omitempty"`
	FirstName        string `json:"first_name,omitempty"`
	LastName         string `json:"last_name,omitempty"`
	Email            string `json:"email,omitempty"`
	VerifiedEmail    bool   `json:"verified_email,omitempty"`
	AcceptsMarketing bool   `json:"accepts_marketing,omitempty"`
	Tags             string `json:"tags,omitempty"`
}

// Order represents a Shopify order
type Order struct {
	ID                int64      `json:"id,omitempty"`
	Email             string     `json:"email,omitempty"`
	TotalPrice        string     `json:"total_price,omitempty"`
	FinancialStatus   string     `json:"financial_status,omitempty"`
	FulfillmentStatus string     `json:"fulfillment_status,omitempty"`
	Tags              string     `json:"tags,omitempty"`
	Customer          *Customer  `json:"customer,omitempty"`
	LineItems         []LineItem `json:"line_items,omitempty"`
	CreatedAt         *time.Time `json:"created_at,omitempty"`
}

// LineItem is one line of an order. ProductID is null for custom items.
type LineItem struct {
	ID        int64  `json:"id,omitempty"`
	ProductID *int64 `json:"product_id,omitempty"`
	VariantID *int64 `json:"variant_id,omitempty"`
	Title     string `json:"title,omitempty"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price,omitempty"`
}

// ProductsResponse represents one page of the products API
type ProductsResponse struct {
	Products     []Product `json:"products"`
	NextPageInfo string    `json:"-"`
}

type CustomersResponse struct {
	Customers    []Customer `json:"customers"`
	NextPageInfo string     `json:"-"`
}

type OrdersResponse struct {
	Orders       []Order `json:"orders"`
	NextPageInfo string  `json:"-"`
}
