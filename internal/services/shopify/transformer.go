package shopify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"shopsync/internal/models"

	"github.com/shopspring/decimal"
)

// Transformer maps Shopify payloads onto local rows for one store.
type Transformer struct {
	storeID string
	now     func() time.Time
}

func NewTransformer(storeID string) *Transformer {
	return &Transformer{
		storeID: storeID,
		now:     time.Now,
	}
}

// ExternalID renders a Shopify numeric id the way it is stored locally.
func ExternalID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// TransformProduct converts a Shopify product; the price comes from the
// primary variant (position 1, else the first one) and is zero without variants.
func (t *Transformer) TransformProduct(shopifyProduct *Product) (*models.Product, error) {
	if shopifyProduct.ID == 0 {
		return nil, fmt.Errorf("product without id")
	}

	var primaryVariant *Variant
	for i := range shopifyProduct.Variants {
		if shopifyProduct.Variants[i].Position == 1 {
			primaryVariant = &shopifyProduct.Variants[i]
			break
		}
	}
	if primaryVariant == nil && len(shopifyProduct.Variants) > 0 {
		primaryVariant = &shopifyProduct.Variants[0]
	}

	price := decimal.Zero
	if primaryVariant != nil {
		var err error
		price, err = ParseMoney(primaryVariant.Price)
		if err != nil {
			return nil, fmt.Errorf("invalid price for product %d: %w", shopifyProduct.ID, err)
		}
	}

	return &models.Product{
		ExternalID: ExternalID(shopifyProduct.ID),
		Title:      shopifyProduct.Title,
		Vendor:     shopifyProduct.Vendor,
		Price:      price,
		StoreID:    t.storeID,
	}, nil
}

func (t *Transformer) TransformCustomer(shopifyCustomer *Customer) (*models.Customer, error) {
	if shopifyCustomer.ID == 0 {
		return nil, fmt.Errorf("customer without id")
	}
	return &models.Customer{
		ExternalID: ExternalID(shopifyCustomer.ID),
		FirstName:  shopifyCustomer.FirstName,
		LastName:   shopifyCustomer.LastName,
		Email:      shopifyCustomer.Email,
		StoreID:    t.storeID,
	}, nil
}

// InlineCustomer builds the customer embedded in an order. Orders may carry a
// customer with no email; a placeholder derived from the order id is used then.
func (t *Transformer) InlineCustomer(shopifyOrder *Order) *models.Customer {
	if shopifyOrder.Customer == nil || shopifyOrder.Customer.ID == 0 {
		return nil
	}
	email := shopifyOrder.Customer.Email
	if email == "" {
		email = GuestEmail(shopifyOrder.ID)
	}
	return &models.Customer{
		ExternalID: ExternalID(shopifyOrder.Customer.ID),
		FirstName:  shopifyOrder.Customer.FirstName,
		LastName:   shopifyOrder.Customer.LastName,
		Email:      email,
		StoreID:    t.storeID,
	}
}

func GuestEmail(orderID int64) string {
	return fmt.Sprintf("guest-%d@example.com", orderID)
}

// TransformOrder converts the order header; customer and items are resolved
// by the caller.
func (t *Transformer) TransformOrder(shopifyOrder *Order) (*models.Order, error) {
	if shopifyOrder.ID == 0 {
		return nil, fmt.Errorf("order without id")
	}

	total, err := ParseMoney(shopifyOrder.TotalPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid total price for order %d: %w", shopifyOrder.ID, err)
	}

	createdAt := t.now().UTC()
	if shopifyOrder.CreatedAt != nil {
		createdAt = shopifyOrder.CreatedAt.UTC()
	}

	return &models.Order{
		ExternalID: ExternalID(shopifyOrder.ID),
		TotalPrice: total,
		CreatedAt:  createdAt,
		StoreID:    t.storeID,
	}, nil
}

// TransformLineItem builds the item linking orderID and productID.
func (t *Transformer) TransformLineItem(lineItem *LineItem, orderID, productID string) (*models.OrderItem, error) {
	price, err := ParseMoney(lineItem.Price)
	if err != nil {
		return nil, fmt.Errorf("invalid price for line item %d: %w", lineItem.ID, err)
	}
	return &models.OrderItem{
		ID:        models.OrderItemID(orderID, productID),
		Quantity:  lineItem.Quantity,
		Price:     price,
		OrderID:   orderID,
		ProductID: productID,
		StoreID:   t.storeID,
	}, nil
}

// ParseMoney reads a Shopify money string; an empty string is zero.
func ParseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
