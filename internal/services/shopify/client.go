package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shopsync/internal/logger"
	"shopsync/internal/metrics"

	"github.com/tomnomnom/linkheader"
)

var ErrUnknownEntity = errors.New("unknown entity type")

const (
	DefaultAPIVersion = "2024-07"
	defaultTimeout    = 30 * time.Second
)

type Client struct {
	shopName    string
	apiVersion  string
	baseURL     string
	accessToken string
	httpClient  *http.Client
	retry       RetryPolicy
	sleep       SleepFunc
	logger      *logger.Logger
	metrics     *metrics.Metrics
}

type Option func(*Client)

// WithBaseURL points the client at another host, e.g. an httptest server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithAPIVersion(version string) Option {
	return func(c *Client) {
		c.apiVersion = version
	}
}

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.retry = policy
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithSleep replaces the backoff wait; tests use it to record delays.
func WithSleep(sleep SleepFunc) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

func NewClient(shopName, accessToken string, logger *logger.Logger, opts ...Option) *Client {
	c := &Client{
		shopName:    shopName,
		apiVersion:  DefaultAPIVersion,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		retry:  DefaultRetryPolicy(),
		sleep:  sleepContext,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.baseURL = shopBaseURL(c.shopName, c.apiVersion)
	}
	return c
}

func shopBaseURL(shopName, version string) string {
	shopName = strings.TrimSuffix(shopName, ".myshopify.com")
	return fmt.Sprintf("https://%s.myshopify.com/admin/api/%s", shopName, version)
}

// Page is one page of raw records from a collection endpoint.
type Page struct {
	Records      []json.RawMessage
	NextPageInfo string
}

// FetchPage reads one page of entity. pageInfo is the cursor from a previous
// page's NextPageInfo, empty for the first page.
func (c *Client) FetchPage(ctx context.Context, entity Entity, limit int, pageInfo string) (*Page, error) {
	if !entity.valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if pageInfo != "" {
		// Shopify rejects filters alongside page_info; the cursor carries them.
		q.Set("page_info", pageInfo)
	} else if entity == EntityOrders {
		q.Set("status", "any")
	}

	body, header, err := c.do(ctx, http.MethodGet, "/"+string(entity)+".json", q, nil)
	if err != nil {
		return nil, err
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	raw, ok := envelope[string(entity)]
	if !ok {
		return nil, fmt.Errorf("failed to decode response: missing %q collection", entity)
	}

	page := &Page{NextPageInfo: nextPageInfo(header.Get("Link"))}
	if err := json.Unmarshal(raw, &page.Records); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", entity, err)
	}
	return page, nil
}

// CreateEntity posts payload wrapped in the entity's singular envelope and
// returns the created record as sent back by the API.
func (c *Client) CreateEntity(ctx context.Context, entity Entity, payload interface{}) (json.RawMessage, error) {
	if !entity.valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}

	jsonData, err := json.Marshal(map[string]interface{}{entity.Singular(): payload})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", entity.Singular(), err)
	}

	body, _, err := c.do(ctx, http.MethodPost, "/"+string(entity)+".json", nil, jsonData)
	if err != nil {
		return nil, err
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	record, ok := envelope[entity.Singular()]
	if !ok {
		return nil, fmt.Errorf("failed to decode response: missing %q", entity.Singular())
	}
	return record, nil
}

// ListProducts fetches one page of products
func (c *Client) ListProducts(ctx context.Context, limit int, pageInfo string) (*ProductsResponse, error) {
	page, err := c.FetchPage(ctx, EntityProducts, limit, pageInfo)
	if err != nil {
		return nil, err
	}
	products, err := decodeRecords[Product](page)
	if err != nil {
		return nil, err
	}
	return &ProductsResponse{Products: products, NextPageInfo: page.NextPageInfo}, nil
}

// ListCustomers fetches one page of customers
func (c *Client) ListCustomers(ctx context.Context, limit int, pageInfo string) (*CustomersResponse, error) {
	page, err := c.FetchPage(ctx, EntityCustomers, limit, pageInfo)
	if err != nil {
		return nil, err
	}
	customers, err := decodeRecords[Customer](page)
	if err != nil {
		return nil, err
	}
	return &CustomersResponse{Customers: customers, NextPageInfo: page.NextPageInfo}, nil
}

// ListOrders fetches one page of orders in any status
func (c *Client) ListOrders(ctx context.Context, limit int, pageInfo string) (*OrdersResponse, error) {
	page, err := c.FetchPage(ctx, EntityOrders, limit, pageInfo)
	if err != nil {
		return nil, err
	}
	orders, err := decodeRecords[Order](page)
	if err != nil {
		return nil, err
	}
	return &OrdersResponse{Orders: orders, NextPageInfo: page.NextPageInfo}, nil
}

func (c *Client) CreateProduct(ctx context.Context, product *Product) (*Product, error) {
	var created Product
	if err := c.create(ctx, EntityProducts, product, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) CreateCustomer(ctx context.Context, customer *Customer) (*Customer, error) {
	var created Customer
	if err := c.create(ctx, EntityCustomers, customer, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) CreateOrder(ctx context.Context, order *Order) (*Order, error) {
	var created Order
	if err := c.create(ctx, EntityOrders, order, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) create(ctx context.Context, entity Entity, payload, out interface{}) error {
	record, err := c.CreateEntity(ctx, entity, payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(record, out); err != nil {
		return fmt.Errorf("failed to decode created %s: %w", entity.Singular(), err)
	}
	return nil
}

func decodeRecords[T any](page *Page) ([]T, error) {
	out := make([]T, 0, len(page.Records))
	for _, raw := range page.Records {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// do sends one logical request, retrying transient failures.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, http.Header, error) {
	var body []byte
	var header http.Header

	onRetry := func(attempt int, apiErr *APIError, wait time.Duration) {
		c.metrics.RemoteRetry(apiErr.StatusCode)
		c.logger.Warn("Request %s %s failed with status %d. Retrying in %v (attempt %d/%d)...",
			method, path, apiErr.StatusCode, wait, attempt+1, c.retry.MaxRetries)
	}

	err := c.retry.do(ctx, c.sleep, onRetry, func() error {
		var err error
		body, header, err = c.send(ctx, method, path, query, payload)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return body, header, nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, http.Header, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}

	// Add authentication header
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       string(body),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}

	c.logger.Debug("%s %s -> %d (%d bytes)", method, path, resp.StatusCode, len(body))
	return body, resp.Header, nil
}

// nextPageInfo extracts the page_info cursor from a rel="next" Link header.
func nextPageInfo(header string) string {
	if header == "" {
		return ""
	}
	for _, link := range linkheader.Parse(header).FilterByRel("next") {
		u, err := url.Parse(link.URL)
		if err != nil {
			continue
		}
		if info := u.Query().Get("page_info"); info != "" {
			return info
		}
	}
	return ""
}
