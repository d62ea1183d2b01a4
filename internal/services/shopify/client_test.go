package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"shopsync/internal/config"
	"shopsync/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedServer answers successive requests with the given statuses; the
// last status repeats. 2xx answers use body.
type scriptedServer struct {
	mu         sync.Mutex
	statuses   []int
	retryAfter string
	body       string
	calls      int
	requests   []*http.Request
	bodies     []string
}

func (s *scriptedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, _ := io.ReadAll(r.Body)
	s.requests = append(s.requests, r)
	s.bodies = append(s.bodies, string(b))

	status := s.statuses[len(s.statuses)-1]
	if s.calls < len(s.statuses) {
		status = s.statuses[s.calls]
	}
	s.calls++

	if status >= 300 {
		if s.retryAfter != "" {
			w.Header().Set("Retry-After", s.retryAfter)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"errors":"nope"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(s.body))
}

func newTestClient(t *testing.T, handler http.Handler, waits *[]time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient("demo-shop", "shpat_test", logger.Nop(),
		WithBaseURL(srv.URL),
		WithRetryPolicy(RetryPolicy{MaxRetries: 5, BaseDelay: 100 * time.Millisecond}),
		WithSleep(func(ctx context.Context, d time.Duration) error {
			if waits != nil {
				*waits = append(*waits, d)
			}
			return nil
		}),
	)
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	c := NewClient("demo-shop.myshopify.com", "tok", logger.Nop())
	assert.Equal(t, "https://demo-shop.myshopify.com/admin/api/2024-07", c.baseURL)

	c = NewClient("demo-shop", "tok", logger.Nop(), WithAPIVersion("2025-01"))
	assert.Equal(t, "https://demo-shop.myshopify.com/admin/api/2025-01", c.baseURL)
}

func TestClient_FetchPage(t *testing.T) {
	srv := &scriptedServer{
		statuses: []int{200},
		body:     `{"products":[{"id":1,"title":"Mug"},{"id":2,"title":"Cap"}]}`,
	}
	c := newTestClient(t, srv, nil)

	page, err := c.FetchPage(context.Background(), EntityProducts, 50, "")
	require.NoError(t, err)

	assert.Len(t, page.Records, 2)
	assert.Empty(t, page.NextPageInfo)

	req := srv.requests[0]
	assert.Equal(t, "/products.json", req.URL.Path)
	assert.Equal(t, "50", req.URL.Query().Get("limit"))
	assert.Equal(t, "shpat_test", req.Header.Get("X-Shopify-Access-Token"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
}

func TestClient_FetchPage_OrdersAnyStatus(t *testing.T) {
	srv := &scriptedServer{statuses: []int{200}, body: `{"orders":[]}`}
	c := newTestClient(t, srv, nil)

	_, err := c.FetchPage(context.Background(), EntityOrders, 50, "")
	require.NoError(t, err)
	assert.Equal(t, "any", srv.requests[0].URL.Query().Get("status"))

	_, err = c.FetchPage(context.Background(), EntityOrders, 50, "cursor")
	require.NoError(t, err)
	assert.Empty(t, srv.requests[1].URL.Query().Get("status"))
	assert.Equal(t, "cursor", srv.requests[1].URL.Query().Get("page_info"))
}

func TestClient_FetchPage_NextLink(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Link", `<https://demo-shop.myshopify.com/admin/api/2024-07/customers.json?limit=50&page_info=abc123>; rel="next"`)
		_, _ = w.Write([]byte(`{"customers":[{"id":7}]}`))
	})
	c := newTestClient(t, handler, nil)

	resp, err := c.ListCustomers(context.Background(), 50, "")
	require.NoError(t, err)
	assert.Equal(t, "abc123", resp.NextPageInfo)
	require.Len(t, resp.Customers, 1)
	assert.Equal(t, int64(7), resp.Customers[0].ID)
}

func TestClient_FetchPage_MissingCollection(t *testing.T) {
	srv := &scriptedServer{statuses: []int{200}, body: `{"things":[]}`}
	c := newTestClient(t, srv, nil)

	_, err := c.FetchPage(context.Background(), EntityProducts, 50, "")
	assert.Error(t, err)
}

func TestClient_FetchPage_UnknownEntity(t *testing.T) {
	c := newTestClient(t, &scriptedServer{statuses: []int{200}}, nil)

	_, err := c.FetchPage(context.Background(), Entity("widgets"), 50, "")
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestClient_RetriesWithExponentialBackoff(t *testing.T) {
	srv := &scriptedServer{
		statuses: []int{503, 503, 200},
		body:     `{"products":[{"id":1}]}`,
	}
	var waits []time.Duration
	c := newTestClient(t, srv, &waits)

	resp, err := c.ListProducts(context.Background(), 50, "")
	require.NoError(t, err)
	assert.Len(t, resp.Products, 1)
	assert.Equal(t, 3, srv.calls)

	require.Len(t, waits, 2)
	assert.Equal(t, 100*time.Millisecond, waits[0])
	assert.Equal(t, 200*time.Millisecond, waits[1])
	assert.Greater(t, waits[1], waits[0])
}

func TestClient_RetryHonoursRetryAfter(t *testing.T) {
	srv := &scriptedServer{
		statuses:   []int{429, 429, 200},
		retryAfter: "2.0",
		body:       `{"products":[]}`,
	}
	var waits []time.Duration
	c := newTestClient(t, srv, &waits)

	_, err := c.ListProducts(context.Background(), 50, "")
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, waits)
}

func TestClient_NoRetryOnClientError(t *testing.T) {
	srv := &scriptedServer{statuses: []int{404}}
	var waits []time.Duration
	c := newTestClient(t, srv, &waits)

	_, err := c.ListProducts(context.Background(), 50, "")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "nope")
	assert.Equal(t, 1, srv.calls)
	assert.Empty(t, waits)
}

func TestClient_RetriesExhausted(t *testing.T) {
	srv := &scriptedServer{statuses: []int{500}}
	var waits []time.Duration
	c := newTestClient(t, srv, &waits)

	_, err := c.ListProducts(context.Background(), 50, "")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, 6, srv.calls)
	assert.Len(t, waits, 5)
	for i := 1; i < len(waits); i++ {
		assert.Greater(t, waits[i], waits[i-1])
	}
}

func TestClient_RetryWaitCancelled(t *testing.T) {
	srv := httptest.NewServer(&scriptedServer{statuses: []int{503}})
	defer srv.Close()

	c := NewClient("demo-shop", "tok", logger.Nop(),
		WithBaseURL(srv.URL),
		WithRetryPolicy(RetryPolicy{MaxRetries: 3, BaseDelay: time.Hour}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.ListProducts(ctx, 50, "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_CreateProduct(t *testing.T) {
	srv := &scriptedServer{
		statuses: []int{201},
		body:     `{"product":{"id":99,"title":"Eco Mug #1","variants":[{"id":5,"price":"12.50"}]}}`,
	}
	c := newTestClient(t, srv, nil)

	created, err := c.CreateProduct(context.Background(), &Product{
		Title:    "Eco Mug #1",
		Variants: []Variant{{Price: "12.50"}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(99), created.ID)
	assert.Equal(t, int64(5), created.Variants[0].ID)

	req := srv.requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/products.json", req.URL.Path)

	var sent map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(srv.bodies[0]), &sent))
	assert.Equal(t, "Eco Mug #1", sent["product"]["title"])
	assert.NotContains(t, sent["product"], "id")
}

func TestClient_CreateEntity_PermanentFailure(t *testing.T) {
	srv := &scriptedServer{statuses: []int{422}}
	c := newTestClient(t, srv, nil)

	_, err := c.CreateEntity(context.Background(), EntityCustomers, map[string]string{"email": "x"})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 422, apiErr.StatusCode)
	assert.Equal(t, 1, srv.calls)
}

func TestNewClientFromConfig(t *testing.T) {
	cfg := &config.Config{
		ShopName:        "demo-shop",
		AccessToken:     "tok",
		APIVersion:      "2025-01",
		RetryMaxRetries: 2,
		RetryBaseDelay:  250 * time.Millisecond,
	}
	c := NewClientFromConfig(cfg, logger.Nop(), nil)
	assert.Equal(t, "https://demo-shop.myshopify.com/admin/api/2025-01", c.baseURL)
	assert.Equal(t, RetryPolicy{MaxRetries: 2, BaseDelay: 250 * time.Millisecond}, c.retry)

	cfg.BaseURL = "http://localhost:9999/admin/api/2025-01/"
	c = NewClientFromConfig(cfg, logger.Nop(), nil)
	assert.Equal(t, "http://localhost:9999/admin/api/2025-01", c.baseURL)
}
