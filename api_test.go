package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestHandler_MissingConfig(t *testing.T) {
	t.Setenv("SHOP_NAME", "")
	t.Setenv("SHOPIFY_ADMIN_TOKEN", "")

	rec := httptest.NewRecorder()
	Handler(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "SHOP_NAME is required")
}

func TestHandler_ServesWebhooks(t *testing.T) {
	t.Setenv("SHOP_NAME", "demo-shop")
	t.Setenv("SHOPIFY_ADMIN_TOKEN", "shpat_test")
	t.Setenv("SHOPIFY_WEBHOOK_SECRET", "")
	t.Setenv("DATABASE_URL", "sqlite://file:"+uuid.NewString()+"?mode=memory&cache=shared")

	rec := httptest.NewRecorder()
	Handler(rec, httptest.NewRequest(http.MethodPost, "/webhook/cart", strings.NewReader(`{"id": 1}`)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	Handler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events?type=cart_created", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)
}
