package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"shopsync/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logger.NewFromZap(zap.New(core)), logs
}

func TestWebhookPayload_LogsAndKeepsBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, logs := observed()

	router := gin.New()
	router.Use(WebhookPayload(log))
	var seen string
	router.POST("/webhook/cart", func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		seen = string(body)
		c.String(http.StatusOK, "ok")
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/cart", strings.NewReader(`{"id": 1}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"id": 1}`, seen)
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "/webhook/cart")
	assert.Contains(t, logs.All()[0].Message, `{"id": 1}`)
}

func TestWebhookPayload_TooLarge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(WebhookPayload(logger.Nop()))
	router.POST("/webhook/cart", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	rec := httptest.NewRecorder()
	body := strings.NewReader(`"` + strings.Repeat("a", maxWebhookBody) + `"`)
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/cart", body))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestLogger_SkipsPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, logs := observed()

	router := gin.New()
	router.Use(Logger(log, "/healthz"))
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/v1/products", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))

	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "GET /api/v1/products 200")
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, logs := observed()

	router := gin.New()
	router.Use(Recovery(log))
	router.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "kaboom")
}
