package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"shopsync/internal/events"
	"shopsync/internal/logger"
	"shopsync/internal/metrics"
	"shopsync/internal/models"
	"shopsync/internal/services/shopify"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

// EventStore persists inbound webhook deliveries.
type EventStore interface {
	CreateEvent(ctx context.Context, e *models.Event) error
}

type WebhookHandler struct {
	store     EventStore
	storeID   string
	secret    string
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

// NewWebhookHandler stores events for storeID. A non-empty secret makes every
// request carry a valid X-Shopify-Hmac-Sha256 signature.
func NewWebhookHandler(store EventStore, storeID, secret string, publisher events.Publisher, m *metrics.Metrics, logger *logger.Logger) *WebhookHandler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &WebhookHandler{
		store:     store,
		storeID:   storeID,
		secret:    secret,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// Accept returns the handler that records deliveries as eventType.
func (h *WebhookHandler) Accept(eventType models.EventType) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := c.GetRawData()
		if err != nil {
			c.String(http.StatusBadRequest, "error")
			return
		}

		if h.secret != "" && !shopify.ValidateWebhook(payload, c.GetHeader(shopify.WebhookSignatureHeader), h.secret) {
			h.logger.Warn("Rejected %s webhook: invalid signature", eventType)
			h.metrics.WebhookEvent(string(eventType), false)
			c.String(http.StatusUnauthorized, "unauthorized")
			return
		}

		if !json.Valid(payload) {
			h.metrics.WebhookEvent(string(eventType), false)
			c.String(http.StatusBadRequest, "invalid JSON")
			return
		}

		event := &models.Event{
			Type:    eventType,
			Payload: datatypes.JSON(payload),
			StoreID: h.storeID,
		}
		if err := h.store.CreateEvent(c.Request.Context(), event); err != nil {
			h.logger.Error("Error saving %s event: %v", eventType, err)
			h.metrics.WebhookEvent(string(eventType), false)
			c.String(http.StatusInternalServerError, "error")
			return
		}
		h.logger.Info("%s event saved", eventType)
		h.metrics.WebhookEvent(string(eventType), true)

		err = h.publisher.Publish(c.Request.Context(), event.ID, events.Message{
			Type:      events.TypeWebhookReceived,
			StoreID:   h.storeID,
			Data:      event,
			Timestamp: event.ReceivedAt,
		})
		if err != nil {
			// best-effort once the row is stored
			h.logger.Warn("Failed to publish %s event %s: %v", eventType, event.ID, err)
		}

		c.String(http.StatusOK, "ok")
	}
}
