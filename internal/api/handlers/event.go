package handlers

import (
	"shopsync/internal/logger"
	"shopsync/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type EventHandler struct {
	db     *gorm.DB
	logger *logger.Logger
}

func NewEventHandler(db *gorm.DB, logger *logger.Logger) *EventHandler {
	return &EventHandler{
		db:     db,
		logger: logger,
	}
}

// List returns stored webhook events, newest first.
func (h *EventHandler) List(c *gin.Context) {
	query := h.db.WithContext(c.Request.Context()).Model(&models.Event{})

	if eventType := c.Query("type"); eventType != "" {
		query = query.Where("type = ?", eventType)
	}

	if storeID := c.Query("store_id"); storeID != "" {
		query = query.Where("store_id = ?", storeID)
	}

	respondList[models.Event](c, query.Order("received_at DESC"), "events")
}
