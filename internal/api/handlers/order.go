package handlers

import (
	"errors"
	"net/http"

	"shopsync/internal/logger"
	"shopsync/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type OrderHandler struct {
	db     *gorm.DB
	logger *logger.Logger
}

func NewOrderHandler(db *gorm.DB, logger *logger.Logger) *OrderHandler {
	return &OrderHandler{
		db:     db,
		logger: logger,
	}
}

// List returns orders newest first, each with its items.
func (h *OrderHandler) List(c *gin.Context) {
	query := h.db.WithContext(c.Request.Context()).Model(&models.Order{})

	if customerID := c.Query("customer_id"); customerID != "" {
		query = query.Where("customer_id = ?", customerID)
	}

	if storeID := c.Query("store_id"); storeID != "" {
		query = query.Where("store_id = ?", storeID)
	}

	respondList[models.Order](c, query.Preload("Items").Order("created_at DESC"), "orders")
}

func (h *OrderHandler) Get(c *gin.Context) {
	id := c.Param("id")

	var order models.Order
	err := h.db.WithContext(c.Request.Context()).
		Preload("Customer").
		Preload("Items.Product").
		First(&order, "id = ? OR external_id = ?", id, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		h.logger.Error("Failed to fetch order %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}
