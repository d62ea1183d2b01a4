package handlers

import (
	"errors"
	"net/http"

	"shopsync/internal/logger"
	"shopsync/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CustomerHandler struct {
	db     *gorm.DB
	logger *logger.Logger
}

func NewCustomerHandler(db *gorm.DB, logger *logger.Logger) *CustomerHandler {
	return &CustomerHandler{
		db:     db,
		logger: logger,
	}
}

func (h *CustomerHandler) List(c *gin.Context) {
	query := h.db.WithContext(c.Request.Context()).Model(&models.Customer{})

	if email := c.Query("email"); email != "" {
		query = query.Where("email = ?", email)
	}

	if storeID := c.Query("store_id"); storeID != "" {
		query = query.Where("store_id = ?", storeID)
	}

	respondList[models.Customer](c, query.Order("last_name, first_name"), "customers")
}

// Get accepts either the local id or the Shopify id.
func (h *CustomerHandler) Get(c *gin.Context) {
	id := c.Param("id")

	var customer models.Customer
	if err := h.db.WithContext(c.Request.Context()).First(&customer, "id = ? OR external_id = ?", id, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
			return
		}
		h.logger.Error("Failed to fetch customer %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch customer"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": customer})
}
