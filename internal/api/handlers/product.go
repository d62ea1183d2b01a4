package handlers

import (
	"errors"
	"net/http"
	"strings"

	"shopsync/internal/logger"
	"shopsync/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ProductHandler struct {
	db     *gorm.DB
	logger *logger.Logger
}

func NewProductHandler(db *gorm.DB, logger *logger.Logger) *ProductHandler {
	return &ProductHandler{
		db:     db,
		logger: logger,
	}
}

func (h *ProductHandler) List(c *gin.Context) {
	// Filters
	vendor := c.Query("vendor")
	search := c.Query("search")
	storeID := c.Query("store_id")

	query := h.db.WithContext(c.Request.Context()).Model(&models.Product{})

	if vendor != "" {
		query = query.Where("vendor = ?", vendor)
	}

	if search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	if storeID != "" {
		query = query.Where("store_id = ?", storeID)
	}

	respondList[models.Product](c, query.Order("title"), "products")
}

func (h *ProductHandler) Get(c *gin.Context) {
	id := c.Param("id")

	var product models.Product
	if err := h.db.WithContext(c.Request.Context()).First(&product, "id = ? OR external_id = ?", id, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		h.logger.Error("Failed to fetch product %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": product})
}
