package handlers

import (
	"errors"
	"net/http"

	"shopsync/internal/logger"
	"shopsync/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type SyncRunHandler struct {
	db     *gorm.DB
	logger *logger.Logger
}

func NewSyncRunHandler(db *gorm.DB, logger *logger.Logger) *SyncRunHandler {
	return &SyncRunHandler{
		db:     db,
		logger: logger,
	}
}

func (h *SyncRunHandler) List(c *gin.Context) {
	query := h.db.WithContext(c.Request.Context()).Model(&models.SyncRun{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	respondList[models.SyncRun](c, query.Order("started_at DESC"), "sync runs")
}

// Latest returns the most recent run, or 404 before the first one.
func (h *SyncRunHandler) Latest(c *gin.Context) {
	var run models.SyncRun
	if err := h.db.WithContext(c.Request.Context()).Order("started_at DESC").First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No sync run recorded"})
			return
		}
		h.logger.Error("Failed to fetch latest sync run: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sync run"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": run})
}
