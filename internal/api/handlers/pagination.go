package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	defaultLimit = 20
	maxLimit     = 250
)

type pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

func parsePagination(c *gin.Context) pagination {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return pagination{Page: page, Limit: limit}
}

func (p pagination) offset() int {
	return (p.Page - 1) * p.Limit
}

// respondList counts query, fetches the requested page into a []T and
// writes the usual {"data", "pagination"} envelope.
func respondList[T any](c *gin.Context, query *gorm.DB, what string) {
	p := parsePagination(c)

	if err := query.Session(&gorm.Session{}).Count(&p.Total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count " + what})
		return
	}

	rows := make([]T, 0, p.Limit)
	if err := query.Session(&gorm.Session{}).Offset(p.offset()).Limit(p.Limit).Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch " + what})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       rows,
		"pagination": p,
	})
}
