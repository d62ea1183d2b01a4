package middleware

import (
	"bytes"
	"io"
	"net/http"

	"shopsync/internal/logger"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

// WebhookPayload logs every inbound webhook with its path and body, and
// leaves the body readable for the handler. Bodies over 1 MiB are rejected.
func WebhookPayload(logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
		if err != nil {
			c.String(http.StatusBadRequest, "error")
			c.Abort()
			return
		}
		if len(body) > maxWebhookBody {
			c.String(http.StatusRequestEntityTooLarge, "error")
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		logger.Info("Received webhook: %s payload=%s", c.Request.URL.Path, string(body))
		c.Next()
	}
}
