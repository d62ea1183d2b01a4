package middleware

import (
	"fmt"
	"strings"
	"time"

	"shopsync/internal/logger"

	"github.com/gin-gonic/gin"
)

// Logger writes one access line per request through logger. Probe and
// scrape paths are skipped.
func Logger(logger *logger.Logger, skipPaths ...string) gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			line := fmt.Sprintf("[%s] %s %s %d %s %s",
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.StatusCode,
				param.Latency,
				param.ClientIP,
			)
			if param.ErrorMessage != "" {
				line += " " + strings.TrimSpace(param.ErrorMessage)
			}
			return line + "\n"
		},
		Output:    accessWriter{logger: logger},
		SkipPaths: skipPaths,
	})
}

type accessWriter struct {
	logger *logger.Logger
}

func (w accessWriter) Write(p []byte) (int, error) {
	w.logger.Info("%s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
