package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
)

// RequestLogger logs one line per request with its request id. Server errors
// are logged at error level and client errors at warn level.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"client_ip", c.ClientIP(),
			"request_id", requestid.Get(c),
			"duration", time.Since(start),
		}

		switch {
		case status >= 500:
			logger.Error("❌ [HTTP] Request failed", attrs...)
		case status >= 400:
			logger.Warn("⚠️ [HTTP] Request rejected", attrs...)
		default:
			logger.Info("🌐 [HTTP] Request handled", attrs...)
		}
	}
}
