package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/earnedvalue-backend/internal/platform/ctxutil"
	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
)

// RequestLogger logs one line per request. The SSE stream is logged at debug
// on close since it stays open for the life of the client.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	log = log.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		fields := append([]any{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}, ctxutil.LogFields(c.Request.Context())...)
		if id := c.Param("id"); id != "" {
			fields = append(fields, "resource_id", id)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Error("request failed", fields...)
		case status >= 400:
			log.Warn("request rejected", fields...)
		case route == eventsRoute:
			log.Debug("event stream closed", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

const eventsRoute = "/api/projects/:id/events"
