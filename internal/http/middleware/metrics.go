package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/earnedvalue-backend/internal/observability"
)

// Metrics records request counts and latency by route template. Scrapes of
// /metrics are not counted; event streams only move the open-streams gauge.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		switch route {
		case "/metrics":
			c.Next()
			return
		case eventsRoute:
			m.SSEStreamOpened()
			defer m.SSEStreamClosed()
			c.Next()
			return
		case "":
			route = "unmatched"
		}

		start := time.Now()
		m.ApiInflightInc()
		defer m.ApiInflightDec()
		c.Next()
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
