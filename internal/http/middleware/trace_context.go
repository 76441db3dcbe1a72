package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/earnedvalue-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// AttachRequestContext tags every request with trace and request ids, reusing
// the otel span or caller-supplied headers when present, and marks it as an
// HTTP-originated write for downstream logs and events.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := &ctxutil.RequestData{
			TraceID:   strings.TrimSpace(c.GetHeader(headerTraceID)),
			RequestID: strings.TrimSpace(c.GetHeader(headerRequestID)),
			Source:    ctxutil.SourceHTTP,
		}
		if rd.RequestID == "" {
			rd.RequestID = uuid.NewString()
		}
		if rd.TraceID == "" {
			if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
				rd.TraceID = sc.TraceID().String()
			} else {
				rd.TraceID = rd.RequestID
			}
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequest(c.Request.Context(), rd))
		c.Writer.Header().Set(headerTraceID, rd.TraceID)
		c.Writer.Header().Set(headerRequestID, rd.RequestID)
		c.Next()
	}
}
