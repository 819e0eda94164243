package ctxmanage

import (
	"context"

	"github.com/gin-gonic/gin"
)

type key string

// TraceIDKey is the context key under which the per-request trace id lives.
const TraceIDKey key = "trace_id"

// WithTraceID returns a context carrying the given trace id.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceIdOfRequest pulls the trace id set by the logging middleware out of
// the request context. Returns "unknown" if the middleware did not run.
func GetTraceIdOfRequest(c *gin.Context) string {
	traceID, ok := c.Request.Context().Value(TraceIDKey).(string)
	if !ok {
		return "unknown"
	}
	return traceID
}
