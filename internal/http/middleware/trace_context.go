package middleware

import (
	"crypto/rand"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/routineflow-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
	maxHeaderIDLen  = 128
)

func newID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// headerID returns a caller supplied id when it is short enough to log.
func headerID(c *gin.Context, name string) string {
	v := strings.TrimSpace(c.GetHeader(name))
	if len(v) > maxHeaderIDLen {
		return ""
	}
	return v
}

func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := headerID(c, headerRequestID)
		if reqID == "" {
			reqID = newID()
		}
		traceID := headerID(c, headerTraceID)
		if traceID == "" {
			spanCtx := trace.SpanContextFromContext(c.Request.Context())
			if spanCtx.HasTraceID() {
				traceID = spanCtx.TraceID().String()
			}
		}
		if traceID == "" {
			traceID = reqID
		}
		ctx := ctxutil.WithTraceData(c.Request.Context(), &ctxutil.TraceData{
			TraceID:   traceID,
			RequestID: reqID,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Set("trace_id", traceID)
		c.Set("request_id", reqID)
		c.Writer.Header().Set(headerTraceID, traceID)
		c.Writer.Header().Set(headerRequestID, reqID)
		c.Next()
	}
}
