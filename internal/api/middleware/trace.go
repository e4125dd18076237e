package middleware

import (
	"Vibeshare/internal/pkg/consts"
	"Vibeshare/internal/pkg/logger"
	"regexp"

	"github.com/gin-gonic/gin"
)

const traceHeader = "X-Trace-ID"

// 上游 trace id 只接受短的 [A-Za-z0-9._-] 串
var traceIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// TraceMiddleware 为每个本地 API 请求建立 trace id，UI 传入的合法值优先
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if traceID := c.GetHeader(traceHeader); traceIDPattern.MatchString(traceID) {
			ctx = logger.ContextWithTraceID(ctx, traceID)
		} else {
			ctx = logger.WithTraceID(ctx, consts.TracePrefixHTTP)
		}
		traceID := logger.TraceID(ctx)

		c.Set(logger.TraceIDKey, traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(traceHeader, traceID)
		c.Next()
	}
}
