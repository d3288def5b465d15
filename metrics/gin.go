package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
)

// GinHTTPMiddleware 记录 HTTP RED 指标和在途请求数
//
// route 标签取路由模板（如 /v1/ids/:id/decode），避免把 ID 本身写进标签。
func GinHTTPMiddleware(httpMetrics *HTTPServerMetrics) gin.HandlerFunc {
	if httpMetrics == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		done := httpMetrics.Begin(ctx)
		start := time.Now()
		c.Next()
		done()
		httpMetrics.Observe(ctx, c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
