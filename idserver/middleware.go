package idserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ceyewan/shorturl/clog"
)

// HeaderRequestID 请求 ID 的请求头与响应头
const HeaderRequestID = "X-Request-ID"

// RequestIDKey 请求 ID 在 context 中的键
//
//	clog.New(cfg, clog.WithContextField(idserver.RequestIDKey{}, "request_id"))
type RequestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey{}).(string)
	return id
}

// requestID 透传或生成请求 ID，写入响应头和请求 context
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), RequestIDKey{}, id))
		c.Next()
	}
}

// recovery 捕获 panic，记录日志后返回 500
func recovery(logger clog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		logger.ErrorContext(c.Request.Context(), "panic recovered",
			clog.String("route", c.FullPath()),
			clog.String("panic", fmt.Sprint(rec)))
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{
			Code:      "internal",
			Error:     "internal server error",
			RequestID: requestIDFrom(c.Request.Context()),
		})
	})
}

// accessLog 以 Debug 级别记录每个请求
func accessLog(logger clog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.DebugContext(c.Request.Context(), "http request",
			clog.String("method", c.Request.Method),
			clog.String("path", c.Request.URL.Path),
			clog.Int("status", c.Writer.Status()),
			clog.Duration("latency", time.Since(start)),
			clog.String("client_ip", c.ClientIP()))
	}
}
