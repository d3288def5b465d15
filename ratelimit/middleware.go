package ratelimit

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GinMiddleware 创建 Gin 限流中间件
//
// keyFunc 为 nil 时按客户端 IP 限流。限流器出错时放行。被限流时返回 429，
// 并按 1/Rate 设置 Retry-After（至少 1 秒）。
//
//	r.Use(ratelimit.GinMiddleware(limiter, nil, ratelimit.Limit{Rate: 100, Burst: 200}))
func GinMiddleware(limiter Limiter, keyFunc func(*gin.Context) string, limit Limit) gin.HandlerFunc {
	if keyFunc == nil {
		keyFunc = func(c *gin.Context) string {
			return "ip:" + c.ClientIP()
		}
	}
	retryAfter := strconv.Itoa(int(math.Max(1, math.Ceil(1/math.Max(limit.Rate, 1e-9)))))

	return func(c *gin.Context) {
		if limiter == nil || !limit.valid() {
			c.Next()
			return
		}
		key := keyFunc(c)
		if key == "" {
			c.Next()
			return
		}

		allowed, err := limiter.Allow(c.Request.Context(), key, limit)
		if err != nil || allowed {
			c.Next()
			return
		}

		c.Header("Retry-After", retryAfter)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"code":  "rate_limited",
			"error": "rate limit exceeded",
		})
	}
}
