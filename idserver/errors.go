package idserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/shorturl/clog"
	"github.com/ceyewan/shorturl/idgen"
	"github.com/ceyewan/shorturl/trace"
	"github.com/ceyewan/shorturl/xerrors"
)

var (
	// ErrInvalidConfig 服务配置无效
	ErrInvalidConfig = xerrors.New("idserver: invalid config")

	// ErrGeneratorNil 未提供生成器
	ErrGeneratorNil = xerrors.New("idserver: generator is nil")
)

// errorBody 所有错误响应的统一结构
type errorBody struct {
	Code      string `json:"code"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// statusOf 将错误映射为 HTTP 状态码、错误码，以及是否建议客户端稍后重试
func statusOf(err error) (status int, code string, retry bool) {
	switch {
	case xerrors.Is(err, idgen.ErrTimeout):
		return http.StatusServiceUnavailable, "timeout", true
	case xerrors.Is(err, idgen.ErrPoolSaturated):
		return http.StatusServiceUnavailable, "pool_saturated", true
	case xerrors.Is(err, idgen.ErrClockRegressed):
		return http.StatusServiceUnavailable, "clock_regressed", false
	case xerrors.Is(err, idgen.ErrLeaseExpired):
		return http.StatusServiceUnavailable, "lease_expired", false
	case xerrors.Is(err, idgen.ErrClosed):
		return http.StatusServiceUnavailable, "closed", false
	case xerrors.Is(err, context.Canceled), xerrors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "canceled", false
	case xerrors.Is(err, xerrors.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input", false
	default:
		return http.StatusInternalServerError, "internal", false
	}
}

func (s *Server) abortWithError(c *gin.Context, err error) {
	status, code, retry := statusOf(err)
	if retry {
		c.Header("Retry-After", "1")
	}

	ctx := c.Request.Context()
	if status >= http.StatusInternalServerError {
		s.logger.WarnContext(ctx, "request failed",
			clog.String("route", c.FullPath()),
			clog.Int("status", status),
			clog.String("trace_id", trace.TraceID(ctx)),
			clog.Error(err))
	}

	c.AbortWithStatusJSON(status, errorBody{
		Code:      code,
		Error:     err.Error(),
		RequestID: requestIDFrom(ctx),
	})
}
