package trace

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/ceyewan/shorturl"

// 发号相关的 Span 属性
const (
	AttrIDGenMode         = "idgen.mode"
	AttrIDGenWorkerID     = "idgen.worker_id"
	AttrIDGenDatacenterID = "idgen.datacenter_id"
	AttrIDGenCount        = "idgen.count"
)

// SpanNameNextID 批量或单个发号的 Span 名称
const SpanNameNextID = "idgen.next_id"

// GinMiddleware 返回 Gin 的链路追踪中间件，使用全局 TracerProvider
func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// Tracer 返回 shorturl 的 Tracer
func Tracer() oteltrace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Start 开启一个内部 Span
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	return Tracer().Start(ctx, name, oteltrace.WithAttributes(attrs...))
}

// End 结束 Span，err 不为空时记录错误并标记状态
func End(span oteltrace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// TraceID 返回 ctx 中的 TraceID，没有有效 Span 时返回空串
func TraceID(ctx context.Context) string {
	sc := oteltrace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
