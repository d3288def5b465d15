package clog

import (
	"context"
	"fmt"
	"log/slog"

	oteltrace "go.opentelemetry.io/otel/trace"
)

// extractContextFields 按 options 的规则从 ctx 取字段追加到 attrs
func extractContextFields(ctx context.Context, options *options, attrs *[]slog.Attr) {
	if ctx == nil || options == nil {
		return
	}

	if options.traceContext {
		if sc := oteltrace.SpanContextFromContext(ctx); sc.IsValid() {
			*attrs = append(*attrs,
				slog.String("trace_id", sc.TraceID().String()),
				slog.String("span_id", sc.SpanID().String()))
		}
	}

	for _, cf := range options.contextFields {
		switch v := ctx.Value(cf.Key).(type) {
		case nil:
		case string:
			*attrs = append(*attrs, slog.String(cf.FieldName, v))
		case fmt.Stringer:
			*attrs = append(*attrs, slog.String(cf.FieldName, v.String()))
		default:
			*attrs = append(*attrs, slog.Any(cf.FieldName, v))
		}
	}
}
