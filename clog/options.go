package clog

import "bytes"

// ContextField 定义从 Context 中提取字段的规则
type ContextField struct {
	Key       any    // Context 中存储的键
	FieldName string // 日志中的字段名
}

// Option 函数式选项，用于配置 Logger 实例
type Option func(*options)

type options struct {
	namespaceParts []string
	contextFields  []ContextField
	traceContext   bool
	buffer         *bytes.Buffer // 测试用 withBuffer 注入
}

// WithNamespace 设置日志命名空间，多级命名空间以 "." 连接
//
//	clog.WithNamespace("shorturl", "idserver")
func WithNamespace(parts ...string) Option {
	return func(o *options) {
		o.namespaceParts = append(o.namespaceParts, parts...)
	}
}

// WithContextField 添加自定义的 Context 字段提取规则
//
//	clog.WithContextField(requestIDKey{}, "request_id")
func WithContextField(key any, fieldName string) Option {
	return func(o *options) {
		o.contextFields = append(o.contextFields, ContextField{
			Key:       key,
			FieldName: fieldName,
		})
	}
}

// WithTraceContext 从 Context 中的 OpenTelemetry Span 提取 trace_id 和 span_id
func WithTraceContext() Option {
	return func(o *options) {
		o.traceContext = true
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
