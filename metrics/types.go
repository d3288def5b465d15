// Package metrics 为 shorturl 提供统一的指标收集能力。
// 基于 OpenTelemetry 构建，通过 Prometheus Exporter 暴露 Counter、Gauge、Histogram。
//
// 快速开始：
//
//	meter, err := metrics.New(metrics.NewDevDefaultConfig("idserver"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer meter.Shutdown(ctx)
//
//	counter, _ := meter.Counter("idgen_ids_generated_total", "已生成的 ID 总数")
//	counter.Inc(ctx, metrics.L("mode", "sharded"))
//
// 组件通过 WithMeter 注入 Meter；未注入时使用 Discard()，所有记录都是空操作。
package metrics

import (
	"context"
	"net/http"
)

// Counter 计数器，只增不减
type Counter interface {
	// Inc 将计数器增加 1
	Inc(ctx context.Context, labels ...Label)

	// Add 将计数器增加给定的值，负数会被忽略
	Add(ctx context.Context, val float64, labels ...Label)
}

// Gauge 仪表盘，记录可任意增减的瞬时值，如队列长度
type Gauge interface {
	Set(ctx context.Context, val float64, labels ...Label)
	Inc(ctx context.Context, labels ...Label)
	Dec(ctx context.Context, labels ...Label)
}

// Histogram 直方图，记录值的分布，如等待耗时
type Histogram interface {
	Record(ctx context.Context, val float64, labels ...Label)
}

// Meter 指标创建工厂
//
// 通过同一个 Meter 创建的指标共享一个 Prometheus Registry，可以在多个 goroutine 中并发使用。
type Meter interface {
	Counter(name string, desc string, opts ...MetricOption) (Counter, error)
	Gauge(name string, desc string, opts ...MetricOption) (Gauge, error)
	Histogram(name string, desc string, opts ...MetricOption) (Histogram, error)

	// Handler 返回 Prometheus 抓取入口，可挂载到业务 HTTP 服务上
	Handler() http.Handler

	// Shutdown 关闭 Meter 并停止内置的指标 HTTP 服务
	Shutdown(ctx context.Context) error
}

// MetricOption 指标配置选项
type MetricOption func(*MetricOptions)

// MetricOptions 指标选项
type MetricOptions struct {
	// Unit 指标单位，建议使用 UCUM 代码，如 "s"、"By"
	Unit string
	// Buckets 直方图的显式桶边界，仅对 Histogram 生效
	Buckets []float64
}

// WithUnit 设置指标的单位
func WithUnit(unit string) MetricOption {
	return func(o *MetricOptions) {
		o.Unit = unit
	}
}

// WithBuckets 设置直方图的桶边界
//
//	meter.Histogram("idgen_wait_seconds", "等待耗时", metrics.WithUnit("s"),
//	    metrics.WithBuckets([]float64{0.0001, 0.001, 0.01, 0.1, 1}))
func WithBuckets(buckets []float64) MetricOption {
	return func(o *MetricOptions) {
		o.Buckets = append([]float64(nil), buckets...)
	}
}

func applyMetricOptions(opts []MetricOption) *MetricOptions {
	o := &MetricOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
