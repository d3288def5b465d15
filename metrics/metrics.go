package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"

	"github.com/ceyewan/shorturl/clog"
	"github.com/ceyewan/shorturl/xerrors"
)

// ============================================================================
// 工厂函数
// ============================================================================

// New 创建 Meter 实例
//
// 每个 Meter 使用独立的 Prometheus Registry，同一进程内创建多个 Meter 不会重复注册。
func New(cfg *Config, opts ...Option) (Meter, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "metrics: config is nil")
	}
	if !cfg.Enabled {
		return Discard(), nil
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := &options{logger: clog.Discard()}
	for _, opt := range opts {
		opt(o)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.Version),
		),
	)
	if err != nil {
		return nil, xerrors.Wrap(err, "metrics: create resource")
	}

	registry := prom.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, xerrors.Wrap(err, "metrics: create prometheus exporter")
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)

	if cfg.Runtime {
		if err := runtime.Start(runtime.WithMeterProvider(mp)); err != nil {
			_ = mp.Shutdown(context.Background())
			return nil, xerrors.Wrap(err, "metrics: start runtime instrumentation")
		}
	}

	m := &meterImpl{
		meter:    mp.Meter("shorturl"),
		provider: mp,
		handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		logger:   o.logger,
	}

	if cfg.Port > 0 {
		m.startServer(cfg.Port, cfg.Path)
	}

	return m, nil
}

// Must 类似 New，但出错时 panic。仅用于初始化阶段
func Must(cfg *Config, opts ...Option) Meter {
	m, err := New(cfg, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create metrics: %v", err))
	}
	return m
}

// Discard 返回空实现的 Meter，组件未注入 Meter 时使用
func Discard() Meter {
	return noopMeter{}
}

// ============================================================================
// Meter 实现
// ============================================================================

type meterImpl struct {
	meter    metric.Meter
	provider *sdkmetric.MeterProvider
	handler  http.Handler
	logger   clog.Logger

	server   *http.Server
	shutdown sync.Once
}

func (m *meterImpl) startServer(port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, m.handler)
	m.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		m.logger.Info("starting prometheus metrics server",
			clog.String("addr", m.server.Addr), clog.String("path", path))
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("prometheus metrics server stopped", clog.Error(err))
		}
	}()
}

// Counter 创建累加器
func (m *meterImpl) Counter(name string, desc string, opts ...MetricOption) (Counter, error) {
	o := applyMetricOptions(opts)
	otelOpts := []metric.Int64CounterOption{metric.WithDescription(desc)}
	if o.Unit != "" {
		otelOpts = append(otelOpts, metric.WithUnit(o.Unit))
	}
	c, err := m.meter.Int64Counter(name, otelOpts...)
	if err != nil {
		return nil, xerrors.Wrapf(err, "metrics: create counter %s", name)
	}
	return &counterImpl{c: c}, nil
}

// Gauge 创建仪表盘
func (m *meterImpl) Gauge(name string, desc string, opts ...MetricOption) (Gauge, error) {
	o := applyMetricOptions(opts)
	otelOpts := []metric.Float64GaugeOption{metric.WithDescription(desc)}
	if o.Unit != "" {
		otelOpts = append(otelOpts, metric.WithUnit(o.Unit))
	}
	g, err := m.meter.Float64Gauge(name, otelOpts...)
	if err != nil {
		return nil, xerrors.Wrapf(err, "metrics: create gauge %s", name)
	}
	return &gaugeImpl{
		g:      g,
		values: make(map[string]float64),
	}, nil
}

// Histogram 创建直方图
func (m *meterImpl) Histogram(name string, desc string, opts ...MetricOption) (Histogram, error) {
	o := applyMetricOptions(opts)
	otelOpts := []metric.Float64HistogramOption{metric.WithDescription(desc)}
	if o.Unit != "" {
		otelOpts = append(otelOpts, metric.WithUnit(o.Unit))
	}
	if len(o.Buckets) > 0 {
		otelOpts = append(otelOpts, metric.WithExplicitBucketBoundaries(o.Buckets...))
	}
	h, err := m.meter.Float64Histogram(name, otelOpts...)
	if err != nil {
		return nil, xerrors.Wrapf(err, "metrics: create histogram %s", name)
	}
	return &histogramImpl{h: h}, nil
}

func (m *meterImpl) Handler() http.Handler {
	return m.handler
}

// Shutdown 停止指标 HTTP 服务并刷新所有指标，可重复调用
func (m *meterImpl) Shutdown(ctx context.Context) error {
	var err error
	m.shutdown.Do(func() {
		if m.server != nil {
			err = m.server.Shutdown(ctx)
		}
		err = xerrors.Combine(err, m.provider.Shutdown(ctx))
	})
	return err
}

// ============================================================================
// 指标实现
// ============================================================================

type counterImpl struct {
	c metric.Int64Counter
}

func (c *counterImpl) Inc(ctx context.Context, labels ...Label) {
	c.c.Add(ctx, 1, metric.WithAttributes(toAttributes(labels)...))
}

func (c *counterImpl) Add(ctx context.Context, val float64, labels ...Label) {
	if val < 0 {
		return
	}
	c.c.Add(ctx, int64(val), metric.WithAttributes(toAttributes(labels)...))
}

// gaugeImpl 在本地保存当前值以支持 Inc/Dec
type gaugeImpl struct {
	g      metric.Float64Gauge
	mu     sync.Mutex
	values map[string]float64
}

func (g *gaugeImpl) Set(ctx context.Context, val float64, labels ...Label) {
	g.mu.Lock()
	g.values[labelKey(labels)] = val
	g.mu.Unlock()
	g.g.Record(ctx, val, metric.WithAttributes(toAttributes(labels)...))
}

func (g *gaugeImpl) Inc(ctx context.Context, labels ...Label) {
	g.add(ctx, 1, labels)
}

func (g *gaugeImpl) Dec(ctx context.Context, labels ...Label) {
	g.add(ctx, -1, labels)
}

func (g *gaugeImpl) add(ctx context.Context, delta float64, labels []Label) {
	key := labelKey(labels)
	g.mu.Lock()
	g.values[key] += delta
	val := g.values[key]
	g.mu.Unlock()
	g.g.Record(ctx, val, metric.WithAttributes(toAttributes(labels)...))
}

type histogramImpl struct {
	h metric.Float64Histogram
}

func (h *histogramImpl) Record(ctx context.Context, val float64, labels ...Label) {
	h.h.Record(ctx, val, metric.WithAttributes(toAttributes(labels)...))
}

// ============================================================================
// noop 实现
// ============================================================================

type noopMeter struct{}

func (noopMeter) Counter(string, string, ...MetricOption) (Counter, error) {
	return noopCounter{}, nil
}

func (noopMeter) Gauge(string, string, ...MetricOption) (Gauge, error) {
	return noopGauge{}, nil
}

func (noopMeter) Histogram(string, string, ...MetricOption) (Histogram, error) {
	return noopHistogram{}, nil
}

func (noopMeter) Handler() http.Handler {
	return http.NotFoundHandler()
}

func (noopMeter) Shutdown(context.Context) error {
	return nil
}

type noopCounter struct{}

func (noopCounter) Inc(context.Context, ...Label)          {}
func (noopCounter) Add(context.Context, float64, ...Label) {}

type noopGauge struct{}

func (noopGauge) Set(context.Context, float64, ...Label) {}
func (noopGauge) Inc(context.Context, ...Label)          {}
func (noopGauge) Dec(context.Context, ...Label)          {}

type noopHistogram struct{}

func (noopHistogram) Record(context.Context, float64, ...Label) {}

// ============================================================================
// 辅助函数
// ============================================================================

func toAttributes(labels []Label) []attribute.KeyValue {
	if len(labels) == 0 {
		return nil
	}
	attrs := make([]attribute.KeyValue, len(labels))
	for i, l := range labels {
		attrs[i] = attribute.String(l.Key, l.Value)
	}
	return attrs
}

func labelKey(labels []Label) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = l.Key + "=" + l.Value
	}
	return strings.Join(parts, "|")
}
