package metrics

import (
	"cmp"
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/ceyewan/shorturl/xerrors"
)

const (
	MetricHTTPServerRequestTotal    = "http_server_requests_total"
	MetricHTTPServerDurationSeconds = "http_server_request_duration_seconds"
	MetricHTTPServerInFlight        = "http_server_requests_in_flight"
)

// 发号接口通常在亚毫秒级返回，低端桶更密
var defaultHTTPDurationBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 3}

// HTTPServerMetricsConfig HTTP 服务 RED 指标配置，名称为空时使用默认值
type HTTPServerMetricsConfig struct {
	Service             string
	RequestTotalName    string
	RequestDurationName string
	InFlightName        string
	DurationBuckets     []float64
	StaticLabels        []Label
}

// DefaultHTTPServerMetricsConfig 返回默认配置
func DefaultHTTPServerMetricsConfig(service string) *HTTPServerMetricsConfig {
	return &HTTPServerMetricsConfig{
		Service:             service,
		RequestTotalName:    MetricHTTPServerRequestTotal,
		RequestDurationName: MetricHTTPServerDurationSeconds,
		InFlightName:        MetricHTTPServerInFlight,
		DurationBuckets:     defaultHTTPDurationBuckets,
	}
}

// HTTPServerMetrics 请求总数、耗时分布和在途请求数
type HTTPServerMetrics struct {
	service      string
	requestTotal Counter
	duration     Histogram
	inFlight     Gauge
	staticLabels []Label
}

// NewHTTPServerMetrics 在 m 上注册 HTTP 服务指标
func NewHTTPServerMetrics(m Meter, cfg *HTTPServerMetricsConfig) (*HTTPServerMetrics, error) {
	if m == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "metrics: meter is nil")
	}
	if cfg == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "metrics: http metrics config is nil")
	}

	counter, err := m.Counter(
		cmp.Or(strings.TrimSpace(cfg.RequestTotalName), MetricHTTPServerRequestTotal),
		"Total number of HTTP requests.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create http request counter")
	}

	histogramOpts := []MetricOption{WithUnit("s")}
	if len(cfg.DurationBuckets) > 0 {
		histogramOpts = append(histogramOpts, WithBuckets(cfg.DurationBuckets))
	}
	duration, err := m.Histogram(
		cmp.Or(strings.TrimSpace(cfg.RequestDurationName), MetricHTTPServerDurationSeconds),
		"HTTP request duration in seconds.", histogramOpts...)
	if err != nil {
		return nil, xerrors.Wrap(err, "create http request duration histogram")
	}

	inFlight, err := m.Gauge(
		cmp.Or(strings.TrimSpace(cfg.InFlightName), MetricHTTPServerInFlight),
		"Number of HTTP requests being served.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create http in-flight gauge")
	}

	return &HTTPServerMetrics{
		service:      cmp.Or(strings.TrimSpace(cfg.Service), "unknown"),
		requestTotal: counter,
		duration:     duration,
		inFlight:     inFlight,
		staticLabels: slices.Clone(cfg.StaticLabels),
	}, nil
}

// Begin 在途请求数加一，返回的函数负责减一
func (m *HTTPServerMetrics) Begin(ctx context.Context) (done func()) {
	if m == nil || m.inFlight == nil {
		return func() {}
	}
	labels := append(slices.Clone(m.staticLabels), L(LabelService, m.service))
	m.inFlight.Inc(ctx, labels...)
	return func() { m.inFlight.Dec(ctx, labels...) }
}

// Observe 记录一次请求，method 统一转大写，route 为空时记为 UnknownRoute
func (m *HTTPServerMetrics) Observe(ctx context.Context, method string, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	labels := make([]Label, 0, len(m.staticLabels)+6)
	labels = append(labels, m.staticLabels...)
	labels = append(labels,
		L(LabelService, m.service),
		L(LabelOperation, OperationHTTPServer),
		L(LabelMethod, cmp.Or(strings.ToUpper(strings.TrimSpace(method)), http.MethodGet)),
		L(LabelRoute, cmp.Or(strings.TrimSpace(route), UnknownRoute)),
		L(LabelStatusClass, HTTPStatusClass(status)),
		L(LabelOutcome, HTTPOutcome(status)),
	)

	m.requestTotal.Inc(ctx, labels...)
	m.duration.Record(ctx, duration.Seconds(), labels...)
}
