package ratelimit

import (
	"context"

	"github.com/ceyewan/shorturl/metrics"
	"github.com/ceyewan/shorturl/xerrors"
)

// Metrics 指标常量定义
const (
	// MetricRequests 限流检查次数 (Counter)，标签 mode、result
	MetricRequests = "ratelimit_requests_total"

	// MetricErrors 限流器内部错误次数 (Counter)，标签 mode、reason
	MetricErrors = "ratelimit_errors_total"
)

type limiterMetrics struct {
	mode     metrics.Label
	requests metrics.Counter
	errors   metrics.Counter
}

func newLimiterMetrics(meter metrics.Meter, mode string) (*limiterMetrics, error) {
	if meter == nil {
		meter = metrics.Discard()
	}
	m := &limiterMetrics{mode: metrics.L("mode", mode)}
	var err error
	if m.requests, err = meter.Counter(MetricRequests, "限流检查次数"); err != nil {
		return nil, err
	}
	if m.errors, err = meter.Counter(MetricErrors, "限流器内部错误次数"); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *limiterMetrics) observe(ctx context.Context, allowed bool, err error) {
	switch {
	case err != nil:
		m.errors.Inc(ctx, m.mode, metrics.L("reason", errorReason(err)))
	case allowed:
		m.requests.Inc(ctx, m.mode, metrics.L("result", "allowed"))
	default:
		m.requests.Inc(ctx, m.mode, metrics.L("result", "denied"))
	}
}

func errorReason(err error) string {
	if xerrors.Is(err, ErrCircuitOpen) {
		return "circuit_open"
	}
	return "backend"
}
