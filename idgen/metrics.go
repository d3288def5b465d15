package idgen

import (
	"context"
	"time"

	"github.com/ceyewan/shorturl/metrics"
)

// Metrics 指标常量定义
const (
	// MetricIDsGenerated 已生成的 ID 总数 (Counter)，标签 mode
	MetricIDsGenerated = "idgen_ids_generated_total"

	// MetricErrors 发号失败次数 (Counter)，标签 mode、reason
	MetricErrors = "idgen_errors_total"

	// MetricWaitSeconds 分片模式从入队到拿到结果的耗时 (Histogram)
	MetricWaitSeconds = "idgen_wait_seconds"

	// MetricSequenceExhausted 序列号在一毫秒内用尽、忙等下一毫秒的次数 (Counter)
	MetricSequenceExhausted = "idgen_sequence_exhausted_total"
)

var waitBuckets = []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.1, 1, 3}

type generatorMetrics struct {
	mode      metrics.Label
	generated metrics.Counter
	errors    metrics.Counter
	exhausted metrics.Counter
	wait      metrics.Histogram
}

func newGeneratorMetrics(meter metrics.Meter, mode string) (*generatorMetrics, error) {
	m := &generatorMetrics{mode: metrics.L("mode", mode)}
	var err error
	if m.generated, err = meter.Counter(MetricIDsGenerated, "已生成的 ID 总数"); err != nil {
		return nil, err
	}
	if m.errors, err = meter.Counter(MetricErrors, "发号失败次数"); err != nil {
		return nil, err
	}
	if m.exhausted, err = meter.Counter(MetricSequenceExhausted, "序列号用尽后等待下一毫秒的次数"); err != nil {
		return nil, err
	}
	if m.wait, err = meter.Histogram(MetricWaitSeconds, "分片模式的等待耗时",
		metrics.WithUnit("s"), metrics.WithBuckets(waitBuckets)); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *generatorMetrics) observe(ctx context.Context, waited bool, err error) {
	if waited {
		m.exhausted.Inc(ctx, m.mode)
	}
	if err != nil {
		m.errors.Inc(ctx, m.mode, metrics.L("reason", errorReason(err)))
		return
	}
	m.generated.Inc(ctx, m.mode)
}

func (m *generatorMetrics) observeWait(ctx context.Context, d time.Duration) {
	m.wait.Record(ctx, d.Seconds(), m.mode)
}
