package connector

import (
	"context"

	"github.com/ceyewan/shorturl/metrics"
)

const (
	metricConnectTotal = "connector_connect_total"
	metricHealthy      = "connector_healthy"
)

// connectorMetrics 记录连接尝试次数和健康状态
type connectorMetrics struct {
	kind    string
	name    string
	connect metrics.Counter
	healthy metrics.Gauge
}

func newConnectorMetrics(meter metrics.Meter, kind, name string) (*connectorMetrics, error) {
	connect, err := meter.Counter(metricConnectTotal, "Total number of connector connect attempts.")
	if err != nil {
		return nil, err
	}
	healthy, err := meter.Gauge(metricHealthy, "1 when the last health check succeeded.")
	if err != nil {
		return nil, err
	}
	return &connectorMetrics{kind: kind, name: name, connect: connect, healthy: healthy}, nil
}

func (m *connectorMetrics) observeConnect(ctx context.Context, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	m.connect.Inc(ctx, metrics.L("connector", m.kind), metrics.L("name", m.name), metrics.L(metrics.LabelOutcome, outcome))
}

func (m *connectorMetrics) setHealthy(ctx context.Context, ok bool) {
	val := 0.0
	if ok {
		val = 1
	}
	m.healthy.Set(ctx, val, metrics.L("connector", m.kind), metrics.L("name", m.name))
}
