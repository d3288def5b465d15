package trace

import "github.com/ceyewan/shorturl/xerrors"

const (
	BatcherBatch  = "batch"
	BatcherSimple = "simple"
)

// Config 链路追踪配置
//
//	trace:
//	  enabled: true
//	  service_name: "idserver"
//	  endpoint: "localhost:4317"
//	  sampler: 0.1
type Config struct {
	// Enabled 为 false 时只在进程内生成 TraceID，不导出
	Enabled bool `mapstructure:"enabled"`

	ServiceName string `mapstructure:"service_name"`

	// Endpoint OTLP gRPC 地址，如 Tempo/Jaeger 的 4317 端口
	Endpoint string `mapstructure:"endpoint"`

	// Sampler 采样率 [0, 1]
	Sampler float64 `mapstructure:"sampler"`

	// Batcher "batch" | "simple"，默认 "batch"
	Batcher string `mapstructure:"batcher"`

	Insecure bool `mapstructure:"insecure"`
}

// DefaultConfig 返回默认配置
func DefaultConfig(serviceName string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Endpoint:    "localhost:4317",
		Sampler:     1.0,
		Batcher:     BatcherBatch,
		Insecure:    true,
	}
}

func (c *Config) validate() error {
	if c.ServiceName == "" {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "trace: service_name is required")
	}
	if c.Endpoint == "" {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "trace: endpoint is required")
	}
	if c.Sampler < 0 || c.Sampler > 1 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "trace: sampler must be between 0 and 1, got %v", c.Sampler)
	}
	if c.Batcher == "" {
		c.Batcher = BatcherBatch
	}
	if c.Batcher != BatcherBatch && c.Batcher != BatcherSimple {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "trace: batcher must be %q or %q, got %q",
			BatcherBatch, BatcherSimple, c.Batcher)
	}
	return nil
}
