package idserver

import (
	"time"

	"github.com/ceyewan/shorturl/ratelimit"
	"github.com/ceyewan/shorturl/xerrors"
)

// MaxBatch 单次请求允许的最大 count
const MaxBatch = 1000

// Config HTTP 服务配置
type Config struct {
	// Addr 监听地址，默认 ":8080"
	Addr string `yaml:"addr" json:"addr" mapstructure:"addr"`

	// ReadHeaderTimeout 读取请求头超时，默认 5s
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" json:"read_header_timeout" mapstructure:"read_header_timeout"`

	// ShutdownTimeout 优雅关闭的最长等待，默认 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" mapstructure:"shutdown_timeout"`

	// MetricsPath 挂载 Prometheus 抓取入口的路径，默认 "/metrics"，"-" 表示不挂载
	MetricsPath string `yaml:"metrics_path" json:"metrics_path" mapstructure:"metrics_path"`

	// Tracing 为 true 时为每个请求创建 Span，需先调用 trace.Init
	Tracing bool `yaml:"tracing" json:"tracing" mapstructure:"tracing"`

	// RateLimit 按客户端 IP 限流，Rate 为 0 时不限流
	RateLimit ratelimit.Config `yaml:"rate_limit" json:"rate_limit" mapstructure:"rate_limit"`
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = 5 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.MetricsPath == "" {
		c.MetricsPath = "/metrics"
	}
}

func (c *Config) validate() error {
	if c.MetricsPath != "-" && c.MetricsPath[0] != '/' {
		return xerrors.WithCode(ErrInvalidConfig, "metrics_path_must_be_absolute")
	}
	if c.RateLimit.Rate < 0 {
		return xerrors.WithCode(ErrInvalidConfig, "rate_limit_negative")
	}
	return nil
}
