package metrics

import (
	"strings"

	"github.com/ceyewan/shorturl/xerrors"
)

// Config 指标系统配置
//
//	metrics:
//	  enabled: true
//	  service_name: "idserver"
//	  version: "v1.0.0"
//	  port: 9090
//	  path: "/metrics"
type Config struct {
	// Enabled 为 false 时 New 返回 Discard()
	Enabled bool `mapstructure:"enabled"`

	// ServiceName 作为 OpenTelemetry Resource 的 service.name
	ServiceName string `mapstructure:"service_name"`

	// Version 作为 service.version
	Version string `mapstructure:"version"`

	// Port 大于 0 时启动独立的 Prometheus HTTP 服务
	Port int `mapstructure:"port"`

	// Path 抓取路径，必须以 "/" 开头
	Path string `mapstructure:"path"`

	// Runtime 为 true 时采集 Go 运行时指标（GC、goroutine、内存）
	Runtime bool `mapstructure:"runtime"`
}

// NewDevDefaultConfig 开发环境默认配置：启用采集，不启动独立端口
func NewDevDefaultConfig(serviceName string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Version:     "dev",
		Path:        "/metrics",
	}
}

// NewProdDefaultConfig 生产环境默认配置：在 9090 端口暴露 /metrics
func NewProdDefaultConfig(serviceName string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Version:     "v1.0.0",
		Port:        9090,
		Path:        "/metrics",
		Runtime:     true,
	}
}

func (c *Config) validate() error {
	if c.ServiceName == "" {
		c.ServiceName = "shorturl"
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
	if !strings.HasPrefix(c.Path, "/") {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "metrics: path %q must start with /", c.Path)
	}
	if c.Port < 0 || c.Port > 65535 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "metrics: invalid port %d", c.Port)
	}
	return nil
}
