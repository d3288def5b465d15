package idserver

import (
	"github.com/ceyewan/shorturl/clog"
	"github.com/ceyewan/shorturl/connector"
	"github.com/ceyewan/shorturl/metrics"
	"github.com/ceyewan/shorturl/ratelimit"
)

// Option 组件初始化选项函数
type Option func(*options)

type options struct {
	logger    clog.Logger
	meter     metrics.Meter
	limiter   ratelimit.Limiter
	redisConn connector.RedisConnector
}

// WithLogger 设置 Logger
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMeter 设置 Meter，同时用于 RED 指标和 /metrics 抓取入口
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithLimiter 直接注入限流器，优先于 Config.RateLimit 的模式配置
func WithLimiter(l ratelimit.Limiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}

// WithRedisConnector 分布式限流使用的 Redis 连接器
func WithRedisConnector(conn connector.RedisConnector) Option {
	return func(o *options) {
		o.redisConn = conn
	}
}

func applyOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = clog.Discard()
	}
	if o.meter == nil {
		o.meter = metrics.Discard()
	}
	return o
}
