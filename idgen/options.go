package idgen

import (
	"github.com/ceyewan/shorturl/clog"
	"github.com/ceyewan/shorturl/connector"
	"github.com/ceyewan/shorturl/metrics"
)

// Option 组件初始化选项函数
type Option func(*Options)

// Options 组件初始化选项配置
type Options struct {
	Logger    clog.Logger
	Meter     metrics.Meter
	Clock     Clock
	Allocator Allocator

	// 仅 NewAllocator 使用
	RedisConnector connector.RedisConnector
	EtcdConnector  connector.EtcdConnector
}

// WithLogger 设置 Logger
func WithLogger(logger clog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithMeter 设置 Meter
func WithMeter(meter metrics.Meter) Option {
	return func(o *Options) {
		o.Meter = meter
	}
}

// WithClock 替换系统时钟，测试中用于模拟回拨
func WithClock(clock Clock) Option {
	return func(o *Options) {
		o.Clock = clock
	}
}

// WithAllocator 由分配器决定 worker_id，仅对 New 生效
func WithAllocator(a Allocator) Option {
	return func(o *Options) {
		o.Allocator = a
	}
}

// WithRedisConnector 设置 redis 分配器使用的连接器
func WithRedisConnector(conn connector.RedisConnector) Option {
	return func(o *Options) {
		o.RedisConnector = conn
	}
}

// WithEtcdConnector 设置 etcd 分配器使用的连接器
func WithEtcdConnector(conn connector.EtcdConnector) Option {
	return func(o *Options) {
		o.EtcdConnector = conn
	}
}

func applyOptions(opts []Option) Options {
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = clog.Discard()
	}
	o.Logger = o.Logger.With(clog.String("component", "idgen"))
	if o.Meter == nil {
		o.Meter = metrics.Discard()
	}
	if o.Clock == nil {
		o.Clock = SystemClock()
	}
	return o
}
