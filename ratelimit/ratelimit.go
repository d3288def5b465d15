// Package ratelimit 为 idserver 提供令牌桶限流，支持单机和分布式两种模式。
//
//   - standalone：基于 golang.org/x/time/rate，每个 key 一个内存令牌桶，空闲桶定期清理
//   - distributed：基于 Redis + Lua，多个 idserver 实例共享同一个令牌桶
//
// 基本使用：
//
//	limiter, _ := ratelimit.New(&ratelimit.Config{Mode: "standalone"}, ratelimit.WithLogger(logger))
//	defer limiter.Close()
//
//	allowed, _ := limiter.Allow(ctx, "ip:10.0.0.1", ratelimit.Limit{Rate: 100, Burst: 200})
//
// Gin 中间件：
//
//	r.Use(ratelimit.GinMiddleware(limiter, nil, ratelimit.Limit{Rate: 100, Burst: 200}))
package ratelimit

import (
	"context"
	"time"

	"github.com/ceyewan/shorturl/clog"
	"github.com/ceyewan/shorturl/xerrors"
)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Limit 定义限流规则（令牌桶算法）
type Limit struct {
	Rate  float64 // 令牌生成速率（每秒生成多少个令牌）
	Burst int     // 令牌桶容量（突发最大请求数）
}

func (l Limit) valid() bool {
	return l.Rate > 0 && l.Burst > 0
}

// Limiter 限流器核心接口
type Limiter interface {
	// Allow 尝试获取 1 个令牌（非阻塞），被限流时返回 false 和 nil 错误
	Allow(ctx context.Context, key string, limit Limit) (bool, error)

	// AllowN 尝试获取 N 个令牌（非阻塞）
	AllowN(ctx context.Context, key string, limit Limit, n int) (bool, error)

	// Close 释放资源，可重复调用
	Close() error
}

// ========================================
// 配置定义 (Configuration)
// ========================================

const (
	ModeStandalone  = "standalone"
	ModeDistributed = "distributed"
)

// Config 限流配置
type Config struct {
	// Mode 限流模式: "standalone" | "distributed"，默认 "standalone"
	Mode string `yaml:"mode" json:"mode" mapstructure:"mode"`

	// Rate 每秒令牌数，为 0 时不限流
	Rate float64 `yaml:"rate" json:"rate" mapstructure:"rate"`

	// Burst 令牌桶容量，默认等于 Rate 向上取整
	Burst int `yaml:"burst" json:"burst" mapstructure:"burst"`

	// Prefix 分布式模式的 Redis Key 前缀，默认 "shorturl:ratelimit:"
	Prefix string `yaml:"prefix" json:"prefix" mapstructure:"prefix"`

	// CleanupInterval 单机模式清理空闲令牌桶的间隔，默认 1 分钟
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval" mapstructure:"cleanup_interval"`

	// IdleTimeout 单机模式令牌桶空闲超时，默认 5 分钟
	IdleTimeout time.Duration `yaml:"idle_timeout" json:"idle_timeout" mapstructure:"idle_timeout"`

	// Breaker 分布式模式的 Redis 熔断，默认启用
	Breaker BreakerConfig `yaml:"breaker" json:"breaker" mapstructure:"breaker"`
}

func (c *Config) setDefaults() {
	if c.Mode == "" {
		c.Mode = ModeStandalone
	}
	if c.Burst == 0 && c.Rate > 0 {
		c.Burst = int(c.Rate)
		if float64(c.Burst) < c.Rate {
			c.Burst++
		}
	}
	if c.Prefix == "" {
		c.Prefix = "shorturl:ratelimit:"
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = time.Minute
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	c.Breaker.setDefaults()
}

func (c *Config) validate() error {
	if c.Mode != ModeStandalone && c.Mode != ModeDistributed {
		return xerrors.WithCode(ErrInvalidConfig, "unsupported_mode")
	}
	if c.Rate < 0 || c.Burst < 0 {
		return xerrors.WithCode(ErrInvalidLimit, "negative_limit")
	}
	return c.Breaker.validate()
}

// Limit 返回配置中的默认限流规则
func (c *Config) Limit() Limit {
	return Limit{Rate: c.Rate, Burst: c.Burst}
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 按 cfg.Mode 创建限流器，cfg 为 nil 时使用单机模式
//
// 分布式模式需要通过 WithRedisConnector 注入连接器。cfg 会被补齐默认值。
func New(cfg *Config, opts ...Option) (Limiter, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opt := applyOptions(opts)
	logger := opt.logger.With(clog.String("component", "ratelimit"), clog.String("mode", cfg.Mode))
	m, err := newLimiterMetrics(opt.meter, cfg.Mode)
	if err != nil {
		return nil, xerrors.Wrap(err, "ratelimit: create metrics")
	}

	switch cfg.Mode {
	case ModeDistributed:
		if opt.redisConn == nil {
			return nil, xerrors.WithCode(ErrConnectorNil, "redis_connector_required")
		}
		return newDistributed(cfg, opt.redisConn, logger, m), nil
	default:
		return newStandalone(cfg, logger, m), nil
	}
}
