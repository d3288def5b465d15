package ratelimit

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/ceyewan/shorturl/clog"
	"github.com/ceyewan/shorturl/xerrors"
)

// BreakerConfig 分布式模式下保护 Redis 调用的熔断配置
//
// 熔断打开期间 AllowN 不再访问 Redis，直接返回 ErrCircuitOpen，GinMiddleware 据此放行。
type BreakerConfig struct {
	// Disabled 为 true 时不启用熔断
	Disabled bool `yaml:"disabled" json:"disabled" mapstructure:"disabled"`

	// MaxRequests 半开状态允许通过的探测请求数，默认 1
	MaxRequests uint32 `yaml:"max_requests" json:"max_requests" mapstructure:"max_requests"`

	// Interval 闭合状态清空统计的周期，默认 0（不清空）
	Interval time.Duration `yaml:"interval" json:"interval" mapstructure:"interval"`

	// Timeout 打开状态持续多久后进入半开，默认 10s
	Timeout time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`

	// FailureRatio 触发熔断的失败率，默认 0.6
	FailureRatio float64 `yaml:"failure_ratio" json:"failure_ratio" mapstructure:"failure_ratio"`

	// MinimumRequests 统计到这么多次请求后才可能触发熔断，默认 10
	MinimumRequests uint32 `yaml:"minimum_requests" json:"minimum_requests" mapstructure:"minimum_requests"`
}

func (c *BreakerConfig) setDefaults() {
	if c.MaxRequests == 0 {
		c.MaxRequests = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.FailureRatio == 0 {
		c.FailureRatio = 0.6
	}
	if c.MinimumRequests == 0 {
		c.MinimumRequests = 10
	}
}

func (c *BreakerConfig) validate() error {
	if c.FailureRatio < 0 || c.FailureRatio > 1 {
		return xerrors.WithCode(ErrInvalidConfig, "failure_ratio_out_of_range")
	}
	if c.Interval < 0 {
		return xerrors.WithCode(ErrInvalidConfig, "breaker_interval_negative")
	}
	return nil
}

// newBreaker Disabled 时返回 nil，调用方直接执行
func newBreaker(cfg *BreakerConfig, logger clog.Logger) *gobreaker.CircuitBreaker[[]int64] {
	if cfg.Disabled {
		return nil
	}
	return gobreaker.NewCircuitBreaker[[]int64](gobreaker.Settings{
		Name:        "ratelimit.redis",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinimumRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		// 调用方放弃的请求不算 Redis 故障
		IsSuccessful: func(err error) bool {
			return err == nil || xerrors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				clog.String("breaker", name),
				clog.String("from", from.String()),
				clog.String("to", to.String()))
		},
	})
}

// isBreakerRejection 熔断打开或半开探测名额已满
func isBreakerRejection(err error) bool {
	return xerrors.Is(err, gobreaker.ErrOpenState) || xerrors.Is(err, gobreaker.ErrTooManyRequests)
}
