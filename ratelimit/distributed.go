package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/ceyewan/shorturl/clog"
	"github.com/ceyewan/shorturl/connector"
	"github.com/ceyewan/shorturl/xerrors"
)

// 令牌桶的 GCRA 实现，只存一个"下一次可放行时间"
// KEYS[1]: 令牌桶键
// ARGV[1]: rate，每秒令牌数
// ARGV[2]: burst，桶容量
// ARGV[3]: now，秒（浮点）
// ARGV[4]: 本次消耗的令牌数
// 返回 {allowed, remaining}
var tokenBucketScript = redis.NewScript(`
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

local interval = 1 / rate
local fill_time = capacity * interval

local tat = tonumber(redis.call("GET", KEYS[1]))
if tat == nil then
  tat = now
end
tat = math.max(tat, now)

local new_tat = tat + requested * interval
local allow_at_most = now + fill_time

if new_tat <= allow_at_most then
  redis.call("SET", KEYS[1], new_tat, "EX", math.ceil(fill_time * 2))
  return {1, math.floor((allow_at_most - new_tat) / interval)}
end
return {0, math.floor((allow_at_most - tat) / interval)}
`)

// distributedLimiter 分布式限流器，连接由 Connector 管理
type distributedLimiter struct {
	client  *redis.Client
	prefix  string
	logger  clog.Logger
	metrics *limiterMetrics
	breaker *gobreaker.CircuitBreaker[[]int64]
}

func newDistributed(cfg *Config, conn connector.RedisConnector, logger clog.Logger, m *limiterMetrics) *distributedLimiter {
	logger.Info("distributed rate limiter created",
		clog.String("prefix", cfg.Prefix),
		clog.Bool("breaker", !cfg.Breaker.Disabled))
	return &distributedLimiter{
		client:  conn.GetClient(),
		prefix:  cfg.Prefix,
		logger:  logger,
		metrics: m,
		breaker: newBreaker(&cfg.Breaker, logger),
	}
}

// Allow 尝试获取 1 个令牌
func (l *distributedLimiter) Allow(ctx context.Context, key string, limit Limit) (bool, error) {
	return l.AllowN(ctx, key, limit, 1)
}

// AllowN 尝试获取 N 个令牌
//
// 熔断打开时不访问 Redis，返回 ErrCircuitOpen。
func (l *distributedLimiter) AllowN(ctx context.Context, key string, limit Limit, n int) (bool, error) {
	if key == "" {
		return false, ErrKeyEmpty
	}
	if !limit.valid() || n <= 0 {
		return false, ErrInvalidLimit
	}

	run := func() ([]int64, error) {
		now := float64(time.Now().UnixNano()) / 1e9
		vals, err := tokenBucketScript.Run(ctx, l.client, []string{l.prefix + key},
			limit.Rate, limit.Burst, now, n).Int64Slice()
		if err == nil && len(vals) != 2 {
			err = fmt.Errorf("unexpected script result length %d", len(vals))
		}
		return vals, err
	}

	var (
		vals []int64
		err  error
	)
	if l.breaker == nil {
		vals, err = run()
	} else {
		vals, err = l.breaker.Execute(run)
	}
	if err != nil {
		if isBreakerRejection(err) {
			err = fmt.Errorf("%w: %w", ErrCircuitOpen, err)
			l.metrics.observe(ctx, false, err)
			l.logger.Debug("redis call skipped by circuit breaker", clog.String("key", key))
			return false, err
		}
		l.metrics.observe(ctx, false, err)
		l.logger.Error("token bucket script failed", clog.String("key", key), clog.Error(err))
		return false, xerrors.Wrap(err, "ratelimit: execute token bucket script")
	}

	allowed := vals[0] == 1
	l.metrics.observe(ctx, allowed, nil)
	if !allowed {
		l.logger.Debug("rate limited",
			clog.String("key", key),
			clog.Int64("remaining", vals[1]),
			clog.Float64("rate", limit.Rate),
			clog.Int("burst", limit.Burst))
	}
	return allowed, nil
}

// Close 无操作，Redis 连接归 Connector 所有
func (l *distributedLimiter) Close() error {
	return nil
}
