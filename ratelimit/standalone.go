package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ceyewan/shorturl/clog"
)

// bucket 包装 rate.Limiter 并记录最后访问时间
type bucket struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

// standaloneLimiter 单机限流器，每个 (key, limit) 组合一个令牌桶
type standaloneLimiter struct {
	logger  clog.Logger
	metrics *limiterMetrics
	buckets sync.Map // map[string]*bucket

	idleTimeout time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

func newStandalone(cfg *Config, logger clog.Logger, m *limiterMetrics) *standaloneLimiter {
	l := &standaloneLimiter{
		logger:      logger,
		metrics:     m,
		idleTimeout: cfg.IdleTimeout,
		stopCh:      make(chan struct{}),
	}
	go l.cleanup(cfg.CleanupInterval)

	logger.Info("standalone rate limiter created",
		clog.Duration("cleanup_interval", cfg.CleanupInterval),
		clog.Duration("idle_timeout", cfg.IdleTimeout))
	return l
}

// Allow 尝试获取 1 个令牌
func (l *standaloneLimiter) Allow(ctx context.Context, key string, limit Limit) (bool, error) {
	return l.AllowN(ctx, key, limit, 1)
}

// AllowN 尝试获取 N 个令牌
func (l *standaloneLimiter) AllowN(ctx context.Context, key string, limit Limit, n int) (bool, error) {
	if key == "" {
		return false, ErrKeyEmpty
	}
	if !limit.valid() || n <= 0 {
		return false, ErrInvalidLimit
	}

	b := l.bucket(key, limit)
	now := time.Now()
	b.mu.Lock()
	allowed := b.limiter.AllowN(now, n)
	b.lastSeen = now
	b.mu.Unlock()

	l.metrics.observe(ctx, allowed, nil)
	if !allowed {
		l.logger.Debug("rate limited",
			clog.String("key", key),
			clog.Float64("rate", limit.Rate),
			clog.Int("burst", limit.Burst),
			clog.Int("requested", n))
	}
	return allowed, nil
}

// bucket 获取或创建令牌桶，规则变化时视为新的桶
func (l *standaloneLimiter) bucket(key string, limit Limit) *bucket {
	cacheKey := fmt.Sprintf("%s:%v:%d", key, limit.Rate, limit.Burst)
	if v, ok := l.buckets.Load(cacheKey); ok {
		return v.(*bucket)
	}
	b := &bucket{
		limiter:  rate.NewLimiter(rate.Limit(limit.Rate), limit.Burst),
		lastSeen: time.Now(),
	}
	actual, _ := l.buckets.LoadOrStore(cacheKey, b)
	return actual.(*bucket)
}

// cleanup 定期清理空闲的令牌桶
func (l *standaloneLimiter) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.evictIdle(time.Now())
		case <-l.stopCh:
			return
		}
	}
}

func (l *standaloneLimiter) evictIdle(now time.Time) int {
	count := 0
	l.buckets.Range(func(key, value any) bool {
		b := value.(*bucket)
		b.mu.Lock()
		idle := now.Sub(b.lastSeen)
		b.mu.Unlock()

		if idle > l.idleTimeout {
			l.buckets.Delete(key)
			count++
		}
		return true
	})
	if count > 0 {
		l.logger.Debug("cleaned up idle buckets", clog.Int("count", count))
	}
	return count
}

// Close 停止清理 goroutine
func (l *standaloneLimiter) Close() error {
	l.stopOnce.Do(func() { close(l.stopCh) })
	return nil
}
