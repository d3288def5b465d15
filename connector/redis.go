package connector

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"

	"github.com/ceyewan/shorturl/clog"
	"github.com/ceyewan/shorturl/xerrors"
)

type redisConnector struct {
	cfg     *RedisConfig
	client  *redis.Client
	logger  clog.Logger
	metrics *connectorMetrics
	healthy atomic.Bool
	closed  atomic.Bool
}

// NewRedis 创建 Redis 连接器，不立即建立连接
func NewRedis(cfg *RedisConfig, opts ...Option) (RedisConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "redis config is nil")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opt := applyOptions(opts)
	m, err := newConnectorMetrics(opt.meter, "redis", cfg.Name)
	if err != nil {
		return nil, xerrors.Wrap(err, "create redis connector metrics")
	}

	c := &redisConnector{
		cfg:     cfg,
		logger:  opt.logger.With(clog.String("connector", "redis"), clog.String("name", cfg.Name)),
		metrics: m,
	}

	c.client = redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	})

	if cfg.EnableTracing {
		if err := redisotel.InstrumentTracing(c.client); err != nil {
			_ = c.client.Close()
			return nil, xerrors.Wrap(err, "instrument redis tracing")
		}
	}

	return c, nil
}

// Connect 通过 PING 验证连接
func (c *redisConnector) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	err := c.client.Ping(ctx).Err()
	c.metrics.observeConnect(ctx, err)
	if err != nil {
		c.logger.Error("failed to connect to redis", clog.String("addr", c.cfg.Addr), clog.Error(err))
		return fmt.Errorf("redis connector[%s]: %w: %w", c.cfg.Name, ErrConnection, err)
	}

	c.healthy.Store(true)
	c.metrics.setHealthy(ctx, true)
	c.logger.Info("connected to redis", clog.String("addr", c.cfg.Addr))
	return nil
}

// Close 关闭连接
func (c *redisConnector) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.healthy.Store(false)
	c.metrics.setHealthy(context.Background(), false)

	if err := c.client.Close(); err != nil {
		c.logger.Error("failed to close redis connection", clog.Error(err))
		return err
	}
	c.logger.Info("redis connection closed")
	return nil
}

// HealthCheck 检查连接健康状态
func (c *redisConnector) HealthCheck(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		c.healthy.Store(false)
		c.metrics.setHealthy(ctx, false)
		c.logger.Warn("redis health check failed", clog.Error(err))
		return fmt.Errorf("redis connector[%s]: %w: %w", c.cfg.Name, ErrHealthCheck, err)
	}

	c.healthy.Store(true)
	c.metrics.setHealthy(ctx, true)
	return nil
}

func (c *redisConnector) IsHealthy() bool {
	return c.healthy.Load()
}

func (c *redisConnector) Name() string {
	return c.cfg.Name
}

func (c *redisConnector) GetClient() *redis.Client {
	return c.client
}
