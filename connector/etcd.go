package connector

import (
	"context"
	"fmt"
	"sync/atomic"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/shorturl/clog"
	"github.com/ceyewan/shorturl/xerrors"
)

// healthCheckKey 读取一个不存在的 key 即可验证集群可达
const healthCheckKey = "/shorturl/health-check"

type etcdConnector struct {
	cfg     *EtcdConfig
	client  *clientv3.Client
	logger  clog.Logger
	metrics *connectorMetrics
	healthy atomic.Bool
	closed  atomic.Bool
}

// NewEtcd 创建 Etcd 连接器，客户端不阻塞拨号，Connect 时才验证可达
func NewEtcd(cfg *EtcdConfig, opts ...Option) (EtcdConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "etcd config is nil")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opt := applyOptions(opts)
	m, err := newConnectorMetrics(opt.meter, "etcd", cfg.Name)
	if err != nil {
		return nil, xerrors.Wrap(err, "create etcd connector metrics")
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:            cfg.Endpoints,
		Username:             cfg.Username,
		Password:             cfg.Password,
		DialTimeout:          cfg.DialTimeout,
		DialKeepAliveTime:    cfg.KeepAliveTime,
		DialKeepAliveTimeout: cfg.KeepAliveTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("etcd connector[%s]: %w: %w", cfg.Name, ErrConnection, err)
	}

	return &etcdConnector{
		cfg:     cfg,
		client:  client,
		logger:  opt.logger.With(clog.String("connector", "etcd"), clog.String("name", cfg.Name)),
		metrics: m,
	}, nil
}

// Connect 通过一次读请求验证连接
func (c *etcdConnector) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	_, err := c.client.Get(ctx, healthCheckKey)
	c.metrics.observeConnect(ctx, err)
	if err != nil {
		c.logger.Error("failed to connect to etcd", clog.Any("endpoints", c.cfg.Endpoints), clog.Error(err))
		return fmt.Errorf("etcd connector[%s]: %w: %w", c.cfg.Name, ErrConnection, err)
	}

	c.healthy.Store(true)
	c.metrics.setHealthy(ctx, true)
	c.logger.Info("connected to etcd", clog.Any("endpoints", c.cfg.Endpoints))
	return nil
}

// Close 关闭连接
func (c *etcdConnector) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.healthy.Store(false)
	c.metrics.setHealthy(context.Background(), false)

	if err := c.client.Close(); err != nil {
		c.logger.Error("failed to close etcd connection", clog.Error(err))
		return err
	}
	c.logger.Info("etcd connection closed")
	return nil
}

// HealthCheck 检查连接健康状态
func (c *etcdConnector) HealthCheck(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	if _, err := c.client.Get(ctx, healthCheckKey); err != nil {
		c.healthy.Store(false)
		c.metrics.setHealthy(ctx, false)
		c.logger.Warn("etcd health check failed", clog.Error(err))
		return fmt.Errorf("etcd connector[%s]: %w: %w", c.cfg.Name, ErrHealthCheck, err)
	}

	c.healthy.Store(true)
	c.metrics.setHealthy(ctx, true)
	return nil
}

func (c *etcdConnector) IsHealthy() bool {
	return c.healthy.Load()
}

func (c *etcdConnector) Name() string {
	return c.cfg.Name
}

func (c *etcdConnector) GetClient() *clientv3.Client {
	return c.client
}
