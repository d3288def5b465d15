package idgen

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/ceyewan/shorturl/clog"
	"github.com/ceyewan/shorturl/connector"
	"github.com/ceyewan/shorturl/xerrors"

	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// ========================================
// Allocator 接口 (WorkerID Allocation)
// ========================================

// Allocator WorkerID 分配器接口
// 用于在集群环境中自动分配唯一的 WorkerID，避免手动配置冲突
type Allocator interface {
	// Allocate 分配 WorkerID
	Allocate(ctx context.Context) (int64, error)

	// KeepAlive 在后台续约，续约失败或租约丢失时向返回的通道发送一次错误
	KeepAlive(ctx context.Context) <-chan error

	// Stop 停止续约并释放 WorkerID，可重复调用
	Stop()
}

// ========================================
// 统一工厂函数
// ========================================

// NewAllocator 创建 WorkerID 分配器，根据 cfg.Driver 选择实现
//
// 使用示例:
//
//	allocator, _ := idgen.NewAllocator(&idgen.AllocatorConfig{
//	    Driver: "redis",
//	    MaxID:  32,
//	}, idgen.WithRedisConnector(redisConn))
//
//	gen, _ := idgen.New(cfg, idgen.WithAllocator(allocator))
//	defer gen.Close()
func NewAllocator(cfg *AllocatorConfig, opts ...Option) (Allocator, error) {
	if cfg == nil {
		return nil, xerrors.WithCode(ErrInvalidInput, "config_nil")
	}

	c := *cfg
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	opt := applyOptions(opts)
	logger := opt.Logger.With(clog.String("driver", c.Driver))

	switch c.Driver {
	case DriverRedis:
		if opt.RedisConnector == nil {
			return nil, xerrors.WithCode(ErrConnectorNil, "redis_connector_required")
		}
		return newRedisAllocator(&c, opt.RedisConnector, logger), nil

	case DriverEtcd:
		if opt.EtcdConnector == nil {
			return nil, xerrors.WithCode(ErrConnectorNil, "etcd_connector_required")
		}
		return newEtcdAllocator(&c, opt.EtcdConnector, logger), nil

	default:
		return &staticAllocator{id: c.StaticID}, nil
	}
}

// leaseOwner 标识当前进程，写入租约 key 的值中，用于续约和释放时校验归属
func leaseOwner() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s:%d:%d", host, os.Getpid(), time.Now().UnixNano())
}

// ========================================
// Static 实现
// ========================================

// staticAllocator 返回固定 WorkerID，不续约
type staticAllocator struct {
	id int64
}

func (a *staticAllocator) Allocate(ctx context.Context) (int64, error) {
	return a.id, nil
}

func (a *staticAllocator) KeepAlive(ctx context.Context) <-chan error {
	return make(chan error)
}

func (a *staticAllocator) Stop() {}

// ========================================
// Redis 实现
// ========================================

// 从 offset 开始环形遍历 [0, max_id)，第一个 SET NX 成功的编号即为分配结果
var allocateScript = redis.NewScript(`
local prefix = KEYS[1]
local value = ARGV[1]
local ttl = tonumber(ARGV[2])
local max_id = tonumber(ARGV[3])
local offset = tonumber(ARGV[4])

for i = 0, max_id - 1 do
	local id = (offset + i) % max_id
	local key = prefix .. ":" .. id
	if redis.call("SET", key, value, "NX", "EX", ttl) then
		return id
	end
end
return -1
`)

// 仅当 key 仍归当前进程所有时续期
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("EXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// 仅当 key 仍归当前进程所有时删除
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// redisAllocator Redis 实现的 WorkerID 分配器
type redisAllocator struct {
	redis  connector.RedisConnector
	cfg    *AllocatorConfig
	logger clog.Logger
	owner  string

	mu       sync.Mutex
	workerID int64
	redisKey string

	stopCh   chan struct{}
	stopOnce sync.Once
}

func newRedisAllocator(cfg *AllocatorConfig, conn connector.RedisConnector, logger clog.Logger) *redisAllocator {
	return &redisAllocator{
		redis:  conn,
		cfg:    cfg,
		logger: logger,
		owner:  leaseOwner(),
		stopCh: make(chan struct{}),
	}
}

// Allocate 分配 WorkerID（使用随机起点遍历减少并发冲突）
func (a *redisAllocator) Allocate(ctx context.Context) (int64, error) {
	client := a.redis.GetClient()
	offset := rand.IntN(a.cfg.MaxID)

	id, err := allocateScript.Run(ctx, client, []string{a.cfg.KeyPrefix},
		a.owner, a.cfg.TTL, a.cfg.MaxID, offset).Int64()
	if err != nil {
		a.logger.Error("redis allocate script failed",
			clog.Error(err),
			clog.String("key_prefix", a.cfg.KeyPrefix),
		)
		return 0, xerrors.Wrap(err, "redis_eval_failed")
	}
	if id < 0 {
		return 0, xerrors.WithCode(ErrWorkerIDExhausted, "no_available_worker_id")
	}

	a.mu.Lock()
	a.workerID = id
	a.redisKey = fmt.Sprintf("%s:%d", a.cfg.KeyPrefix, id)
	a.mu.Unlock()

	a.logger.Info("worker id allocated",
		clog.Int64("worker_id", id),
		clog.String("key", a.redisKey),
	)
	return id, nil
}

// renewInterval 取 TTL 的三分之一，最短 100ms
func renewInterval(ttlSeconds int) time.Duration {
	d := time.Duration(ttlSeconds) * time.Second / 3
	if d < 100*time.Millisecond {
		d = 100 * time.Millisecond
	}
	return d
}

// KeepAlive 周期性续期，key 被删除或被他人占用时报告 ErrLeaseExpired
func (a *redisAllocator) KeepAlive(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)

	a.mu.Lock()
	key := a.redisKey
	a.mu.Unlock()

	go func() {
		ticker := time.NewTicker(renewInterval(a.cfg.TTL))
		defer ticker.Stop()
		client := a.redis.GetClient()

		for {
			select {
			case <-a.stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				ok, err := renewScript.Run(ctx, client, []string{key}, a.owner, a.cfg.TTL).Int64()
				if err != nil && ctx.Err() != nil {
					return
				}
				if err != nil {
					a.logger.Error("keep alive failed", clog.Error(err), clog.String("key", key))
					errCh <- xerrors.Wrap(err, "keep_alive_failed")
					return
				}
				if ok == 0 {
					a.logger.Error("lease expired", clog.String("key", key))
					errCh <- xerrors.WithCode(ErrLeaseExpired, "lease_expired")
					return
				}
			}
		}
	}()

	return errCh
}

// Stop 停止保活并释放 WorkerID
func (a *redisAllocator) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopCh)

		a.mu.Lock()
		key, id := a.redisKey, a.workerID
		a.mu.Unlock()
		if key == "" {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, a.redis.GetClient(), []string{key}, a.owner).Err(); err != nil {
			a.logger.Warn("release worker id failed", clog.Error(err), clog.String("key", key))
			return
		}
		a.logger.Info("worker id released", clog.Int64("worker_id", id), clog.String("key", key))
	})
}

// ========================================
// Etcd 实现
// ========================================

// etcdAllocator Etcd 实现的 WorkerID 分配器，key 绑定在 lease 上，lease 过期 key 自动删除
type etcdAllocator struct {
	client *clientv3.Client
	cfg    *AllocatorConfig
	logger clog.Logger
	owner  string

	mu       sync.Mutex
	leaseID  clientv3.LeaseID
	workerID int64
	etcdKey  string

	stopCh   chan struct{}
	stopOnce sync.Once
}

func newEtcdAllocator(cfg *AllocatorConfig, conn connector.EtcdConnector, logger clog.Logger) *etcdAllocator {
	return &etcdAllocator{
		client: conn.GetClient(),
		cfg:    cfg,
		logger: logger,
		owner:  leaseOwner(),
		stopCh: make(chan struct{}),
	}
}

// Allocate 分配 WorkerID（使用随机起点遍历减少并发冲突）
func (a *etcdAllocator) Allocate(ctx context.Context) (int64, error) {
	lease, err := a.client.Grant(ctx, int64(a.cfg.TTL))
	if err != nil {
		a.logger.Error("etcd grant lease failed", clog.Error(err))
		return 0, xerrors.Wrap(err, "etcd_grant_failed")
	}

	offset := rand.IntN(a.cfg.MaxID)
	for i := 0; i < a.cfg.MaxID; i++ {
		id := (offset + i) % a.cfg.MaxID
		key := fmt.Sprintf("%s:%d", a.cfg.KeyPrefix, id)

		// CAS：key 不存在（ModRevision == 0）时才写入
		resp, err := a.client.Txn(ctx).
			If(clientv3.Compare(clientv3.ModRevision(key), "=", 0)).
			Then(clientv3.OpPut(key, a.owner, clientv3.WithLease(lease.ID))).
			Commit()
		if err != nil {
			a.revoke(lease.ID)
			a.logger.Error("etcd txn failed", clog.Error(err), clog.String("key", key))
			return 0, xerrors.Wrap(err, "etcd_txn_failed")
		}
		if !resp.Succeeded {
			continue
		}

		a.mu.Lock()
		a.leaseID = lease.ID
		a.workerID = int64(id)
		a.etcdKey = key
		a.mu.Unlock()

		a.logger.Info("worker id allocated",
			clog.Int64("worker_id", int64(id)),
			clog.String("key", key),
			clog.Int64("lease_id", int64(lease.ID)),
		)
		return int64(id), nil
	}

	a.revoke(lease.ID)
	return 0, xerrors.WithCode(ErrWorkerIDExhausted, "no_available_worker_id")
}

func (a *etcdAllocator) revoke(id clientv3.LeaseID) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := a.client.Revoke(ctx, id); err != nil {
		a.logger.Warn("etcd revoke lease failed", clog.Error(err), clog.Int64("lease_id", int64(id)))
	}
}

// KeepAlive 保持租约，keepalive 通道关闭表示租约已失效
func (a *etcdAllocator) KeepAlive(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)

	a.mu.Lock()
	leaseID := a.leaseID
	a.mu.Unlock()

	go func() {
		kaCh, err := a.client.KeepAlive(ctx, leaseID)
		if err != nil {
			a.logger.Error("etcd keep alive failed", clog.Error(err), clog.Int64("lease_id", int64(leaseID)))
			errCh <- xerrors.Wrap(err, "keep_alive_failed")
			return
		}

		for {
			select {
			case <-a.stopCh:
				return
			case <-ctx.Done():
				return
			case ka, ok := <-kaCh:
				if ok && ka != nil {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				a.logger.Error("lease expired", clog.Int64("lease_id", int64(leaseID)))
				errCh <- xerrors.WithCode(ErrLeaseExpired, "lease_expired")
				return
			}
		}
	}()

	return errCh
}

// Stop 撤销租约，关联的 key 随之删除
func (a *etcdAllocator) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopCh)

		a.mu.Lock()
		leaseID, id, key := a.leaseID, a.workerID, a.etcdKey
		a.mu.Unlock()
		if leaseID == 0 {
			return
		}

		a.revoke(leaseID)
		a.logger.Info("worker id released",
			clog.Int64("worker_id", id),
			clog.String("key", key),
			clog.Int64("lease_id", int64(leaseID)),
		)
	})
}
