// Package idgen 提供分布式 Snowflake ID 生成器。
//
// 每个 ID 是一个非负的 64 位整数，由毫秒时间戳、数据中心 ID、工作节点 ID、
// 可选的分片 ID 和毫秒内序列号组成。只要集群内 (datacenter_id, worker_id) 不重复、
// 时钟不回拨，生成的 ID 全局唯一，并按时间大致有序。
//
// 两种模式：
//   - serialized：一个互斥锁保护一份发号状态，同一生成器的 ID 严格递增
//   - sharded：2^shard_bits 个 worker 各自发号，通过有界队列分发请求，带等待超时
//
// 基本使用：
//
//	gen, err := idgen.New(idgen.DefaultConfig(), idgen.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer gen.Close()
//
//	id, err := gen.NextID(ctx)
//	if errors.Is(err, idgen.ErrClockRegressed) {
//	    // 时钟回拨，由调用方决定重试或失败
//	}
//
// 时钟回拨不会被吞掉或重试，回拨期间每次调用都返回 *ClockRegressedError。
package idgen

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ceyewan/shorturl/clog"
	"github.com/ceyewan/shorturl/xerrors"
)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Generator ID 生成器，方法均为并发安全
type Generator interface {
	// NextID 生成下一个 ID
	NextID(ctx context.Context) (uint64, error)

	// NextString 生成下一个 ID 的文本形式，默认十进制
	NextString(ctx context.Context) (string, error)

	WorkerID() uint64
	DatacenterID() uint64
	Layout() *Layout
	Codec() Codec

	// Close 释放资源，之后的 NextID 返回 ErrClosed
	//
	// 重复调用时串行模式返回 ErrClosed，分片模式返回 nil。
	Close() error
}

var (
	_ Generator = (*Snowflake)(nil)
	_ Generator = (*Sharded)(nil)
)

// allocateTimeout New 中分配 worker_id 的最长等待
const allocateTimeout = 10 * time.Second

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 按 cfg.Mode 创建生成器，cfg 为 nil 时使用 DefaultConfig
//
// 直接构造的 Config 中 WorkerID/DatacenterID 的零值就是身份 0/0，不会补成 1/1；
// 需要默认身份时从 DefaultConfig() 开始修改。
//
// 身份来源按优先级：WithAllocator 传入的分配器 > cfg.Allocator（redis/etcd）> cfg.WorkerID。
// 使用分配器时，租约丢失后 NextID 返回 ErrLeaseExpired，Close 会释放租约。
func New(cfg *Config, opts ...Option) (Generator, error) {
	c := cloneConfig(cfg)
	c.setDefaults()
	o := applyOptions(opts)

	alloc := o.Allocator
	if alloc == nil && c.Allocator != nil && c.Allocator.Driver != "" && c.Allocator.Driver != DriverStatic {
		ac := *c.Allocator
		if ac.MaxID == 0 {
			ac.MaxID = 1 << c.WorkerBits
		}
		var err error
		if alloc, err = NewAllocator(&ac, opts...); err != nil {
			return nil, err
		}
	}
	if alloc == nil {
		return newGenerator(&c, opts)
	}

	ctx, cancel := context.WithTimeout(context.Background(), allocateTimeout)
	workerID, err := alloc.Allocate(ctx)
	cancel()
	if err != nil {
		return nil, xerrors.Wrap(err, "idgen: allocate worker id")
	}
	c.WorkerID = workerID

	gen, err := newGenerator(&c, opts)
	if err != nil {
		alloc.Stop()
		return nil, err
	}
	return newLeasedGenerator(gen, alloc, o.Logger), nil
}

// Must 类似 New，但出错时 panic，仅用于初始化阶段
func Must(cfg *Config, opts ...Option) Generator {
	return xerrors.Must(New(cfg, opts...))
}

func newGenerator(c *Config, opts []Option) (Generator, error) {
	switch c.Mode {
	case ModeSerialized:
		return NewSnowflake(c, opts...)
	case ModeSharded:
		return NewSharded(c, opts...)
	default:
		return nil, xerrors.WithCode(fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, c.Mode), "unsupported_mode")
	}
}

// ========================================
// 租约包装 (Leased Generator)
// ========================================

// leasedGenerator 持有分配器租约，租约丢失后拒绝发号，防止同一 worker_id 被两个实例使用
type leasedGenerator struct {
	Generator

	alloc  Allocator
	logger clog.Logger
	lost   atomic.Bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func newLeasedGenerator(gen Generator, alloc Allocator, logger clog.Logger) *leasedGenerator {
	ctx, cancel := context.WithCancel(context.Background())
	g := &leasedGenerator{
		Generator: gen,
		alloc:     alloc,
		logger:    logger.With(clog.Uint64("worker_id", gen.WorkerID())),
		cancel:    cancel,
	}
	errCh := alloc.KeepAlive(ctx)
	g.wg.Add(1)
	go g.watch(ctx, errCh)
	return g
}

func (g *leasedGenerator) watch(ctx context.Context, errCh <-chan error) {
	defer g.wg.Done()
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err == nil {
			return
		}
		g.lost.Store(true)
		g.logger.Error("worker id lease lost, generator disabled", clog.Error(err))
	}
}

func (g *leasedGenerator) NextID(ctx context.Context) (uint64, error) {
	if g.lost.Load() {
		return 0, ErrLeaseExpired
	}
	return g.Generator.NextID(ctx)
}

func (g *leasedGenerator) NextString(ctx context.Context) (string, error) {
	if g.lost.Load() {
		return "", ErrLeaseExpired
	}
	return g.Generator.NextString(ctx)
}

// Close 先关闭生成器，再释放租约，重复调用的返回值与被包装的生成器一致
func (g *leasedGenerator) Close() error {
	err := g.Generator.Close()
	g.once.Do(func() {
		g.cancel()
		g.wg.Wait()
		g.alloc.Stop()
	})
	return err
}
