package idgen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ceyewan/shorturl/clog"
	"github.com/ceyewan/shorturl/xerrors"
)

// Sharded 分片模式生成器
//
// 启动 2^shard_bits 个 worker goroutine，每个 worker 持有私有的发号状态和 shard_id，
// 彼此之间不共享任何可变数据。调用方把请求放入共享的有界队列，由空闲 worker 取走处理，
// 再通过容量为 1 的回复通道拿到结果。
//
// ID 结构 (64 bits，默认):
//
//	| 1 bit sign | 38 bits timestamp | 5 bits datacenter | 5 bits worker | 3 bits shard | 12 bits sequence |
type Sharded struct {
	layout       *Layout
	workerID     uint64
	datacenterID uint64
	codec        Codec
	timeout      time.Duration

	logger  clog.Logger
	metrics *generatorMetrics

	queue   chan request
	workers []*shardWorker
	wg      sync.WaitGroup

	// mu 保证 Close 之后不再有请求入队
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

type request struct {
	ctx   context.Context
	reply chan result
}

type result struct {
	id     uint64
	waited bool
	err    error
}

type shardWorker struct {
	shardID uint64
	st      state
}

// NewSharded 创建分片模式生成器并启动所有 worker，cfg 为 nil 时使用 DefaultConfig
//
// cfg.Mode 被忽略，总是包含 shard 段。
func NewSharded(cfg *Config, opts ...Option) (*Sharded, error) {
	c := cloneConfig(cfg)
	c.Mode = ModeSharded
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	layout, _ := c.layout()
	codec, _ := CodecByName(c.Codec)
	m, err := newGeneratorMetrics(o.Meter, ModeSharded)
	if err != nil {
		return nil, err
	}

	s := &Sharded{
		layout:       layout,
		workerID:     uint64(c.WorkerID),
		datacenterID: uint64(c.DatacenterID),
		codec:        codec,
		timeout:      c.Timeout,
		logger:       o.Logger.With(clog.String("mode", ModeSharded)),
		metrics:      m,
		queue:        make(chan request, c.QueueSize),
		done:         make(chan struct{}),
	}

	n := int(layout.MaxShard()) + 1
	s.workers = make([]*shardWorker, n)
	for i := range s.workers {
		w := &shardWorker{shardID: uint64(i), st: newState()}
		s.workers[i] = w
		s.wg.Add(1)
		go s.run(w, o.Clock)
	}

	s.logger.Info("sharded generator created",
		clog.Uint64("worker_id", s.workerID),
		clog.Uint64("datacenter_id", s.datacenterID),
		clog.Int("shards", n),
		clog.Int("queue_size", c.QueueSize),
		clog.Duration("timeout", s.timeout),
		clog.String("layout", layout.String()),
	)
	return s, nil
}

func (s *Sharded) run(w *shardWorker, clock Clock) {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case req := <-s.queue:
			// 调用方已放弃的请求不再消耗序列号
			if req.ctx.Err() != nil {
				continue
			}
			id, waited, err := w.st.issue(clock, s.layout, s.datacenterID, s.workerID, w.shardID)
			req.reply <- result{id: id, waited: waited, err: err}
		}
	}
}

// NextID 提交一次发号请求并等待结果
//
// 等待上限取 ctx 截止时间与 Config.Timeout 中较早者，到期返回 ErrTimeout；
// ctx 被取消时返回包装后的 ctx.Err()；队列已满立即返回 ErrPoolSaturated。
func (s *Sharded) NextID(ctx context.Context) (uint64, error) {
	start := time.Now()
	id, waited, err := s.submit(ctx)
	s.metrics.observeWait(ctx, time.Since(start))
	s.metrics.observe(ctx, waited, err)
	if err != nil {
		s.logger.WarnContext(ctx, "generate id failed", clog.Error(err))
		return 0, err
	}
	return id, nil
}

func (s *Sharded) submit(parent context.Context) (uint64, bool, error) {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	req := request{ctx: ctx, reply: make(chan result, 1)}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return 0, false, ErrClosed
	}
	select {
	case s.queue <- req:
	default:
		s.mu.RUnlock()
		return 0, false, fmt.Errorf("%w: capacity %d", ErrPoolSaturated, cap(s.queue))
	}
	s.mu.RUnlock()

	select {
	case res := <-req.reply:
		return res.id, res.waited, res.err
	case <-ctx.Done():
		if err := parent.Err(); xerrors.Is(err, context.Canceled) {
			return 0, false, fmt.Errorf("idgen: request canceled: %w", err)
		}
		return 0, false, fmt.Errorf("%w: %w", ErrTimeout, context.DeadlineExceeded)
	}
}

// NextString 生成下一个 ID 并按配置的编码输出
func (s *Sharded) NextString(ctx context.Context) (string, error) {
	id, err := s.NextID(ctx)
	if err != nil {
		return "", err
	}
	return s.codec.Encode(id), nil
}

func (s *Sharded) WorkerID() uint64     { return s.workerID }
func (s *Sharded) DatacenterID() uint64 { return s.datacenterID }
func (s *Sharded) Layout() *Layout      { return s.layout }
func (s *Sharded) Codec() Codec         { return s.codec }

// Shards 返回 worker 数量，即 2^shard_bits
func (s *Sharded) Shards() int { return len(s.workers) }

// Close 停止接收请求并等待所有 worker 退出，队列中剩余的请求收到 ErrClosed。可重复调用。
func (s *Sharded) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	s.wg.Wait()

	dropped := 0
	for {
		select {
		case req := <-s.queue:
			req.reply <- result{err: ErrClosed}
			dropped++
		default:
			s.logger.Info("sharded generator closed", clog.Int("dropped_requests", dropped))
			return nil
		}
	}
}
