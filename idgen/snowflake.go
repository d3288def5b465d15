package idgen

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ceyewan/shorturl/clog"
)

// Snowflake 串行模式生成器，一把互斥锁保护唯一的发号状态
//
// ID 结构 (64 bits):
//
//	| 1 bit sign | 41 bits timestamp | 5 bits datacenter | 5 bits worker | 12 bits sequence |
//
// 位宽可通过 Config 调整，见 Layout。
type Snowflake struct {
	mu sync.Mutex
	st state

	layout       *Layout
	workerID     uint64
	datacenterID uint64
	clock        Clock
	codec        Codec

	logger  clog.Logger
	metrics *generatorMetrics
	closed  atomic.Bool
}

// NewSnowflake 创建串行模式生成器，cfg 为 nil 时使用 DefaultConfig
//
// cfg.Mode 被忽略，总是不含 shard 段。
func NewSnowflake(cfg *Config, opts ...Option) (*Snowflake, error) {
	c := cloneConfig(cfg)
	c.Mode = ModeSerialized
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	layout, _ := c.layout()
	codec, _ := CodecByName(c.Codec)
	m, err := newGeneratorMetrics(o.Meter, ModeSerialized)
	if err != nil {
		return nil, err
	}

	s := &Snowflake{
		st:           newState(),
		layout:       layout,
		workerID:     uint64(c.WorkerID),
		datacenterID: uint64(c.DatacenterID),
		clock:        o.Clock,
		codec:        codec,
		logger:       o.Logger.With(clog.String("mode", ModeSerialized)),
		metrics:      m,
	}
	s.logger.Info("snowflake generator created",
		clog.Uint64("worker_id", s.workerID),
		clog.Uint64("datacenter_id", s.datacenterID),
		clog.String("layout", layout.String()),
	)
	return s, nil
}

// NextID 生成下一个 ID
//
// 同一生成器返回的 ID 严格递增。时钟回拨时立即返回 *ClockRegressedError，不重试。
func (s *Snowflake) NextID(ctx context.Context) (uint64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}

	s.mu.Lock()
	id, waited, err := s.st.issue(s.clock, s.layout, s.datacenterID, s.workerID, 0)
	s.mu.Unlock()

	s.metrics.observe(ctx, waited, err)
	if err != nil {
		s.logger.WarnContext(ctx, "generate id failed", clog.Error(err))
		return 0, err
	}
	return id, nil
}

// NextString 生成下一个 ID 并按配置的编码输出
func (s *Snowflake) NextString(ctx context.Context) (string, error) {
	id, err := s.NextID(ctx)
	if err != nil {
		return "", err
	}
	return s.codec.Encode(id), nil
}

func (s *Snowflake) WorkerID() uint64     { return s.workerID }
func (s *Snowflake) DatacenterID() uint64 { return s.datacenterID }
func (s *Snowflake) Layout() *Layout      { return s.layout }
func (s *Snowflake) Codec() Codec         { return s.codec }

// Close 之后 NextID 返回 ErrClosed，重复调用同样返回 ErrClosed
func (s *Snowflake) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	s.logger.Info("snowflake generator closed")
	return nil
}

func cloneConfig(cfg *Config) Config {
	if cfg == nil {
		return *DefaultConfig()
	}
	return *cfg
}
