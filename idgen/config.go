package idgen

import (
	"fmt"
	"time"

	"github.com/ceyewan/shorturl/xerrors"
)

const (
	ModeSerialized = "serialized"
	ModeSharded    = "sharded"

	DefaultWorkerID     int64 = 1
	DefaultDatacenterID int64 = 1
	DefaultTimeout            = 3 * time.Second
	DefaultQueueSize          = 65536

	// MaxShardBits 分片位宽上限，每个分片一个 goroutine
	MaxShardBits = 10
)

// ========================================
// 配置结构 (Configuration)
// ========================================

// Config ID 生成器配置
//
// worker_id 与 datacenter_id 的零值是合法身份，不会被默认值覆盖；
// 需要默认身份 1/1 时使用 DefaultConfig。位宽为 0 表示使用默认位宽。
type Config struct {
	// Mode 发号模式: "serialized" | "sharded"，默认 "serialized"
	Mode string `yaml:"mode" json:"mode" mapstructure:"mode"`

	// WorkerID 工作节点 ID [0, 2^worker_bits-1]
	WorkerID int64 `yaml:"worker_id" json:"worker_id" mapstructure:"worker_id"`

	// DatacenterID 数据中心 ID [0, 2^datacenter_bits-1]
	DatacenterID int64 `yaml:"datacenter_id" json:"datacenter_id" mapstructure:"datacenter_id"`

	// EpochMS 时间戳起点（Unix 毫秒），默认串行 2015-01-01（UTC+8），分片 2025-01-01（UTC）
	EpochMS int64 `yaml:"epoch_ms" json:"epoch_ms" mapstructure:"epoch_ms"`

	DatacenterBits uint8 `yaml:"datacenter_bits" json:"datacenter_bits" mapstructure:"datacenter_bits"`
	WorkerBits     uint8 `yaml:"worker_bits" json:"worker_bits" mapstructure:"worker_bits"`
	SequenceBits   uint8 `yaml:"sequence_bits" json:"sequence_bits" mapstructure:"sequence_bits"`

	// ShardBits 分片位宽，仅分片模式生效，分片数为 2^shard_bits，最大 MaxShardBits
	ShardBits uint8 `yaml:"shard_bits" json:"shard_bits" mapstructure:"shard_bits"`

	// Timeout 分片模式单次等待上限，默认 3s
	Timeout time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`

	// QueueSize 分片模式请求队列容量，默认 65536
	QueueSize int `yaml:"queue_size" json:"queue_size" mapstructure:"queue_size"`

	// Codec 文本编码: "decimal" | "hex"，默认 "decimal"
	Codec string `yaml:"codec" json:"codec" mapstructure:"codec"`

	// Allocator 不为空时由分配器决定 worker_id，见 NewAllocator
	Allocator *AllocatorConfig `yaml:"allocator" json:"allocator" mapstructure:"allocator"`
}

// DefaultConfig 返回串行模式、身份 1/1 的默认配置，其余字段在创建生成器时补齐
func DefaultConfig() *Config {
	return &Config{
		Mode:         ModeSerialized,
		WorkerID:     DefaultWorkerID,
		DatacenterID: DefaultDatacenterID,
	}
}

func (c *Config) setDefaults() {
	if c.Mode == "" {
		c.Mode = ModeSerialized
	}
	if c.EpochMS == 0 {
		c.EpochMS = DefaultEpochMS
		if c.Mode == ModeSharded {
			c.EpochMS = DefaultShardedEpochMS
		}
	}
	if c.DatacenterBits == 0 {
		c.DatacenterBits = DefaultDatacenterBits
	}
	if c.WorkerBits == 0 {
		c.WorkerBits = DefaultWorkerBits
	}
	if c.SequenceBits == 0 {
		c.SequenceBits = DefaultSequenceBits
	}
	if c.ShardBits == 0 {
		c.ShardBits = DefaultShardBits
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.QueueSize == 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.Codec == "" {
		c.Codec = CodecDecimal
	}
}

// layout 按模式构造位布局，串行模式没有 shard 段
func (c *Config) layout() (*Layout, error) {
	shardBits := c.ShardBits
	if c.Mode == ModeSerialized {
		shardBits = 0
	}
	return NewLayout(c.EpochMS, c.DatacenterBits, c.WorkerBits, shardBits, c.SequenceBits)
}

func (c *Config) validate() error {
	if c.Mode != ModeSerialized && c.Mode != ModeSharded {
		return xerrors.WithCode(fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, c.Mode), "unsupported_mode")
	}

	if c.Mode == ModeSharded && c.ShardBits > MaxShardBits {
		return xerrors.WithCode(
			fmt.Errorf("%w: shard_bits %d exceeds %d", ErrInvalidInput, c.ShardBits, MaxShardBits),
			"shard_bits_out_of_range")
	}

	l, err := c.layout()
	if err != nil {
		return xerrors.WithCode(err, "invalid_layout")
	}

	if c.WorkerID < 0 || uint64(c.WorkerID) > l.MaxWorker() {
		return xerrors.WithCode(
			fmt.Errorf("%w: worker_id %d not in [0, %d]", ErrInvalidIdentity, c.WorkerID, l.MaxWorker()),
			"worker_id_out_of_range")
	}
	if c.DatacenterID < 0 || uint64(c.DatacenterID) > l.MaxDatacenter() {
		return xerrors.WithCode(
			fmt.Errorf("%w: datacenter_id %d not in [0, %d]", ErrInvalidIdentity, c.DatacenterID, l.MaxDatacenter()),
			"datacenter_id_out_of_range")
	}

	if c.Timeout < 0 {
		return xerrors.WithCode(ErrInvalidInput, "timeout_cannot_be_negative")
	}
	if c.QueueSize < 0 {
		return xerrors.WithCode(ErrInvalidInput, "queue_size_cannot_be_negative")
	}
	if _, err := CodecByName(c.Codec); err != nil {
		return xerrors.WithCode(err, "unsupported_codec")
	}
	return nil
}

// ========================================

// 分配器驱动
const (
	DriverStatic = "static"
	DriverRedis  = "redis"
	DriverEtcd   = "etcd"
)

// AllocatorConfig WorkerID 分配器配置
type AllocatorConfig struct {
	// Driver 后端类型: "static" | "redis" | "etcd"，默认 "static"
	Driver string `yaml:"driver" json:"driver" mapstructure:"driver"`

	// StaticID static 驱动直接返回的 worker_id
	StaticID int64 `yaml:"static_id" json:"static_id" mapstructure:"static_id"`

	// KeyPrefix 键前缀，默认 "shorturl:idgen:worker"
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix" mapstructure:"key_prefix"`

	// MaxID 可分配范围 [0, MaxID)，为 0 时由 New 按 worker_bits 取 2^worker_bits
	MaxID int `yaml:"max_id" json:"max_id" mapstructure:"max_id"`

	// TTL 租约 TTL（秒），默认 30
	TTL int `yaml:"ttl" json:"ttl" mapstructure:"ttl"`
}

func (c *AllocatorConfig) setDefaults() {
	if c.Driver == "" {
		c.Driver = DriverStatic
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "shorturl:idgen:worker"
	}
	if c.MaxID <= 0 {
		c.MaxID = 1 << DefaultWorkerBits
	}
	if c.TTL <= 0 {
		c.TTL = 30
	}
}

func (c *AllocatorConfig) validate() error {
	switch c.Driver {
	case DriverStatic, DriverRedis, DriverEtcd:
	default:
		return xerrors.WithCode(ErrInvalidInput, "unsupported_driver")
	}
	if c.StaticID < 0 {
		return xerrors.WithCode(ErrInvalidInput, "static_id_cannot_be_negative")
	}
	if c.MaxID <= 0 {
		return xerrors.WithCode(ErrInvalidInput, "max_id_out_of_range")
	}
	if c.TTL <= 0 {
		return xerrors.WithCode(ErrInvalidInput, "ttl_must_be_positive")
	}
	return nil
}
