package idgen

import (
	"fmt"
	"time"
)

const (
	// DefaultEpochMS 2015-01-01T00:00:00+08:00，串行模式的时间戳起点
	DefaultEpochMS int64 = 1420041600000

	// DefaultShardedEpochMS 2025-01-01T00:00:00Z，分片模式的时间戳起点
	//
	// 分片模式多占 3 bit，时间戳只剩 38 bit（约 8.7 年），从 2015 年起算已在 2023 年耗尽。
	DefaultShardedEpochMS int64 = 1735689600000

	DefaultDatacenterBits uint8 = 5
	DefaultWorkerBits     uint8 = 5
	DefaultShardBits      uint8 = 3
	DefaultSequenceBits   uint8 = 12
)

// Layout 描述 64 位 ID 的位划分，从高到低：
//
//	sign(1) | timestamp | datacenter | worker | shard | sequence
//
// ShardBits 为 0 时没有 shard 段。Layout 创建后不可修改，可在多个 goroutine 间共享。
type Layout struct {
	EpochMS        int64
	DatacenterBits uint8
	WorkerBits     uint8
	ShardBits      uint8
	SequenceBits   uint8

	timestampBits   uint8
	shardShift      uint8
	workerShift     uint8
	datacenterShift uint8
	timestampShift  uint8

	maxTimestamp  int64
	maxDatacenter uint64
	maxWorker     uint64
	maxShard      uint64
	maxSequence   uint64
}

// Parts 是一个 ID 拆开后的各字段，Timestamp 为相对 epoch 的毫秒数
type Parts struct {
	Timestamp    int64  `json:"timestamp"`
	DatacenterID uint64 `json:"datacenter_id"`
	WorkerID     uint64 `json:"worker_id"`
	ShardID      uint64 `json:"shard_id"`
	Sequence     uint64 `json:"sequence"`
}

// NewLayout 校验位宽并预计算各段的偏移和上限
//
// 符号位加各段位宽必须小于 64，即时间戳至少保留 1 bit；序列号位宽不能为 0。
func NewLayout(epochMS int64, dcBits, workerBits, shardBits, seqBits uint8) (*Layout, error) {
	if epochMS < 0 {
		return nil, fmt.Errorf("%w: negative epoch %d", ErrInvalidLayout, epochMS)
	}
	if seqBits == 0 {
		return nil, fmt.Errorf("%w: sequence bits must be positive", ErrInvalidLayout)
	}
	used := 1 + int(dcBits) + int(workerBits) + int(shardBits) + int(seqBits)
	if used >= 64 {
		return nil, fmt.Errorf("%w: %d bits used, timestamp needs at least 1 of 64", ErrInvalidLayout, used)
	}

	l := &Layout{
		EpochMS:        epochMS,
		DatacenterBits: dcBits,
		WorkerBits:     workerBits,
		ShardBits:      shardBits,
		SequenceBits:   seqBits,
	}
	l.timestampBits = uint8(64 - used)
	l.shardShift = seqBits
	l.workerShift = seqBits + shardBits
	l.datacenterShift = seqBits + shardBits + workerBits
	l.timestampShift = seqBits + shardBits + workerBits + dcBits

	l.maxTimestamp = int64(fieldMax(l.timestampBits))
	l.maxDatacenter = fieldMax(dcBits)
	l.maxWorker = fieldMax(workerBits)
	l.maxShard = fieldMax(shardBits)
	l.maxSequence = fieldMax(seqBits)
	return l, nil
}

// DefaultLayout 串行模式默认布局：41 bit 时间戳 + 5 + 5 + 12
func DefaultLayout() *Layout {
	l, _ := NewLayout(DefaultEpochMS, DefaultDatacenterBits, DefaultWorkerBits, 0, DefaultSequenceBits)
	return l
}

// DefaultShardedLayout 分片模式默认布局：38 bit 时间戳 + 5 + 5 + 3 + 12
func DefaultShardedLayout() *Layout {
	l, _ := NewLayout(DefaultShardedEpochMS, DefaultDatacenterBits, DefaultWorkerBits, DefaultShardBits, DefaultSequenceBits)
	return l
}

func fieldMax(bits uint8) uint64 {
	return (uint64(1) << bits) - 1
}

// Pack 将各字段移位后按位或组合，不做范围检查，调用方保证各值不超过对应上限
func (l *Layout) Pack(delta int64, dc, worker, shard, seq uint64) uint64 {
	return uint64(delta)<<l.timestampShift |
		dc<<l.datacenterShift |
		worker<<l.workerShift |
		shard<<l.shardShift |
		seq
}

// Decode 拆解 ID，Decode(Pack(t, d, w, s, q)) 还原所有在范围内的字段
func (l *Layout) Decode(id uint64) Parts {
	return Parts{
		Timestamp:    int64(id>>l.timestampShift) & l.maxTimestamp,
		DatacenterID: (id >> l.datacenterShift) & l.maxDatacenter,
		WorkerID:     (id >> l.workerShift) & l.maxWorker,
		ShardID:      (id >> l.shardShift) & l.maxShard,
		Sequence:     id & l.maxSequence,
	}
}

// Time 返回 ID 的生成时间（毫秒精度，UTC）
func (l *Layout) Time(id uint64) time.Time {
	return time.UnixMilli(l.EpochMS + l.Decode(id).Timestamp).UTC()
}

func (l *Layout) TimestampBits() uint8  { return l.timestampBits }
func (l *Layout) MaxTimestamp() int64   { return l.maxTimestamp }
func (l *Layout) MaxDatacenter() uint64 { return l.maxDatacenter }
func (l *Layout) MaxWorker() uint64     { return l.maxWorker }
func (l *Layout) MaxShard() uint64      { return l.maxShard }
func (l *Layout) MaxSequence() uint64   { return l.maxSequence }

// String 形如 "41/5/5/0/12@1420041600000"
func (l *Layout) String() string {
	return fmt.Sprintf("%d/%d/%d/%d/%d@%d", l.timestampBits, l.DatacenterBits, l.WorkerBits, l.ShardBits, l.SequenceBits, l.EpochMS)
}
