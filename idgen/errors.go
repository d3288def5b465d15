package idgen

import (
	"context"
	"fmt"
	"time"

	"github.com/ceyewan/shorturl/xerrors"
)

var (
	// ErrInvalidIdentity worker_id 或 datacenter_id 超出位宽允许的范围
	ErrInvalidIdentity = xerrors.New("idgen: invalid identity")

	// ErrInvalidLayout 位宽组合非法
	ErrInvalidLayout = xerrors.New("idgen: invalid bit layout")

	// ErrClockRegressed 当前毫秒早于上一次发号的毫秒
	ErrClockRegressed = xerrors.New("idgen: clock moved backwards")

	// ErrTimestampOverflow 时间戳不在 epoch 之后或超出时间戳位宽
	ErrTimestampOverflow = xerrors.New("idgen: timestamp out of range")

	// ErrTimeout 分片模式等待结果超时
	ErrTimeout = xerrors.New("idgen: timed out waiting for id")

	// ErrPoolSaturated 分片模式请求队列已满
	ErrPoolSaturated = xerrors.New("idgen: request queue is full")

	// ErrClosed 生成器已关闭
	ErrClosed = xerrors.New("idgen: generator closed")

	// ErrInvalidInput 无效的输入，可用 xerrors.Is(err, xerrors.ErrInvalidInput) 统一判断
	ErrInvalidInput = fmt.Errorf("idgen: %w", xerrors.ErrInvalidInput)

	// ErrConnectorNil 连接器为空
	ErrConnectorNil = xerrors.New("idgen: connector is nil")

	// ErrWorkerIDExhausted WorkerID 已耗尽
	ErrWorkerIDExhausted = xerrors.New("idgen: no available worker id")

	// ErrLeaseExpired WorkerID 租约已失效，身份不能再使用
	ErrLeaseExpired = xerrors.New("idgen: lease expired")
)

// ClockRegressedError 记录一次时钟回拨，errors.Is(err, ErrClockRegressed) 为 true
type ClockRegressedError struct {
	// Last 上一次发号的毫秒时间戳
	Last int64
	// Now 本次读到的毫秒时间戳
	Now int64
	// BehindBy 回拨的时长
	BehindBy time.Duration
}

func newClockRegressedError(last, now int64) *ClockRegressedError {
	return &ClockRegressedError{
		Last:     last,
		Now:      now,
		BehindBy: time.Duration(last-now) * time.Millisecond,
	}
}

func (e *ClockRegressedError) Error() string {
	return fmt.Sprintf("idgen: clock moved backwards, refusing to generate id for %d milliseconds", e.BehindBy.Milliseconds())
}

func (e *ClockRegressedError) Unwrap() error {
	return ErrClockRegressed
}

// errorReason 将错误归类为低基数的指标标签
func errorReason(err error) string {
	switch {
	case xerrors.Is(err, ErrClockRegressed):
		return "clock_regressed"
	case xerrors.Is(err, ErrTimestampOverflow):
		return "timestamp_overflow"
	case xerrors.Is(err, ErrTimeout):
		return "timeout"
	case xerrors.Is(err, ErrPoolSaturated):
		return "pool_saturated"
	case xerrors.Is(err, ErrClosed):
		return "closed"
	case xerrors.Is(err, ErrLeaseExpired):
		return "lease_expired"
	case xerrors.Is(err, context.Canceled), xerrors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
