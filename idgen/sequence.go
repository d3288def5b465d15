package idgen

import "fmt"

// state 单个发号者的时间戳与序列号，不加锁，由持有者保证串行访问
type state struct {
	lastTimestamp int64
	sequence      uint64
}

func newState() state {
	return state{lastTimestamp: -1}
}

// next 推进状态并返回本次使用的毫秒和序列号
//
//   - 同一毫秒内序列号加 1，溢出回 0 时忙等到下一毫秒，waited 为 true
//   - 进入新的毫秒序列号归 0
//   - 时钟回拨返回 *ClockRegressedError，状态保持不变
func (s *state) next(clock Clock, maxSeq uint64) (ts int64, seq uint64, waited bool, err error) {
	ts = clock.NowMS()
	if ts < s.lastTimestamp {
		return 0, 0, false, newClockRegressedError(s.lastTimestamp, ts)
	}

	if ts == s.lastTimestamp {
		seq = (s.sequence + 1) & maxSeq
		if seq == 0 {
			waited = true
			ts = tilNextMillis(clock, s.lastTimestamp)
		}
	}

	s.lastTimestamp = ts
	s.sequence = seq
	return ts, seq, waited, nil
}

// issue 生成一个完整的 ID，时间戳超出布局范围时返回 ErrTimestampOverflow
func (s *state) issue(clock Clock, l *Layout, dc, worker, shard uint64) (id uint64, waited bool, err error) {
	ts, seq, waited, err := s.next(clock, l.maxSequence)
	if err != nil {
		return 0, false, err
	}

	delta := ts - l.EpochMS
	if delta < 0 || delta > l.maxTimestamp {
		return 0, waited, fmt.Errorf("%w: %d ms since epoch %d, layout allows [0, %d]",
			ErrTimestampOverflow, delta, l.EpochMS, l.maxTimestamp)
	}
	return l.Pack(delta, dc, worker, shard, seq), waited, nil
}

// tilNextMillis 忙等直到时钟越过 last；等待期间出现的回拨同样视为未越过
func tilNextMillis(clock Clock, last int64) int64 {
	ts := clock.NowMS()
	for ts <= last {
		ts = clock.NowMS()
	}
	return ts
}
