package idgen

import "time"

// Clock 毫秒级时钟，测试中注入可控实现以模拟回拨和跨毫秒
type Clock interface {
	NowMS() int64
}

// ClockFunc 将普通函数适配为 Clock
type ClockFunc func() int64

func (f ClockFunc) NowMS() int64 {
	return f()
}

// SystemClock 返回读取系统墙上时钟的 Clock
func SystemClock() Clock {
	return ClockFunc(func() int64 {
		return time.Now().UnixMilli()
	})
}
