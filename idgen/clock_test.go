package idgen

import (
	"sync"
	"sync/atomic"
	"time"
)

// manualClock 手动拨动的时钟
type manualClock struct {
	now atomic.Int64
}

func newManualClock(ms int64) *manualClock {
	c := &manualClock{}
	c.now.Store(ms)
	return c
}

func (c *manualClock) NowMS() int64     { return c.now.Load() }
func (c *manualClock) Set(ms int64)     { c.now.Store(ms) }
func (c *manualClock) Advance(ms int64) { c.now.Add(ms) }

// scriptClock 依次返回预设的读数，读完后停在最后一个值
type scriptClock struct {
	mu    sync.Mutex
	vals  []int64
	i     int
	reads int
}

func newScriptClock(vals ...int64) *scriptClock {
	return &scriptClock{vals: vals}
}

func (c *scriptClock) NowMS() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	v := c.vals[c.i]
	if c.i < len(c.vals)-1 {
		c.i++
	}
	return v
}

func (c *scriptClock) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// blockingClock 在 release 关闭前阻塞所有读数，用于让 worker 停在发号中途
type blockingClock struct {
	release chan struct{}
	once    sync.Once
}

func newBlockingClock() *blockingClock {
	return &blockingClock{release: make(chan struct{})}
}

func (c *blockingClock) NowMS() int64 {
	<-c.release
	return time.Now().UnixMilli()
}

func (c *blockingClock) Release() {
	c.once.Do(func() { close(c.release) })
}

// epochPlus 返回默认 epoch 之后 ms 毫秒的读数
func epochPlus(ms int64) int64 {
	return DefaultEpochMS + ms
}
