// Package testkit 提供各组件测试共用的依赖：Logger、Meter 和外部服务连接器。
//
// 依赖外部服务的辅助函数在服务不可达时调用 t.Skip，单元测试不受影响。
package testkit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ceyewan/shorturl/clog"
	"github.com/ceyewan/shorturl/metrics"
)

// Kit 包含通用的测试依赖
type Kit struct {
	Ctx    context.Context
	Logger clog.Logger
	Meter  metrics.Meter
}

// NewKit 返回一个包含默认依赖的测试工具包，Meter 在测试结束时关闭
func NewKit(t *testing.T) *Kit {
	t.Helper()
	meter := NewMeter()
	t.Cleanup(func() {
		_ = meter.Shutdown(context.Background())
	})
	return &Kit{
		Ctx:    context.Background(),
		Logger: NewLogger(),
		Meter:  meter,
	}
}

// NewLogger 返回一个用于测试的 logger
//
// 默认静默，设置 SHORTURL_TEST_LOG=1 时输出 debug 级别日志到 stderr。
func NewLogger() clog.Logger {
	if os.Getenv("SHORTURL_TEST_LOG") == "" {
		return clog.Discard()
	}
	logger, err := clog.New(&clog.Config{Level: "debug", Format: "console", Output: "stderr", AddSource: true, SourceRoot: "shorturl"})
	if err != nil {
		return clog.Discard()
	}
	return logger
}

// NewMeter 返回一个用于测试的 meter，不启动独立端口，可通过 Handler 抓取
func NewMeter() metrics.Meter {
	meter, err := metrics.New(metrics.NewDevDefaultConfig("test"))
	if err != nil {
		return metrics.Discard()
	}
	return meter
}

// NewContext 返回一个带有超时的测试上下文
func NewContext(t *testing.T, timeout time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), timeout)
}

// NewID 返回一个唯一的测试 ID (UUID v4 前 8 位)，用于生成互不冲突的 key 前缀
func NewID() string {
	return uuid.New().String()[0:8]
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
