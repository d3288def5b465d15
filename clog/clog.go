package clog

import (
	"fmt"
	"sync/atomic"
)

var defaultLogger atomic.Pointer[Logger]

// New 创建一个新的 Logger 实例
//
// config - 日志配置，如果为 nil 会使用开发环境默认配置
// opts   - 函数式选项列表，用于命名空间、Context 字段等配置
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = NewDevDefaultConfig("shorturl")
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	options := applyOptions(opts...)

	return newLogger(config, options)
}

// Default 返回进程级默认 Logger
//
// 未调用 SetDefault 时返回输出到 stdout 的 info 级别 console Logger。
func Default() Logger {
	if l := defaultLogger.Load(); l != nil {
		return *l
	}
	logger, err := New(&Config{Level: "info", Format: "console", Output: "stdout"})
	if err != nil {
		return Discard()
	}
	defaultLogger.CompareAndSwap(nil, &logger)
	return *defaultLogger.Load()
}

// SetDefault 替换进程级默认 Logger，通常在 main 中启动时调用一次
func SetDefault(logger Logger) {
	if logger == nil {
		return
	}
	defaultLogger.Store(&logger)
}
