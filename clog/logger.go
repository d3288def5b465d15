// Package clog 为 shorturl 提供基于 slog 的结构化日志组件。
// 支持 Context 字段提取和命名空间管理。
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{
//	    Level:  "info",
//	    Format: "console",
//	    Output: "stdout",
//	})
//	logger.Info("id issued", clog.Uint64("id", id))
//
// 组件内部约定通过 With 派生子 Logger：
//
//	logger = logger.With(clog.String("component", "idgen"))
package clog

import "context"

// Logger 日志接口，提供结构化日志记录功能
//
// 支持五个日志级别：Debug、Info、Warn、Error、Fatal
// 每个级别都有带 Context 和不带 Context 的版本
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	// 带 Context 的版本会自动提取 WithContextField 配置的字段
	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)
	FatalContext(ctx context.Context, msg string, fields ...Field)

	// With 创建一个带有预设字段的子 Logger
	With(fields ...Field) Logger

	// WithNamespace 创建一个扩展命名空间的子 Logger
	//
	//   logger := clog.WithNamespace("shorturl")
	//   logger.WithNamespace("idgen") // 命名空间为 "shorturl.idgen"
	WithNamespace(parts ...string) Logger

	// SetLevel 动态调整日志级别，对共享同一 handler 的子 Logger 同时生效
	SetLevel(level Level) error

	// Flush 强制同步所有缓冲区的日志
	Flush()
}
