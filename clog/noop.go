package clog

import "context"

type discardLogger struct{}

// Discard 返回丢弃所有输出的 Logger，组件未注入 Logger 时使用
func Discard() Logger {
	return discardLogger{}
}

func (discardLogger) Debug(string, ...Field)                         {}
func (discardLogger) Info(string, ...Field)                          {}
func (discardLogger) Warn(string, ...Field)                          {}
func (discardLogger) Error(string, ...Field)                         {}
func (discardLogger) Fatal(string, ...Field)                         {}
func (discardLogger) DebugContext(context.Context, string, ...Field) {}
func (discardLogger) InfoContext(context.Context, string, ...Field)  {}
func (discardLogger) WarnContext(context.Context, string, ...Field)  {}
func (discardLogger) ErrorContext(context.Context, string, ...Field) {}
func (discardLogger) FatalContext(context.Context, string, ...Field) {}

func (l discardLogger) With(...Field) Logger           { return l }
func (l discardLogger) WithNamespace(...string) Logger { return l }
func (discardLogger) SetLevel(Level) error             { return nil }
func (discardLogger) Flush()                           {}
