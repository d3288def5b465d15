package clog

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"time"
)

// loggerImpl 共享同一个 handler，With/WithNamespace 只复制字段和选项
type loggerImpl struct {
	h     *clogHandler
	opts  *options
	attrs []slog.Attr
}

func newLogger(config *Config, opts *options) (Logger, error) {
	h, err := newHandler(config, opts)
	if err != nil {
		return nil, err
	}
	return &loggerImpl{h: h, opts: opts}, nil
}

func (l *loggerImpl) Debug(msg string, fields ...Field) {
	l.log(context.Background(), DebugLevel, msg, fields)
}

func (l *loggerImpl) Info(msg string, fields ...Field) {
	l.log(context.Background(), InfoLevel, msg, fields)
}

func (l *loggerImpl) Warn(msg string, fields ...Field) {
	l.log(context.Background(), WarnLevel, msg, fields)
}

func (l *loggerImpl) Error(msg string, fields ...Field) {
	l.log(context.Background(), ErrorLevel, msg, fields)
}

func (l *loggerImpl) Fatal(msg string, fields ...Field) {
	l.log(context.Background(), FatalLevel, msg, fields)
}

func (l *loggerImpl) DebugContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, DebugLevel, msg, fields)
}

func (l *loggerImpl) InfoContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, InfoLevel, msg, fields)
}

func (l *loggerImpl) WarnContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, WarnLevel, msg, fields)
}

func (l *loggerImpl) ErrorContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, ErrorLevel, msg, fields)
}

func (l *loggerImpl) FatalContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, FatalLevel, msg, fields)
}

func (l *loggerImpl) WithNamespace(parts ...string) Logger {
	opts := *l.opts
	opts.namespaceParts = slices.Concat(l.opts.namespaceParts, parts)
	return &loggerImpl{h: l.h, opts: &opts, attrs: l.attrs}
}

func (l *loggerImpl) With(fields ...Field) Logger {
	return &loggerImpl{h: l.h, opts: l.opts, attrs: slices.Concat(l.attrs, fields)}
}

// log 的调用深度固定为 2（Info 等 -> log），source 取调用 Info 的位置
func (l *loggerImpl) log(ctx context.Context, level Level, msg string, fields []Field) {
	sl := level.slogLevel()
	if !l.h.Enabled(ctx, sl) {
		return
	}

	attrs := make([]slog.Attr, 0, len(l.attrs)+len(fields)+4)
	attrs = append(attrs, l.attrs...)
	attrs = append(attrs, fields...)
	extractContextFields(ctx, l.opts, &attrs)
	addNamespaceFields(l.opts, &attrs)

	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), sl, msg, pcs[0])
	r.AddAttrs(attrs...)

	if err := l.h.Handle(ctx, r); err == nil && level == FatalLevel {
		l.h.Flush()
		os.Exit(1)
	}
}

func (l *loggerImpl) SetLevel(level Level) error {
	return l.h.SetLevel(level)
}

func (l *loggerImpl) Flush() {
	l.h.Flush()
}
