package clog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// clogHandler 封装 slog.Handler，提供动态级别和 Flush 能力
type clogHandler struct {
	slog.Handler
	levelVar *slog.LevelVar
	closer   io.Closer
}

// newHandler 构造顺序：writer -> handler options -> json/text handler -> wrapper
func newHandler(config *Config, options *options) (*clogHandler, error) {
	w, closer, err := resolveWriter(config, options)
	if err != nil {
		return nil, err
	}

	level, _ := ParseLevel(config.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level.slogLevel())

	opts := &slog.HandlerOptions{
		AddSource:   config.AddSource,
		Level:       levelVar,
		ReplaceAttr: newReplaceAttr(config),
	}

	var handler slog.Handler
	if strings.ToLower(config.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &clogHandler{Handler: handler, levelVar: levelVar, closer: closer}, nil
}

func resolveWriter(config *Config, options *options) (io.Writer, io.Closer, error) {
	switch strings.ToLower(config.Output) {
	case "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	case "buffer":
		if options.buffer != nil {
			return options.buffer, nil, nil
		}
		return nil, nil, fmt.Errorf("buffer output requires options.buffer to be set")
	default:
		f, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	}
}

// newReplaceAttr 统一处理 Level/Time/Source 字段
func newReplaceAttr(config *Config) func(groups []string, a slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) > 0 {
			return a
		}
		switch a.Key {
		case slog.LevelKey:
			if level, ok := a.Value.Any().(slog.Level); ok {
				a.Value = slog.StringValue(levelName(level))
			}
		case slog.TimeKey:
			if a.Value.Kind() == slog.KindTime {
				a.Value = slog.StringValue(a.Value.Time().Format(timeFormat))
			}
		case slog.SourceKey:
			if source, ok := a.Value.Any().(*slog.Source); ok {
				return slog.String("caller", fmt.Sprintf("%s:%d", trimSourcePath(source.File, config.SourceRoot), source.Line))
			}
		}
		return a
	}
}

func levelName(level slog.Level) string {
	switch {
	case level <= slog.LevelDebug:
		return "DEBUG"
	case level <= slog.LevelInfo:
		return "INFO"
	case level <= slog.LevelWarn:
		return "WARN"
	case level <= slog.LevelError:
		return "ERROR"
	default:
		return "FATAL"
	}
}

// trimSourcePath 按 sourceRoot 裁剪调用文件路径，找不到时退回到模块名
func trimSourcePath(fileName, sourceRoot string) string {
	if sourceRoot == "" {
		return fileName
	}
	if filepath.IsAbs(sourceRoot) {
		if rel, err := filepath.Rel(sourceRoot, fileName); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	if idx := strings.Index(fileName, sourceRoot); idx != -1 {
		return fileName[idx:]
	}
	return fileName
}

// SetLevel 动态调整日志级别
func (h *clogHandler) SetLevel(level Level) error {
	if _, err := ParseLevel(level.String()); err != nil {
		return err
	}
	h.levelVar.Set(level.slogLevel())
	return nil
}

// Flush 文件输出时同步到磁盘，stdout/stderr 无需处理
func (h *clogHandler) Flush() {
	if f, ok := h.closer.(*os.File); ok {
		_ = f.Sync()
	}
}
