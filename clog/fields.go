package clog

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/ceyewan/shorturl/xerrors"
)

// Field 是 slog.Attr 的类型别名
type Field = slog.Attr

// String 创建字符串字段
func String(k, v string) Field {
	return slog.String(k, v)
}

// Int 创建整数字段
func Int(k string, v int) Field {
	return slog.Int(k, v)
}

// Int64 创建64位整数字段
func Int64(k string, v int64) Field {
	return slog.Int64(k, v)
}

// Uint64 创建无符号64位整数字段，ID 类字段使用
func Uint64(k string, v uint64) Field {
	return slog.Uint64(k, v)
}

// Float64 创建浮点数字段
func Float64(k string, v float64) Field {
	return slog.Float64(k, v)
}

// Bool 创建布尔字段
func Bool(k string, v bool) Field {
	return slog.Bool(k, v)
}

// Time 创建时间字段
func Time(k string, v time.Time) Field {
	return slog.Time(k, v)
}

// Duration 创建时间长度字段
func Duration(k string, v time.Duration) Field {
	return slog.Duration(k, v)
}

// Any 创建任意类型字段
func Any(k string, v any) Field {
	return slog.Any(k, v)
}

// Error 错误字段
//
// 只输出错误消息；如果错误链上带有 xerrors 错误码，同时输出 err_code。
//
//	logger.Error("allocate failed", clog.Error(err))
//	// err_msg="[no_available_worker_id] idgen: no available worker id" err_code=no_available_worker_id
func Error(err error) Field {
	if err == nil {
		return slog.Attr{}
	}
	if code := xerrors.GetCode(err); code != "" {
		return slog.Group("",
			slog.String("err_msg", err.Error()),
			slog.String("err_code", code),
		)
	}
	return slog.String("err_msg", err.Error())
}

// ErrorWithCode 包含显式错误码的错误字段
//
// 产生嵌套结构：error={msg="...", code="..."}
func ErrorWithCode(err error, code string) Field {
	if err == nil {
		return slog.Group("error", slog.String("code", code))
	}
	return slog.Group("error",
		slog.String("msg", err.Error()),
		slog.String("code", code),
	)
}

// ErrorWithStack 包含错误消息、类型和堆栈的字段，仅用于排查问题
func ErrorWithStack(err error) Field {
	if err == nil {
		return slog.Attr{}
	}
	attrs := []any{
		slog.String("msg", err.Error()),
		slog.String("type", fmt.Sprintf("%T", err)),
	}
	// 跳过 runtime.Callers、getStackTrace 和 ErrorWithStack
	if stack := getStackTrace(3); stack != "" {
		attrs = append(attrs, slog.String("stack", stack))
	}
	return slog.Group("error", attrs...)
}

func getStackTrace(skip int) string {
	var pcs [32]uintptr
	n := runtime.Callers(skip, pcs[:])
	if n == 0 {
		return ""
	}

	var builder strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&builder, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return builder.String()
}
