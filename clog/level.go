package clog

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level 日志级别，数值与 slog.Level 对齐，Fatal 在 Error 之上再加 4
type Level int

const (
	DebugLevel = Level(slog.LevelDebug)
	InfoLevel  = Level(slog.LevelInfo)
	WarnLevel  = Level(slog.LevelWarn)
	ErrorLevel = Level(slog.LevelError)
	FatalLevel = Level(slog.LevelError + 4)
)

var levelNames = map[Level]string{
	DebugLevel: "debug",
	InfoLevel:  "info",
	WarnLevel:  "warn",
	ErrorLevel: "error",
	FatalLevel: "fatal",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel 不区分大小写地解析级别名称，未知名称返回 InfoLevel 和错误
//
//	level, err := clog.ParseLevel("WARN")
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for level, n := range levelNames {
		if n == name {
			return level, nil
		}
	}
	return InfoLevel, fmt.Errorf("unknown log level: %s", s)
}

func (l Level) slogLevel() slog.Level {
	return slog.Level(l)
}
