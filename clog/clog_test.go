package clog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/shorturl/xerrors"
)

func newBufferLogger(t *testing.T, level, format string, opts ...Option) (Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	logger, err := New(&Config{Level: level, Format: format, Output: "buffer"}, append(opts, withBuffer(buf))...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return logger, buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("日志不是合法 JSON: %v, line = %q", err, line)
	}
	return entry
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{"valid config", &Config{Level: "info", Format: "console", Output: "stdout"}, false},
		{"nil config", nil, false},
		{"empty config uses defaults", &Config{}, false},
		{"invalid level", &Config{Level: "invalid", Format: "console", Output: "stdout"}, true},
		{"invalid format", &Config{Level: "info", Format: "xml", Output: "stdout"}, true},
		{"buffer without option", &Config{Level: "info", Format: "json", Output: "buffer"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() 返回 nil Logger")
			}
		})
	}
}

func TestLogger_JSONOutput(t *testing.T) {
	logger, buf := newBufferLogger(t, "info", "json")

	logger.Info("id issued", Uint64("id", 1234567890), String("mode", "serialized"))

	entry := decodeLine(t, buf)
	if entry["msg"] != "id issued" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %v, 期望 INFO", entry["level"])
	}
	if entry["mode"] != "serialized" {
		t.Errorf("mode = %v", entry["mode"])
	}
	if entry["id"] != float64(1234567890) {
		t.Errorf("id = %v", entry["id"])
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	logger, buf := newBufferLogger(t, "warn", "json")

	logger.Debug("debug")
	logger.Info("info")
	if buf.Len() != 0 {
		t.Fatalf("低于 warn 的日志不应输出: %q", buf.String())
	}

	logger.Warn("warn")
	if !strings.Contains(buf.String(), `"level":"WARN"`) {
		t.Errorf("缺少 WARN 日志: %q", buf.String())
	}
}

func TestLogger_SetLevel(t *testing.T) {
	logger, buf := newBufferLogger(t, "info", "json")
	child := logger.With(String("component", "idgen"))

	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info 级别下 Debug 不应输出")
	}

	if err := logger.SetLevel(DebugLevel); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	// 子 Logger 共享 handler，级别同时生效
	child.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("SetLevel 后子 Logger 的 Debug 应输出: %q", buf.String())
	}
}

func TestLogger_WithAndNamespace(t *testing.T) {
	logger, buf := newBufferLogger(t, "info", "json", WithNamespace("shorturl"))

	logger.WithNamespace("idgen").With(String("component", "sharded")).Info("started")

	entry := decodeLine(t, buf)
	if entry[NamespaceKey] != "shorturl.idgen" {
		t.Errorf("namespace = %v, 期望 shorturl.idgen", entry[NamespaceKey])
	}
	if entry["component"] != "sharded" {
		t.Errorf("component = %v", entry["component"])
	}

	// 父 Logger 的命名空间不受子 Logger 影响
	buf.Reset()
	logger.Info("parent")
	entry = decodeLine(t, buf)
	if entry[NamespaceKey] != "shorturl" {
		t.Errorf("父 Logger namespace = %v, 期望 shorturl", entry[NamespaceKey])
	}
}

type requestIDKey struct{}

func TestLogger_ContextFields(t *testing.T) {
	logger, buf := newBufferLogger(t, "info", "json",
		WithContextField(requestIDKey{}, "request_id"),
		WithTraceContext(),
	)

	ctx := context.WithValue(context.Background(), requestIDKey{}, "req-1")
	logger.InfoContext(ctx, "handled")

	entry := decodeLine(t, buf)
	if entry["request_id"] != "req-1" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
	if _, ok := entry["trace_id"]; ok {
		t.Error("Context 中没有 Span 时不应输出 trace_id")
	}

	traceID, _ := oteltrace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := oteltrace.SpanIDFromHex("00f067aa0ba902b7")
	ctx = oteltrace.ContextWithSpanContext(ctx, oteltrace.NewSpanContext(oteltrace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	buf.Reset()
	logger.InfoContext(ctx, "handled")
	entry = decodeLine(t, buf)
	if entry["trace_id"] != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("trace_id = %v", entry["trace_id"])
	}
	if entry["span_id"] != "00f067aa0ba902b7" {
		t.Errorf("span_id = %v", entry["span_id"])
	}
}

func TestErrorField(t *testing.T) {
	logger, buf := newBufferLogger(t, "info", "json")

	logger.Error("plain", Error(errors.New("boom")))
	entry := decodeLine(t, buf)
	if entry["err_msg"] != "boom" {
		t.Errorf("err_msg = %v", entry["err_msg"])
	}
	if _, ok := entry["err_code"]; ok {
		t.Error("无错误码时不应输出 err_code")
	}

	buf.Reset()
	logger.Error("coded", Error(xerrors.WithCode(errors.New("out of range"), "worker_id_out_of_range")))
	entry = decodeLine(t, buf)
	if entry["err_code"] != "worker_id_out_of_range" {
		t.Errorf("err_code = %v", entry["err_code"])
	}

	buf.Reset()
	logger.Error("nil error", Error(nil))
	entry = decodeLine(t, buf)
	if _, ok := entry["err_msg"]; ok {
		t.Error("nil 错误不应输出 err_msg")
	}
}

func TestConsoleOutputWithSource(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(&Config{Level: "info", Format: "console", Output: "buffer", AddSource: true, SourceRoot: "clog"}, withBuffer(buf))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("hello")
	out := buf.String()
	if !strings.Contains(out, "level=INFO") {
		t.Errorf("console 输出缺少 level: %q", out)
	}
	if !strings.Contains(out, "caller=clog/clog_test.go:") {
		t.Errorf("caller 应被裁剪到 clog/ 前缀: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"Warn", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"fatal", FatalLevel, false},
		{"verbose", InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
		if !tt.wantErr && got.String() != strings.ToLower(tt.in) {
			t.Errorf("%v.String() = %q", got, got.String())
		}
	}
}

func TestTrimSourcePath(t *testing.T) {
	tests := []struct {
		file, root, want string
	}{
		{"/home/dev/shorturl/idgen/snowflake.go", "shorturl", "shorturl/idgen/snowflake.go"},
		{"/home/dev/shorturl/idgen/snowflake.go", "/home/dev/shorturl", "idgen/snowflake.go"},
		{"/home/dev/shorturl/idgen/snowflake.go", "", "/home/dev/shorturl/idgen/snowflake.go"},
		{"/tmp/other.go", "shorturl", "/tmp/other.go"},
	}
	for _, tt := range tests {
		if got := trimSourcePath(tt.file, tt.root); got != tt.want {
			t.Errorf("trimSourcePath(%q, %q) = %q, 期望 %q", tt.file, tt.root, got, tt.want)
		}
	}
}

func TestDefaultAndDiscard(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() 不应返回 nil")
	}

	custom := Discard()
	SetDefault(custom)
	if Default() != custom {
		t.Error("SetDefault 后 Default() 应返回设置的 Logger")
	}

	// Discard 的所有方法均为空操作
	custom.With(String("k", "v")).WithNamespace("x").Info("nothing")
	if err := custom.SetLevel(DebugLevel); err != nil {
		t.Errorf("Discard().SetLevel() error = %v", err)
	}
	custom.Flush()
}
