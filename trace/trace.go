// Package trace 初始化 OpenTelemetry 链路追踪，并提供发号链路上使用的 Span 工具。
//
// 基本使用：
//
//	shutdown, err := trace.Init(&cfg.Trace)
//	if err != nil {
//		panic(err)
//	}
//	defer shutdown(context.Background())
//
//	engine.Use(trace.GinMiddleware("idserver"))
package trace

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"

	"github.com/ceyewan/shorturl/xerrors"
)

// ShutdownFunc 刷新并关闭 TracerProvider
type ShutdownFunc func(context.Context) error

// Init 初始化全局 TracerProvider 和 TextMapPropagator
//
// cfg.Enabled 为 false 时等价于 Discard(cfg.ServiceName)。
func Init(cfg *Config) (ShutdownFunc, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "trace: config is nil")
	}
	if !cfg.Enabled {
		return Discard(cfg.ServiceName)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	ctx := context.Background()
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithTimeout(5 * time.Second),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, xerrors.Wrap(err, "trace: create otlp exporter")
	}

	res, err := newResource(ctx, cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Sampler))),
	}
	if cfg.Batcher == BatcherSimple {
		tpOpts = append(tpOpts, sdktrace.WithSyncer(exporter))
	} else {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	install(tp)
	return tp.Shutdown, nil
}

// Discard 创建不导出的 TracerProvider，仅生成 TraceID 供日志关联
func Discard(serviceName string) (ShutdownFunc, error) {
	res, err := newResource(context.Background(), serviceName)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	install(tp)
	return tp.Shutdown, nil
}

func newResource(ctx context.Context, serviceName string) (*resource.Resource, error) {
	var opts []resource.Option
	if serviceName != "" {
		opts = append(opts, resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	}
	res, err := resource.New(ctx, opts...)
	if err != nil {
		return nil, xerrors.Wrap(err, "trace: create resource")
	}
	return res, nil
}

func install(tp *sdktrace.TracerProvider) {
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}
