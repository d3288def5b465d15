// Package connector 为 shorturl 管理外部存储连接，目前提供 Redis 与 Etcd。
//
// 两者都只服务于 worker_id 的租约分配（见 idgen.Allocator）。
//
// 基本使用：
//
//	conn, err := connector.NewRedis(&connector.RedisConfig{Addr: "127.0.0.1:6379"},
//		connector.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//
//	if err := conn.Connect(ctx); err != nil {
//		return err
//	}
//	client := conn.GetClient()
//
// 资源所有权：Connector 拥有底层连接，组件（idgen 分配器）只借用，不调用 Close。
package connector

import (
	"context"

	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Connector 定义所有连接器的通用行为，方法均为并发安全
type Connector interface {
	// Connect 建立连接，可重复调用
	Connect(ctx context.Context) error

	// Close 关闭连接并释放资源，可重复调用
	Close() error

	// HealthCheck 发送测试请求并更新健康状态缓存
	HealthCheck(ctx context.Context) error

	// IsHealthy 返回最后一次检查的结果
	IsHealthy() bool

	// Name 返回连接器名称，用于日志与指标
	Name() string
}

// TypedConnector 提供类型安全的客户端访问
type TypedConnector[T any] interface {
	Connector

	// GetClient 返回底层客户端，Close 之后不应再使用
	GetClient() T
}

// RedisConnector Redis 连接器
type RedisConnector interface {
	TypedConnector[*redis.Client]
}

// EtcdConnector Etcd 连接器
type EtcdConnector interface {
	TypedConnector[*clientv3.Client]
}
