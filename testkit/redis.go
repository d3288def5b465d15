package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/shorturl/connector"
)

// GetRedisConfig 返回 Redis 测试配置
//
// 默认连接 localhost:6379，可通过 SHORTURL_TEST_REDIS_ADDR 覆盖。
func GetRedisConfig() *connector.RedisConfig {
	return &connector.RedisConfig{
		Name:           "test-redis",
		Addr:           envOr("SHORTURL_TEST_REDIS_ADDR", "localhost:6379"),
		DB:             1, // 使用 DB 1 避免与默认的 DB 0 冲突
		PoolSize:       10,
		ConnectTimeout: 2 * time.Second,
		DialTimeout:    time.Second,
	}
}

// GetRedisConnector 获取已连接的 Redis 连接器，Redis 不可达时跳过测试
func GetRedisConnector(t *testing.T) connector.RedisConnector {
	t.Helper()
	conn, err := connector.NewRedis(GetRedisConfig(), connector.WithLogger(NewLogger()))
	if err != nil {
		t.Fatalf("failed to create redis connector: %v", err)
	}

	if err := conn.Connect(context.Background()); err != nil {
		_ = conn.Close()
		t.Skipf("redis is not available: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}

// GetRedisClient 获取原生 Redis 客户端
func GetRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	return GetRedisConnector(t).GetClient()
}
