package testkit

import (
	"context"
	"strings"
	"testing"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/shorturl/connector"
)

// GetEtcdConfig 返回 Etcd 测试配置
//
// 默认连接 localhost:2379，可通过 SHORTURL_TEST_ETCD_ENDPOINTS（逗号分隔）覆盖。
func GetEtcdConfig() *connector.EtcdConfig {
	return &connector.EtcdConfig{
		Name:           "test-etcd",
		Endpoints:      strings.Split(envOr("SHORTURL_TEST_ETCD_ENDPOINTS", "localhost:2379"), ","),
		ConnectTimeout: 2 * time.Second,
		DialTimeout:    time.Second,
	}
}

// GetEtcdConnector 获取已连接的 Etcd 连接器，Etcd 不可达时跳过测试
func GetEtcdConnector(t *testing.T) connector.EtcdConnector {
	t.Helper()
	conn, err := connector.NewEtcd(GetEtcdConfig(), connector.WithLogger(NewLogger()))
	if err != nil {
		t.Fatalf("failed to create etcd connector: %v", err)
	}

	if err := conn.Connect(context.Background()); err != nil {
		_ = conn.Close()
		t.Skipf("etcd is not available: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}

// GetEtcdClient 获取原生 Etcd 客户端
func GetEtcdClient(t *testing.T) *clientv3.Client {
	t.Helper()
	return GetEtcdConnector(t).GetClient()
}
