package ratelimit

import "github.com/ceyewan/shorturl/xerrors"

// 错误定义
var (
	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = xerrors.New("ratelimit: invalid config")

	// ErrConnectorNil 连接器为空
	ErrConnectorNil = xerrors.New("ratelimit: connector is nil")

	// ErrKeyEmpty 限流键为空
	ErrKeyEmpty = xerrors.New("ratelimit: key is empty")

	// ErrInvalidLimit 限流规则无效
	ErrInvalidLimit = xerrors.New("ratelimit: invalid limit")

	// ErrCircuitOpen Redis 熔断打开，本次检查未执行
	ErrCircuitOpen = xerrors.New("ratelimit: circuit breaker open")
)
