package redis

import "github.com/cockroachdb/errors"

var (
	// ErrNilConfig 配置为空
	ErrNilConfig = errors.New("redis: config is nil")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("redis: invalid config")

	// ErrNil 键不存在
	ErrNil = errors.New("redis: nil")

	// ErrLockFailed 获取锁失败（锁被其他持有者占用）
	ErrLockFailed = errors.New("redis: failed to acquire lock")

	// ErrLockNotHeld 解锁时发现锁不存在或已被其他持有者占用
	ErrLockNotHeld = errors.New("redis: lock not held")

	// ErrCircuitOpen 熔断器打开，请求被拒绝
	ErrCircuitOpen = errors.New("redis: circuit breaker is open")
)
