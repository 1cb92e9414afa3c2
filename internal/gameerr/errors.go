package gameerr

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
)

// 哨兵错误
var (
	// ErrPlayerNotFound 玩家不存在
	ErrPlayerNotFound = errors.New("player not found")

	// ErrMaidenNotFound 女仆不存在或不属于该玩家
	ErrMaidenNotFound = errors.New("maiden not found")

	// ErrTemplateNotFound 女仆模板不存在
	ErrTemplateNotFound = errors.New("maiden template not found")

	// ErrLockUnavailable 未能在等待窗口内获取分布式锁
	ErrLockUnavailable = errors.New("lock unavailable")

	// ErrCacheUnavailable 缓存不可用（熔断打开或连接失败）
	ErrCacheUnavailable = errors.New("cache unavailable")
)

// InsufficientResourcesError 资源不足
// 校验阶段发现任一资源不足即返回，不做任何扣减
type InsufficientResourcesError struct {
	Resource string
	Required int64
	Current  int64
}

func (e *InsufficientResourcesError) Error() string {
	return fmt.Sprintf("insufficient %s: required %d, current %d", e.Resource, e.Required, e.Current)
}

// NewInsufficientResources 创建资源不足错误
func NewInsufficientResources(resource string, required, current int64) error {
	return errors.WithStack(&InsufficientResourcesError{
		Resource: resource,
		Required: required,
		Current:  current,
	})
}

// InvalidOperationError 操作在当前状态下不合法
type InvalidOperationError struct {
	Operation string
	Reason    string
}

func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("invalid operation %s: %s", e.Operation, e.Reason)
}

// NewInvalidOperation 创建非法操作错误
func NewInvalidOperation(operation, reason string) error {
	return errors.WithStack(&InvalidOperationError{
		Operation: operation,
		Reason:    reason,
	})
}

// ConfigError 配置读取或解析失败
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for %q: %s", e.Key, e.Reason)
}

// NewConfigError 创建配置错误
func NewConfigError(key, reason string) error {
	return errors.WithStack(&ConfigError{Key: key, Reason: reason})
}

// CooldownError 操作处于冷却期
type CooldownError struct {
	Action     string
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("action %s on cooldown, retry after %s", e.Action, e.RetryAfter)
}

// NewCooldown 创建冷却错误
func NewCooldown(action string, retryAfter time.Duration) error {
	return errors.WithStack(&CooldownError{Action: action, RetryAfter: retryAfter})
}

// IsInsufficientResources 判断是否为资源不足错误
func IsInsufficientResources(err error) bool {
	var target *InsufficientResourcesError
	return errors.As(err, &target)
}

// AsInsufficientResources 提取资源不足错误详情
func AsInsufficientResources(err error) (*InsufficientResourcesError, bool) {
	var target *InsufficientResourcesError
	ok := errors.As(err, &target)
	return target, ok
}

// IsInvalidOperation 判断是否为非法操作错误
func IsInvalidOperation(err error) bool {
	var target *InvalidOperationError
	return errors.As(err, &target)
}

// IsCooldown 判断是否为冷却错误
func IsCooldown(err error) bool {
	var target *CooldownError
	return errors.As(err, &target)
}
