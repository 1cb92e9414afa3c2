package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// 默认锁过期时间
	defaultLockTTL = 10 * time.Second

	// 等待锁时的轮询间隔
	lockRetryInterval = 50 * time.Millisecond
)

// Lock 分布式锁
// value 为 UUID，解锁与续期通过 Lua 脚本校验持有者
type Lock struct {
	client *Client
	key    string
	value  string
	ttl    time.Duration
}

// NewLock 创建分布式锁
func NewLock(client *Client, key string, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Lock{
		client: client,
		key:    key,
		value:  uuid.New().String(),
		ttl:    ttl,
	}
}

// Key 返回锁的键
func (l *Lock) Key() string { return l.key }

// TryLock 尝试获取锁（非阻塞）
func (l *Lock) TryLock(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.value, l.ttl)
	if err != nil {
		return false, fmt.Errorf("failed to try lock: %w", err)
	}
	return ok, nil
}

// Lock 获取锁，失败立即返回 ErrLockFailed
func (l *Lock) Lock(ctx context.Context) error {
	ok, err := l.TryLock(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockFailed
	}
	return nil
}

// LockWait 在等待窗口内轮询获取锁
// 超过 waitTimeout 仍未获取则返回 ErrLockFailed
func (l *Lock) LockWait(ctx context.Context, waitTimeout time.Duration) error {
	deadline := time.Now().Add(waitTimeout)

	for {
		ok, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		if time.Now().After(deadline) {
			return ErrLockFailed
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

// Unlock 释放锁，仅持有者可释放
func (l *Lock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`

	result, err := l.client.Eval(ctx, script, []string{l.key}, l.value)
	if err != nil {
		return fmt.Errorf("failed to unlock: %w", err)
	}

	if n, ok := result.(int64); !ok || n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Refresh 续期锁的过期时间，仅持有者可续期
func (l *Lock) Refresh(ctx context.Context) error {
	script := `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`

	result, err := l.client.Eval(ctx, script, []string{l.key}, l.value, l.ttl.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to refresh lock: %w", err)
	}

	if n, ok := result.(int64); !ok || n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// AcquireLock 获取命名锁
// holdTTL 为锁的自动过期时间，waitTimeout 为最长等待时间
func (c *Client) AcquireLock(ctx context.Context, key string, holdTTL, waitTimeout time.Duration) (*Lock, error) {
	lock := NewLock(c, key, holdTTL)

	if waitTimeout <= 0 {
		if err := lock.Lock(ctx); err != nil {
			return nil, err
		}
		return lock, nil
	}

	if err := lock.LockWait(ctx, waitTimeout); err != nil {
		return nil, err
	}
	return lock, nil
}

// WithLock 在锁的保护下执行函数
// 未能获取锁时返回 ErrLockFailed，不执行 fn
func (c *Client) WithLock(ctx context.Context, key string, holdTTL, waitTimeout time.Duration, fn func() error) error {
	lock, err := c.AcquireLock(ctx, key, holdTTL, waitTimeout)
	if err != nil {
		return err
	}

	defer func() {
		// 锁已自动过期时忽略
		_ = lock.Unlock(context.WithoutCancel(ctx))
	}()

	return fn()
}

// IsLocked 检查锁是否被持有
func (c *Client) IsLocked(ctx context.Context, key string) (bool, error) {
	_, err := c.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check lock: %w", err)
	}
	return true, nil
}
