package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ==================== String 操作 ====================

// Get 获取字符串值，键不存在时返回 ErrNil
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	var val string
	var cmdErr error
	if err := c.do(func() error {
		val, cmdErr = c.rdb.Get(ctx, key).Result()
		return cmdErr
	}); err != nil {
		return "", fmt.Errorf("get failed: %w", err)
	}
	if errors.Is(cmdErr, redis.Nil) {
		return "", ErrNil
	}
	return val, nil
}

// Set 设置字符串值
func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := c.do(func() error {
		return c.rdb.Set(ctx, key, value, expiration).Err()
	}); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

// SetNX 设置字符串值（仅当键不存在时）
func (c *Client) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	var ok bool
	if err := c.do(func() error {
		var err error
		ok, err = c.rdb.SetNX(ctx, key, value, expiration).Result()
		return err
	}); err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	return ok, nil
}

// SetEX 设置字符串值并指定过期时间
func (c *Client) SetEX(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := c.do(func() error {
		return c.rdb.SetEx(ctx, key, value, expiration).Err()
	}); err != nil {
		return fmt.Errorf("setex failed: %w", err)
	}
	return nil
}

// ==================== Key 操作 ====================

// Del 删除键
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	var n int64
	if err := c.do(func() error {
		var err error
		n, err = c.rdb.Del(ctx, keys...).Result()
		return err
	}); err != nil {
		return 0, fmt.Errorf("del failed: %w", err)
	}
	return n, nil
}

// Exists 检查键是否存在
func (c *Client) Exists(ctx context.Context, keys ...string) (int64, error) {
	var n int64
	if err := c.do(func() error {
		var err error
		n, err = c.rdb.Exists(ctx, keys...).Result()
		return err
	}); err != nil {
		return 0, fmt.Errorf("exists failed: %w", err)
	}
	return n, nil
}

// Expire 设置键的过期时间
func (c *Client) Expire(ctx context.Context, key string, expiration time.Duration) (bool, error) {
	var ok bool
	if err := c.do(func() error {
		var err error
		ok, err = c.rdb.Expire(ctx, key, expiration).Result()
		return err
	}); err != nil {
		return false, fmt.Errorf("expire failed: %w", err)
	}
	return ok, nil
}

// TTL 获取键的剩余过期时间
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	var ttl time.Duration
	if err := c.do(func() error {
		var err error
		ttl, err = c.rdb.TTL(ctx, key).Result()
		return err
	}); err != nil {
		return 0, fmt.Errorf("ttl failed: %w", err)
	}
	return ttl, nil
}

// ==================== 计数操作 ====================

// Incr 自增
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	var val int64
	if err := c.do(func() error {
		var err error
		val, err = c.rdb.Incr(ctx, key).Result()
		return err
	}); err != nil {
		return 0, fmt.Errorf("incr failed: %w", err)
	}
	return val, nil
}

// IncrBy 按指定值自增
func (c *Client) IncrBy(ctx context.Context, key string, value int64) (int64, error) {
	var val int64
	if err := c.do(func() error {
		var err error
		val, err = c.rdb.IncrBy(ctx, key, value).Result()
		return err
	}); err != nil {
		return 0, fmt.Errorf("incrby failed: %w", err)
	}
	return val, nil
}

// ==================== Lua 脚本 ====================

// Eval 执行 Lua 脚本
func (c *Client) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	var result interface{}
	if err := c.do(func() error {
		var err error
		result, err = c.rdb.Eval(ctx, script, keys, args...).Result()
		return err
	}); err != nil {
		return nil, fmt.Errorf("eval failed: %w", err)
	}
	return result, nil
}
