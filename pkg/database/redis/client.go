package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client Redis 客户端（隐藏 go-redis 类型，内置熔断器）
type Client struct {
	rdb     *redis.Client
	breaker *Breaker
	cfg     *Config
}

// NewClient 创建 Redis 客户端
func NewClient(cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &redis.Options{
		Addr:            fmt.Sprintf("%s:%d", cfg.Node.Host, cfg.Node.Port),
		Password:        cfg.Node.Password,
		DB:              cfg.Node.DB,
		MaxIdleConns:    cfg.Pool.MaxIdleConns,
		MaxActiveConns:  cfg.Pool.MaxOpenConns,
		ConnMaxLifetime: cfg.Pool.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Pool.ConnMaxIdleTime,
		DialTimeout:     cfg.Pool.DialTimeout,
		ReadTimeout:     cfg.Pool.ReadTimeout,
		WriteTimeout:    cfg.Pool.WriteTimeout,
		PoolTimeout:     cfg.Pool.PoolTimeout,
	}

	return &Client{
		rdb:     redis.NewClient(opts),
		breaker: NewBreaker(cfg.Breaker),
		cfg:     cfg,
	}, nil
}

// Breaker 返回内置熔断器
func (c *Client) Breaker() *Breaker {
	return c.breaker
}

// do 在熔断保护下执行命令
// redis.Nil 属于正常业务结果，不计入失败
func (c *Client) do(fn func() error) error {
	return c.breaker.Execute(func() error {
		err := fn()
		if err == redis.Nil {
			return nil
		}
		return err
	})
}

// Ping 测试连接
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// PoolStats 连接池统计信息
type PoolStats struct {
	Hits       uint32
	Misses     uint32
	Timeouts   uint32
	TotalConns uint32
	IdleConns  uint32
	StaleConns uint32
}

// Stats 获取连接池统计信息
func (c *Client) Stats() PoolStats {
	stats := c.rdb.PoolStats()
	return PoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
		StaleConns: stats.StaleConns,
	}
}

// Close 关闭客户端
func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	return nil
}
