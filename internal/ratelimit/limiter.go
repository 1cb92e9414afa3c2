package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rikirpg/rikicore/internal/gameerr"
	"github.com/rikirpg/rikicore/pkg/logger"
)

// 默认限流参数：每个玩家每种动作每秒 2 次，突发 5 次
const (
	defaultRate  = rate.Limit(2)
	defaultBurst = 5
)

// bucket 带活跃时间的令牌桶，便于清理长期不活跃的玩家
type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter 按 (玩家, 动作) 维度限流
// 超限返回带重试间隔的 CooldownError 而不是阻塞等待
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	defaultLimit rate.Limit
	defaultBurst int
	perAction    map[string]ActionLimit
	log          logger.Logger
	now          func() time.Time
}

// ActionLimit 单个动作的限流参数
type ActionLimit struct {
	Rate  rate.Limit
	Burst int
}

// Option Limiter 选项
type Option func(*Limiter)

// WithDefaults 覆盖默认限流参数
func WithDefaults(limit rate.Limit, burst int) Option {
	return func(l *Limiter) {
		l.defaultLimit = limit
		l.defaultBurst = burst
	}
}

// WithActionLimit 为某个动作设置独立限流参数
func WithActionLimit(action string, limit rate.Limit, burst int) Option {
	return func(l *Limiter) {
		l.perAction[action] = ActionLimit{Rate: limit, Burst: burst}
	}
}

// New 创建限流器
func New(log logger.Logger, opts ...Option) *Limiter {
	l := &Limiter{
		buckets:      make(map[string]*bucket),
		defaultLimit: defaultRate,
		defaultBurst: defaultBurst,
		perAction:    make(map[string]ActionLimit),
		log:          log.Named("ratelimit"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow 消耗一个令牌，超限返回 CooldownError
func (l *Limiter) Allow(playerID int64, action string) error {
	l.mu.Lock()
	b := l.bucketFor(playerID, action)
	b.lastSeen = l.now()
	reservation := b.limiter.ReserveN(l.now(), 1)
	l.mu.Unlock()

	if !reservation.OK() {
		return gameerr.NewCooldown(action, time.Second)
	}
	delay := reservation.DelayFrom(l.now())
	if delay > 0 {
		reservation.CancelAt(l.now())
		l.log.Debug("action rate limited", "player_id", playerID, "action", action, "retry_after", delay)
		return gameerr.NewCooldown(action, delay)
	}
	return nil
}

// Prune 清理长期不活跃的令牌桶，返回清理个数
func (l *Limiter) Prune(idle time.Duration) int {
	cutoff := l.now().Add(-idle)

	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// bucketFor 调用方必须持有 l.mu
func (l *Limiter) bucketFor(playerID int64, action string) *bucket {
	key := fmt.Sprintf("%d:%s", playerID, action)
	if b, ok := l.buckets[key]; ok {
		return b
	}

	limit, burst := l.defaultLimit, l.defaultBurst
	if al, ok := l.perAction[action]; ok {
		limit, burst = al.Rate, al.Burst
	}
	b := &bucket{limiter: rate.NewLimiter(limit, burst)}
	l.buckets[key] = b
	return b
}
