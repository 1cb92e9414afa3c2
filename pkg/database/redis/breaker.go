package redis

import (
	"sync"
	"time"
)

// BreakerState 熔断器状态
type BreakerState int32

const (
	// BreakerClosed 关闭状态，请求正常通过
	BreakerClosed BreakerState = iota
	// BreakerOpen 打开状态，请求直接拒绝
	BreakerOpen
	// BreakerHalfOpen 半开状态，放行单个探测请求
	BreakerHalfOpen
)

// String 返回状态名
func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Breaker 熔断器
// 连续失败达到阈值后打开，恢复窗口到期后放行单个探测请求，
// 探测成功则关闭，失败则重新打开并重置恢复窗口
type Breaker struct {
	mu sync.Mutex

	failureThreshold int
	recoveryTimeout  time.Duration

	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool

	// onStateChange 状态变化回调（可选）
	onStateChange func(from, to BreakerState)

	// now 可注入时钟，测试使用
	now func() time.Time
}

// NewBreaker 创建熔断器
func NewBreaker(cfg BreakerConfig) *Breaker {
	threshold := cfg.FailureThreshold
	if threshold <= 0 {
		threshold = 5
	}
	timeout := cfg.RecoveryTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Breaker{
		failureThreshold: threshold,
		recoveryTimeout:  timeout,
		state:            BreakerClosed,
		now:              time.Now,
	}
}

// OnStateChange 注册状态变化回调
func (b *Breaker) OnStateChange(fn func(from, to BreakerState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStateChange = fn
}

// State 返回当前状态
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Execute 执行受熔断保护的操作
// 熔断打开期间直接返回 ErrCircuitOpen，不触发底层调用
func (b *Breaker) Execute(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}

	err := fn()
	b.record(err)
	return err
}

// allow 判断请求是否放行
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.recoveryTimeout {
			return ErrCircuitOpen
		}
		// 恢复窗口到期，转为半开并放行本次请求作为探测
		b.transition(BreakerHalfOpen)
		b.probing = true
		return nil
	case BreakerHalfOpen:
		// 半开状态只允许一个在途探测
		if b.probing {
			return ErrCircuitOpen
		}
		b.probing = true
		return nil
	}
	return nil
}

// record 记录执行结果并驱动状态迁移
func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerHalfOpen {
		b.probing = false
		if err != nil {
			b.openedAt = b.now()
			b.transition(BreakerOpen)
			return
		}
		b.failures = 0
		b.transition(BreakerClosed)
		return
	}

	if err != nil {
		b.failures++
		if b.failures >= b.failureThreshold {
			b.openedAt = b.now()
			b.transition(BreakerOpen)
		}
		return
	}

	b.failures = 0
}

// transition 状态迁移并触发回调
func (b *Breaker) transition(to BreakerState) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.onStateChange != nil {
		b.onStateChange(from, to)
	}
}
