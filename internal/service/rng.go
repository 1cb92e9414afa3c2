package service

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand"
	"sync"
)

// RandomSource 随机数来源
// 掉落与成败判定只依赖此接口，测试注入确定性实现
type RandomSource interface {
	// Float64 返回 [0.0, 1.0) 区间的随机数
	Float64() float64
	// IntN 返回 [0, n) 区间的随机整数，n 必须为正
	IntN(n int) int
}

// cryptoRNG 默认实现，基于 crypto/rand
type cryptoRNG struct{}

// NewCryptoRNG 创建加密安全的随机数来源
func NewCryptoRNG() RandomSource {
	return &cryptoRNG{}
}

// Float64 取 53 位随机尾数构造 [0,1) 浮点数
func (c *cryptoRNG) Float64() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand 不可用时进程已不可信，直接中止
		panic("crypto/rand unavailable: " + err.Error())
	}
	n := binary.BigEndian.Uint64(buf[:]) >> 11
	return float64(n) / (1 << 53)
}

func (c *cryptoRNG) IntN(n int) int {
	return int(c.Float64() * float64(n))
}

// seededRNG 可复现实现，测试与模拟使用
type seededRNG struct {
	mu  sync.Mutex
	rng *mathrand.Rand
}

// NewSeededRNG 创建带种子的随机数来源
func NewSeededRNG(seed int64) RandomSource {
	return &seededRNG{rng: mathrand.New(mathrand.NewSource(seed))}
}

func (s *seededRNG) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *seededRNG) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}
