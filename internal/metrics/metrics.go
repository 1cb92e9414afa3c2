package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// GameMetrics 经济核心服务指标
type GameMetrics struct {
	namespace string

	// 数据库指标
	DBQueryTotal    *prometheus.CounterVec   // 数据库查询总数（按操作、结果）
	DBQueryDuration *prometheus.HistogramVec // 数据库查询延迟

	// 缓存指标
	CacheHitTotal  *prometheus.CounterVec // 缓存命中（按缓存类型）
	CacheMissTotal *prometheus.CounterVec // 缓存未命中（按缓存类型）

	// 业务指标
	SummonTotal    *prometheus.CounterVec // 召唤总数（按结果：normal/pity）
	FusionTotal    *prometheus.CounterVec // 融合总数（按结果：success/failure）
	ResourceGrants *prometheus.CounterVec // 资源发放总额（按资源）
	LockFailures   prometheus.Counter     // 分布式锁获取失败次数
	BreakerState   prometheus.Gauge       // 熔断器状态（0 closed, 1 open, 2 half-open）
}

// New 创建指标集合
func New(namespace string) *GameMetrics {
	if namespace == "" {
		namespace = "rikicore"
	}

	return &GameMetrics{
		namespace: namespace,

		DBQueryTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_queries_total",
				Help:      "数据库查询总数",
			},
			[]string{"operation", "result"},
		),
		DBQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "数据库查询延迟",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		CacheHitTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "缓存命中总数",
			},
			[]string{"cache_type"},
		),
		CacheMissTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "缓存未命中总数",
			},
			[]string{"cache_type"},
		),
		SummonTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "summons_total",
				Help:      "召唤总数",
			},
			[]string{"result"},
		),
		FusionTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fusions_total",
				Help:      "融合总数",
			},
			[]string{"result"},
		),
		ResourceGrants: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resource_grants_total",
				Help:      "资源发放总额",
			},
			[]string{"resource"},
		),
		LockFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lock_failures_total",
				Help:      "分布式锁获取失败次数",
			},
		),
		BreakerState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cache_breaker_state",
				Help:      "缓存熔断器状态（0 closed, 1 open, 2 half-open）",
			},
		),
	}
}

// Register 注册指标到 Prometheus Registry
func (m *GameMetrics) Register(registerer prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.DBQueryTotal,
		m.DBQueryDuration,
		m.CacheHitTotal,
		m.CacheMissTotal,
		m.SummonTotal,
		m.FusionTotal,
		m.ResourceGrants,
		m.LockFailures,
		m.BreakerState,
	}

	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RecordDBQuery 记录数据库查询
func (m *GameMetrics) RecordDBQuery(operation string, success bool, duration float64) {
	result := "success"
	if !success {
		result = "failed"
	}
	m.DBQueryTotal.WithLabelValues(operation, result).Inc()
	m.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// RecordCacheHit 记录缓存命中
func (m *GameMetrics) RecordCacheHit(cacheType string) {
	m.CacheHitTotal.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (m *GameMetrics) RecordCacheMiss(cacheType string) {
	m.CacheMissTotal.WithLabelValues(cacheType).Inc()
}

// RecordSummon 记录召唤结果
func (m *GameMetrics) RecordSummon(pity bool) {
	result := "normal"
	if pity {
		result = "pity"
	}
	m.SummonTotal.WithLabelValues(result).Inc()
}

// RecordFusion 记录融合结果
func (m *GameMetrics) RecordFusion(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	m.FusionTotal.WithLabelValues(result).Inc()
}

// RecordResourceGrant 记录资源发放
func (m *GameMetrics) RecordResourceGrant(resource string, amount int64) {
	if amount > 0 {
		m.ResourceGrants.WithLabelValues(resource).Add(float64(amount))
	}
}

// RecordLockFailure 记录锁获取失败
func (m *GameMetrics) RecordLockFailure() {
	m.LockFailures.Inc()
}

// RecordBreakerState 记录熔断器状态
func (m *GameMetrics) RecordBreakerState(state int32) {
	m.BreakerState.Set(float64(state))
}
