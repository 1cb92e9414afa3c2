package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rikirpg/rikicore/internal/gameerr"
	"github.com/rikirpg/rikicore/internal/metrics"
	"github.com/rikirpg/rikicore/pkg/database/redis"
	"github.com/rikirpg/rikicore/pkg/logger"
)

// newOpenBreakerRepo 返回缓存熔断器已打开的仓储
// 熔断器通过一次注入失败打开，不依赖真实 Redis 连接
func newOpenBreakerRepo(t *testing.T) GameRepository {
	t.Helper()

	cfg := redis.DefaultConfig()
	cfg.Breaker.FailureThreshold = 1
	cfg.Breaker.RecoveryTimeout = time.Hour

	rdb, err := redis.NewClient(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	require.Error(t, rdb.Breaker().Execute(func() error { return assert.AnError }))
	require.Equal(t, redis.BreakerOpen, rdb.Breaker().State())

	return New(nil, rdb, logger.NewNoop(), metrics.New("rikicore_repository_test"))
}

func TestWithPlayerLockRejectsWhenBreakerOpen(t *testing.T) {
	repo := newOpenBreakerRepo(t)

	ran := false
	err := repo.WithPlayerLock(context.Background(), 42, func() error {
		ran = true
		return nil
	})

	assert.ErrorIs(t, err, gameerr.ErrLockUnavailable)
	assert.False(t, ran, "critical section must not run without the lock")
}
