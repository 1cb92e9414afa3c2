package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/rikirpg/rikicore/internal/metrics"
	"github.com/rikirpg/rikicore/internal/model"
	"github.com/rikirpg/rikicore/pkg/database/redis"
	"github.com/rikirpg/rikicore/pkg/logger"
)

// 缓存键前缀
const (
	cacheKeyPlayer = "rikicore:player:" // 玩家快照
	cacheKeyRates  = "rikicore:rates:"  // 按等级的召唤概率表
)

// 缓存过期时间
const (
	playerCacheTTL = 5 * time.Minute
	ratesCacheTTL  = 10 * time.Minute
)

// CacheDAO 缓存数据访问对象
// 缓存不可用（熔断打开、连接失败）时读按未命中处理，写静默跳过
type CacheDAO struct {
	rdb     *redis.Client
	logger  logger.Logger
	metrics *metrics.GameMetrics
}

// NewCacheDAO 创建缓存 DAO
func NewCacheDAO(rdb *redis.Client, l logger.Logger, m *metrics.GameMetrics) *CacheDAO {
	return &CacheDAO{
		rdb:     rdb,
		logger:  l.Named("dao.cache"),
		metrics: m,
	}
}

// GetPlayer 获取玩家快照，未命中或缓存不可用返回 nil
func (d *CacheDAO) GetPlayer(ctx context.Context, playerID int64) *model.Player {
	key := fmt.Sprintf("%s%d", cacheKeyPlayer, playerID)

	data, err := d.rdb.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.ErrNil) {
			d.logger.Debug("player cache read degraded", "player_id", playerID, "error", err)
		}
		d.metrics.RecordCacheMiss("player")
		return nil
	}

	var player model.Player
	if err := json.Unmarshal([]byte(data), &player); err != nil {
		d.logger.Warn("corrupted player cache entry", "player_id", playerID, "error", err)
		d.metrics.RecordCacheMiss("player")
		return nil
	}

	d.metrics.RecordCacheHit("player")
	return &player
}

// SetPlayer 写入玩家快照
func (d *CacheDAO) SetPlayer(ctx context.Context, player *model.Player) {
	key := fmt.Sprintf("%s%d", cacheKeyPlayer, player.ID)

	data, err := json.Marshal(player)
	if err != nil {
		d.logger.Warn("failed to marshal player for cache", "player_id", player.ID, "error", err)
		return
	}

	if err := d.rdb.Set(ctx, key, data, playerCacheTTL); err != nil {
		d.logger.Debug("player cache write degraded", "player_id", player.ID, "error", err)
	}
}

// InvalidatePlayer 使玩家快照失效
// 写事务提交后调用，失败只记录，下一次读会穿透到数据库
func (d *CacheDAO) InvalidatePlayer(ctx context.Context, playerID int64) {
	key := fmt.Sprintf("%s%d", cacheKeyPlayer, playerID)
	if _, err := d.rdb.Del(ctx, key); err != nil {
		d.logger.Debug("player cache invalidation degraded", "player_id", playerID, "error", err)
	}
}

// GetRates 获取某等级的召唤概率表，未命中返回 nil
func (d *CacheDAO) GetRates(ctx context.Context, level int32) map[int32]float64 {
	key := fmt.Sprintf("%s%d", cacheKeyRates, level)

	data, err := d.rdb.Get(ctx, key)
	if err != nil {
		d.metrics.RecordCacheMiss("rates")
		return nil
	}

	var rates map[int32]float64
	if err := json.Unmarshal([]byte(data), &rates); err != nil {
		d.metrics.RecordCacheMiss("rates")
		return nil
	}

	d.metrics.RecordCacheHit("rates")
	return rates
}

// SetRates 写入某等级的召唤概率表
func (d *CacheDAO) SetRates(ctx context.Context, level int32, rates map[int32]float64) {
	key := fmt.Sprintf("%s%d", cacheKeyRates, level)

	data, err := json.Marshal(rates)
	if err != nil {
		return
	}

	if err := d.rdb.Set(ctx, key, data, ratesCacheTTL); err != nil {
		d.logger.Debug("rates cache write degraded", "level", level, "error", err)
	}
}
