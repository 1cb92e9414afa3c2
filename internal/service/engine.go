package service

import (
	"context"

	"github.com/rikirpg/rikicore/internal/model"
	"github.com/rikirpg/rikicore/internal/ratelimit"
	"github.com/rikirpg/rikicore/internal/repository"
	"github.com/rikirpg/rikicore/pkg/database/postgres"
	"github.com/rikirpg/rikicore/pkg/logger"
)

// 限流动作名
const (
	ActionSummon = "summon"
	ActionFusion = "fusion"
	ActionPrayer = "prayer"
	ActionGrant  = "grant"
)

// Engine 游戏核心的调用门面
// 接入层（指令处理、RPC）只依赖这里的方法，入口统一做限流
type Engine struct {
	repo      repository.GameRepository
	players   *PlayerService
	resources *ResourceService
	summons   *SummonService
	fusions   *FusionService
	limiter   *ratelimit.Limiter
	log       logger.Logger
}

// NewEngine 创建门面
func NewEngine(repo repository.GameRepository, players *PlayerService, resources *ResourceService, summons *SummonService, fusions *FusionService, limiter *ratelimit.Limiter, log logger.Logger) *Engine {
	return &Engine{
		repo:      repo,
		players:   players,
		resources: resources,
		summons:   summons,
		fusions:   fusions,
		limiter:   limiter,
		log:       log.Named("engine"),
	}
}

// PerformSummon 单次召唤
func (e *Engine) PerformSummon(ctx context.Context, playerID int64) (*SummonResult, error) {
	if err := e.limiter.Allow(playerID, ActionSummon); err != nil {
		return nil, err
	}
	return e.summons.Summon(ctx, playerID)
}

// BatchSummon 批量召唤
func (e *Engine) BatchSummon(ctx context.Context, playerID int64, count int) (*BatchSummonResult, error) {
	if err := e.limiter.Allow(playerID, ActionSummon); err != nil {
		return nil, err
	}
	return e.summons.BatchSummon(ctx, playerID, count)
}

// ExecuteFusion 融合
func (e *Engine) ExecuteFusion(ctx context.Context, playerID, maidenID1, maidenID2 int64, useShards bool) (*FusionResult, error) {
	if err := e.limiter.Allow(playerID, ActionFusion); err != nil {
		return nil, err
	}
	return e.fusions.Fuse(ctx, playerID, maidenID1, maidenID2, useShards)
}

// PerformPrayer 祈祷
func (e *Engine) PerformPrayer(ctx context.Context, playerID int64) (*PrayerResult, error) {
	if err := e.limiter.Allow(playerID, ActionPrayer); err != nil {
		return nil, err
	}
	return e.players.PerformPrayer(ctx, playerID)
}

// AwardXP 经验入账，触发连升与里程碑
func (e *Engine) AwardXP(ctx context.Context, playerID, amount int64, source string) (*LevelUpResult, error) {
	if err := e.limiter.Allow(playerID, ActionGrant); err != nil {
		return nil, err
	}
	return e.players.AwardXP(ctx, playerID, amount, source)
}

// GrantResources 外部来源的资源发放（任务、活动）
func (e *Engine) GrantResources(ctx context.Context, playerID int64, resources map[string]int64, source string) (*GrantResult, error) {
	if err := e.limiter.Allow(playerID, ActionGrant); err != nil {
		return nil, err
	}

	var result *GrantResult
	err := e.repo.WithPlayerLock(ctx, playerID, func() error {
		return e.repo.WithTx(ctx, func(tx postgres.Tx) error {
			player, err := e.repo.GetPlayerForUpdate(ctx, tx, playerID)
			if err != nil {
				return err
			}
			result, err = e.resources.Grant(ctx, tx, player, resources, source, true)
			if err != nil {
				return err
			}
			return e.repo.UpdatePlayer(ctx, tx, player)
		})
	})
	if err != nil {
		return nil, err
	}
	e.repo.InvalidatePlayer(ctx, playerID)
	return result, nil
}

// ConsumeResources 外部来源的资源扣除
func (e *Engine) ConsumeResources(ctx context.Context, playerID int64, resources map[string]int64, source string) (*ConsumeResult, error) {
	var result *ConsumeResult
	err := e.repo.WithPlayerLock(ctx, playerID, func() error {
		return e.repo.WithTx(ctx, func(tx postgres.Tx) error {
			player, err := e.repo.GetPlayerForUpdate(ctx, tx, playerID)
			if err != nil {
				return err
			}
			result, err = e.resources.Consume(ctx, tx, player, resources, source)
			if err != nil {
				return err
			}
			return e.repo.UpdatePlayer(ctx, tx, player)
		})
	})
	if err != nil {
		return nil, err
	}
	e.repo.InvalidatePlayer(ctx, playerID)
	return result, nil
}

// GetProfile 读取玩家档案（结算离线恢复后），只读路径不限流
func (e *Engine) GetProfile(ctx context.Context, playerID int64) (map[string]any, error) {
	player, err := e.players.RefreshPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	profile := e.resources.Summary(player)
	profile["fusion_shards"] = player.FusionShards
	profile["redeemable_tiers"] = e.fusions.RedeemableTiers(ctx, player)
	return profile, nil
}

// GetCollection 读取玩家收藏
func (e *Engine) GetCollection(ctx context.Context, playerID int64) ([]*model.Maiden, error) {
	return e.repo.ListMaidens(ctx, playerID)
}
