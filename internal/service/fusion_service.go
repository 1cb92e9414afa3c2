package service

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/rikirpg/rikicore/internal/gameconfig"
	"github.com/rikirpg/rikicore/internal/gameerr"
	"github.com/rikirpg/rikicore/internal/metrics"
	"github.com/rikirpg/rikicore/internal/model"
	"github.com/rikirpg/rikicore/internal/repository"
	"github.com/rikirpg/rikicore/pkg/database/postgres"
	"github.com/rikirpg/rikicore/pkg/logger"
)

// FusionResult 融合结果
type FusionResult struct {
	Success       bool
	UsedShards    bool
	InputTier     int32
	OutputTier    int32
	Output        *model.MaidenBase // 失败时为 nil
	OutputElement string
	Cost          int64
	SuccessRate   float64
	ShardsGained  int64
	ShardsSpent   int64
	ShardBalance  int64
}

// FusionService 侍女融合系统
// 两个同阶堆叠融合为高一阶产出，失败积累碎片，攒满可兑换一次保成功
type FusionService struct {
	repo    repository.GameRepository
	cfg     *gameconfig.Store
	res     *ResourceService
	leaders *LeaderService
	rng     RandomSource
	log     logger.Logger
	metrics *metrics.GameMetrics
}

// NewFusionService 创建融合服务
func NewFusionService(repo repository.GameRepository, cfg *gameconfig.Store, res *ResourceService, leaders *LeaderService, rng RandomSource, log logger.Logger, m *metrics.GameMetrics) *FusionService {
	return &FusionService{
		repo:    repo,
		cfg:     cfg,
		res:     res,
		leaders: leaders,
		rng:     rng,
		log:     log.Named("service.fusion"),
		metrics: m,
	}
}

// FusionCost 计算某阶融合的 rikis 费用
// base * multiplier^(tier-1)，封顶 max_cost
func (s *FusionService) FusionCost(ctx context.Context, tier int32) int64 {
	base := s.cfg.GetFloat64(ctx, "fusion_costs.base", 1000)
	multiplier := s.cfg.GetFloat64(ctx, "fusion_costs.multiplier", 2.5)
	maxCost := s.cfg.GetInt64(ctx, "fusion_costs.max_cost", 10000000)

	cost := int64(base * math.Pow(multiplier, float64(tier-1)))
	return min(cost, maxCost)
}

// SuccessRate 某阶的基础成功率（百分比），随阶级单调下降
func (s *FusionService) SuccessRate(ctx context.Context, tier int32) float64 {
	rates := s.cfg.GetMap(ctx, "fusion_rates")
	if raw, ok := rates[strconv.Itoa(int(tier))]; ok {
		if v, ok := raw.(float64); ok {
			return v
		}
	}
	return 50
}

// CombineElements 按无序对查询元素组合表，未定义时回退到第一个元素
func (s *FusionService) CombineElements(ctx context.Context, element1, element2 string) string {
	combinations := s.cfg.GetMap(ctx, "element_combinations")

	if raw, ok := combinations[element1+"|"+element2]; ok {
		if v, ok := raw.(string); ok {
			return v
		}
	}
	if raw, ok := combinations[element2+"|"+element1]; ok {
		if v, ok := raw.(string); ok {
			return v
		}
	}

	s.log.Warn("element combination not found, using first element",
		"element1", element1,
		"element2", element2,
	)
	return element1
}

// Fuse 执行一次融合
// useShards 为真时消耗碎片保成功，否则按成功率掷骰
// 两个输入堆叠无论成败都被消耗，所有前置校验失败均不产生任何改动
func (s *FusionService) Fuse(ctx context.Context, playerID, maidenID1, maidenID2 int64, useShards bool) (*FusionResult, error) {
	var result *FusionResult
	err := s.repo.WithPlayerLock(ctx, playerID, func() error {
		return s.repo.WithTx(ctx, func(tx postgres.Tx) error {
			player, err := s.repo.GetPlayerForUpdate(ctx, tx, playerID)
			if err != nil {
				return err
			}

			input1, input2, err := s.lockInputs(ctx, tx, playerID, maidenID1, maidenID2)
			if err != nil {
				return err
			}

			tier := input1.Tier
			if input2.Tier != tier {
				return gameerr.NewInvalidOperation("fusion", fmt.Sprintf("tier mismatch: %d vs %d", input1.Tier, input2.Tier))
			}
			if tier >= model.MaxTier {
				return gameerr.NewInvalidOperation("fusion", "tier already at maximum")
			}

			if player.FusionShards == nil {
				player.FusionShards = make(map[string]int64)
			}
			shardKey := shardKey(tier)
			shardThreshold := s.cfg.GetInt64(ctx, "shard_system.shards_for_redemption", 100)
			if useShards && player.FusionShards[shardKey] < shardThreshold {
				return gameerr.NewInsufficientResources("fusion_shards", shardThreshold, player.FusionShards[shardKey])
			}

			cost := s.FusionCost(ctx, tier)
			if _, err := s.res.Consume(ctx, tx, player, map[string]int64{
				model.ResourceRikis: cost,
			}, "fusion_cost"); err != nil {
				return err
			}

			rate := 100.0
			success := true
			var shardsSpent int64
			if useShards {
				shardsSpent = shardThreshold
				player.FusionShards[shardKey] -= shardThreshold
				incrStat(player, "shards_spent", shardThreshold)
			} else {
				bonus := s.fusionBonus(ctx, player)
				rate = math.Min(100, math.Max(0, s.SuccessRate(ctx, tier)+bonus))
				success = s.rng.Float64()*100 <= rate
			}

			result = &FusionResult{
				Success:     success,
				UsedShards:  useShards,
				InputTier:   tier,
				OutputTier:  tier + 1,
				Cost:        cost,
				SuccessRate: rate,
				ShardsSpent: shardsSpent,
			}

			if success {
				template, element, err := s.pickOutput(ctx, tx, input1, input2)
				if err != nil {
					return err
				}
				if _, newUnique, err := s.repo.AddMaidenToStack(ctx, tx, playerID, template); err != nil {
					return err
				} else if newUnique {
					player.UniqueMaidens++
				}
				incrStat(player, "successful_fusions", 1)
				result.Output = template
				result.OutputElement = element
			} else {
				gained := s.rollShards(ctx)
				player.FusionShards[shardKey] += gained
				incrStat(player, "shards_earned", gained)
				incrStat(player, "failed_fusions", 1)
				result.ShardsGained = gained
			}
			result.ShardBalance = player.FusionShards[shardKey]

			if err := s.consumeInput(ctx, tx, input1); err != nil {
				return err
			}
			// 同一堆叠融两份时第二次扣在第一次之后的数量上
			if input2.ID == input1.ID {
				input2.Quantity = input1.Quantity
			}
			if err := s.consumeInput(ctx, tx, input2); err != nil {
				return err
			}

			if err := s.repo.UpdatePlayer(ctx, tx, player); err != nil {
				return err
			}

			auditType := model.AuditFusion
			if useShards {
				auditType = model.AuditShardRedeem
			}
			record := model.NewAuditRecord(playerID, auditType, "fusion", map[string]any{
				"success":       success,
				"used_shards":   useShards,
				"input_tier":    tier,
				"output_tier":   tier + 1,
				"cost":          cost,
				"success_rate":  rate,
				"shards_gained": result.ShardsGained,
				"shards_spent":  shardsSpent,
				"shard_balance": result.ShardBalance,
			})
			if err := s.repo.InsertAudit(ctx, tx, record); err != nil {
				return err
			}
			s.metrics.RecordFusion(success)

			s.log.Info("fusion resolved",
				"player_id", playerID,
				"tier", tier,
				"success", success,
				"used_shards", useShards,
				"cost", cost,
			)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.repo.InvalidatePlayer(ctx, playerID)
	return result, nil
}

// RedeemableTiers 返回碎片足够兑换的阶级列表
func (s *FusionService) RedeemableTiers(ctx context.Context, player *model.Player) []int32 {
	threshold := s.cfg.GetInt64(ctx, "shard_system.shards_for_redemption", 100)

	var tiers []int32
	for tier := model.MinTier; tier < model.MaxTier; tier++ {
		if player.FusionShards[shardKey(tier)] >= threshold {
			tiers = append(tiers, tier)
		}
	}
	return tiers
}

// lockInputs 锁定两个输入堆叠
// 允许同一堆叠出两份，此时数量必须 ≥2
func (s *FusionService) lockInputs(ctx context.Context, tx postgres.Tx, playerID, maidenID1, maidenID2 int64) (*model.Maiden, *model.Maiden, error) {
	input1, err := s.repo.GetMaidenForUpdate(ctx, tx, playerID, maidenID1)
	if err != nil {
		return nil, nil, err
	}

	if maidenID2 == maidenID1 {
		if input1.Quantity < 2 {
			return nil, nil, gameerr.NewInvalidOperation("fusion", "need at least two copies to fuse a stack with itself")
		}
		return input1, input1, nil
	}

	input2, err := s.repo.GetMaidenForUpdate(ctx, tx, playerID, maidenID2)
	if err != nil {
		return nil, nil, err
	}
	if input1.Quantity < 1 || input2.Quantity < 1 {
		return nil, nil, gameerr.NewInvalidOperation("fusion", "input stack is empty")
	}
	return input1, input2, nil
}

// pickOutput 解析输出元素并在 tier+1 中选模板
// 没有匹配元素的模板时警告并退回该阶全部模板
func (s *FusionService) pickOutput(ctx context.Context, tx postgres.Tx, input1, input2 *model.Maiden) (*model.MaidenBase, string, error) {
	element := s.CombineElements(ctx, input1.Element, input2.Element)
	outputTier := input1.Tier + 1

	candidates, err := s.repo.ListTemplatesByTierAndElement(ctx, outputTier, element)
	if err != nil {
		return nil, "", err
	}
	if len(candidates) == 0 {
		s.log.Warn("no templates for resolved element, falling back to full tier",
			"tier", outputTier,
			"element", element,
		)
		candidates, err = s.repo.ListTemplatesByTier(ctx, outputTier)
		if err != nil {
			return nil, "", err
		}
		if len(candidates) == 0 {
			return nil, "", gameerr.NewInvalidOperation("fusion", fmt.Sprintf("no templates at tier %d", outputTier))
		}
	}

	return candidates[s.rng.IntN(len(candidates))], element, nil
}

// consumeInput 消耗一份输入，归零即删除堆叠
func (s *FusionService) consumeInput(ctx context.Context, tx postgres.Tx, input *model.Maiden) error {
	input.Quantity--
	if input.Quantity <= 0 {
		return s.repo.DeleteMaiden(ctx, tx, input.ID)
	}
	return s.repo.UpdateMaidenQuantity(ctx, tx, input.ID, input.Quantity)
}

// rollShards 失败补偿的碎片数量，落在配置的区间内
func (s *FusionService) rollShards(ctx context.Context) int64 {
	minShards := s.cfg.GetInt64(ctx, "shard_system.shards_min_per_failure", 1)
	maxShards := s.cfg.GetInt64(ctx, "shard_system.shards_max_per_failure", 12)
	if maxShards < minShards {
		maxShards = minShards
	}

	gained := minShards + int64(s.rng.IntN(int(maxShards-minShards+1)))

	boost := s.cfg.GetFloat64(ctx, "event_modifiers.shard_boost", 0)
	if boost > 0 {
		gained = int64(float64(gained) * (1 + boost/100))
	}
	return gained
}

// fusionBonus 队长效果与活动加成叠加出的成功率加成（百分点）
func (s *FusionService) fusionBonus(ctx context.Context, player *model.Player) float64 {
	modifiers := s.leaders.ActiveModifiers(ctx, player)
	eventBoost := s.cfg.GetFloat64(ctx, "event_modifiers.fusion_rate_boost", 0)
	return modifiers.FusionBonus*100 + eventBoost
}

// shardKey 碎片池按阶级分桶
func shardKey(tier int32) string {
	return fmt.Sprintf("tier_%d", tier)
}
