package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rikirpg/rikicore/internal/gameconfig"
	"github.com/rikirpg/rikicore/internal/gameerr"
	"github.com/rikirpg/rikicore/internal/metrics"
	"github.com/rikirpg/rikicore/internal/model"
	"github.com/rikirpg/rikicore/internal/repository"
	"github.com/rikirpg/rikicore/pkg/database/postgres"
	"github.com/rikirpg/rikicore/pkg/logger"
)

// RateTable 某等级下的召唤概率表
type RateTable struct {
	UnlockedTiers []int32
	Rates         map[int32]float64 // 归一化后的百分比，总和 100
	HighestTier   int32
}

// SummonResult 单次召唤结果
type SummonResult struct {
	Template    *model.MaidenBase
	Tier        int32
	WasPity     bool
	NewUnique   bool
	PityCounter int32
	GraceCost   int64
}

// BatchSummonResult 批量召唤结果
type BatchSummonResult struct {
	Results      []*SummonResult
	TotalCost    int64
	PityTriggers int
	NewUnique    int
	TierCounts   map[int32]int
}

// SummonService 渐进解锁的召唤系统
// 低阶更常见，高阶随等级解锁且更稀有，每 25 次保底一个未收录的侍女
type SummonService struct {
	repo    repository.GameRepository
	cfg     *gameconfig.Store
	res     *ResourceService
	rng     RandomSource
	log     logger.Logger
	metrics *metrics.GameMetrics
}

// NewSummonService 创建召唤服务
func NewSummonService(repo repository.GameRepository, cfg *gameconfig.Store, res *ResourceService, rng RandomSource, log logger.Logger, m *metrics.GameMetrics) *SummonService {
	return &SummonService{
		repo:    repo,
		cfg:     cfg,
		res:     res,
		rng:     rng,
		log:     log.Named("service.summon"),
		metrics: m,
	}
}

// ComputeRates 按解锁配置与衰减参数计算概率表，纯函数
// 权重从最高基数开始按 decay 逐阶衰减，低阶排在衰减链前端因此更常见
func ComputeRates(unlockLevels map[string]any, decayFactor, highestTierBase float64, playerLevel int32) *RateTable {
	var unlocked []int32
	for key, raw := range unlockLevels {
		tierStr, ok := strings.CutPrefix(key, "tier_")
		if !ok {
			continue
		}
		tier, err := strconv.Atoi(tierStr)
		if err != nil {
			continue
		}
		minLevel, ok := raw.(float64)
		if !ok {
			continue
		}
		if float64(playerLevel) >= minLevel {
			unlocked = append(unlocked, int32(tier))
		}
	}

	if len(unlocked) == 0 {
		unlocked = []int32{1, 2, 3}
	}
	sort.Slice(unlocked, func(i, j int) bool { return unlocked[i] < unlocked[j] })

	raw := make(map[int32]float64, len(unlocked))
	current := highestTierBase
	total := 0.0
	for _, tier := range unlocked {
		raw[tier] = current
		total += current
		current *= decayFactor
	}

	rates := make(map[int32]float64, len(raw))
	for tier, weight := range raw {
		rates[tier] = weight / total * 100
	}

	return &RateTable{
		UnlockedTiers: unlocked,
		Rates:         rates,
		HighestTier:   unlocked[len(unlocked)-1],
	}
}

// RatesForLevel 取某等级的概率表，优先读缓存
func (s *SummonService) RatesForLevel(ctx context.Context, level int32) *RateTable {
	if cached := s.repo.GetCachedRates(ctx, level); cached != nil {
		return tableFromRates(cached)
	}

	unlockLevels := s.cfg.GetMap(ctx, "gacha_rates.tier_unlock_levels")
	decay := s.cfg.GetFloat64(ctx, "gacha_rates.rate_distribution.decay_factor", 0.75)
	base := s.cfg.GetFloat64(ctx, "gacha_rates.rate_distribution.highest_tier_base", 22.0)

	table := ComputeRates(unlockLevels, decay, base, level)
	if len(unlockLevels) == 0 {
		s.log.Warn("no tier unlock levels configured, using default tiers", "level", level, "tiers", table.UnlockedTiers)
	}

	s.repo.SetCachedRates(ctx, level, table.Rates)
	return table
}

// RollTier 按概率表加权抽取阶级，纯函数
func RollTier(table *RateTable, rng RandomSource) int32 {
	total := 0.0
	for _, tier := range table.UnlockedTiers {
		total += table.Rates[tier]
	}

	roll := rng.Float64() * total
	cumulative := 0.0
	for _, tier := range table.UnlockedTiers {
		cumulative += table.Rates[tier]
		if roll < cumulative {
			return tier
		}
	}
	return table.HighestTier
}

// Summon 单次召唤：锁玩家、扣恩惠、抽取并入库，一次事务完成
func (s *SummonService) Summon(ctx context.Context, playerID int64) (*SummonResult, error) {
	cost := s.cfg.GetInt64(ctx, "summon_costs.grace_per_summon", 5)

	var result *SummonResult
	err := s.repo.WithPlayerLock(ctx, playerID, func() error {
		return s.repo.WithTx(ctx, func(tx postgres.Tx) error {
			player, err := s.repo.GetPlayerForUpdate(ctx, tx, playerID)
			if err != nil {
				return err
			}

			if _, err := s.res.Consume(ctx, tx, player, map[string]int64{
				model.ResourceGrace: cost,
			}, "summon_cost"); err != nil {
				return err
			}

			result, err = s.performSummon(ctx, tx, player, cost)
			if err != nil {
				return err
			}
			return s.repo.UpdatePlayer(ctx, tx, player)
		})
	})
	if err != nil {
		return nil, err
	}
	s.repo.InvalidatePlayer(ctx, playerID)
	return result, nil
}

// BatchSummon 批量召唤（x5/x10），总费用一次性预扣，全部抽取在同一事务内
func (s *SummonService) BatchSummon(ctx context.Context, playerID int64, count int) (*BatchSummonResult, error) {
	if count <= 0 {
		return nil, gameerr.NewInvalidOperation("batch_summon", fmt.Sprintf("invalid count %d", count))
	}

	costPer := s.cfg.GetInt64(ctx, "summon_costs.grace_per_summon", 5)
	totalCost := costPer * int64(count)

	batch := &BatchSummonResult{
		TotalCost:  totalCost,
		TierCounts: make(map[int32]int),
	}

	err := s.repo.WithPlayerLock(ctx, playerID, func() error {
		return s.repo.WithTx(ctx, func(tx postgres.Tx) error {
			player, err := s.repo.GetPlayerForUpdate(ctx, tx, playerID)
			if err != nil {
				return err
			}

			if _, err := s.res.Consume(ctx, tx, player, map[string]int64{
				model.ResourceGrace: totalCost,
			}, "batch_summon_cost"); err != nil {
				return err
			}

			for i := 0; i < count; i++ {
				result, err := s.performSummon(ctx, tx, player, 0)
				if err != nil {
					return err
				}
				batch.Results = append(batch.Results, result)
				batch.TierCounts[result.Tier]++
				if result.WasPity {
					batch.PityTriggers++
				}
				if result.NewUnique {
					batch.NewUnique++
				}
			}
			return s.repo.UpdatePlayer(ctx, tx, player)
		})
	})
	if err != nil {
		return nil, err
	}
	s.repo.InvalidatePlayer(ctx, playerID)
	return batch, nil
}

// performSummon 扣费之后的抽取流程，调用方负责事务与落库
func (s *SummonService) performSummon(ctx context.Context, tx postgres.Tx, player *model.Player, cost int64) (*SummonResult, error) {
	pityThreshold := int32(s.cfg.GetInt(ctx, "summon.pity.summons_for_pity", 25))
	isPity := player.PityCounter+1 >= pityThreshold

	var (
		template *model.MaidenBase
		tier     int32
		err      error
	)
	if isPity {
		template, tier, err = s.pityPick(ctx, tx, player)
	} else {
		template, tier, err = s.rollPick(ctx, player)
	}
	if err != nil {
		return nil, err
	}

	_, newUnique, err := s.repo.AddMaidenToStack(ctx, tx, player.ID, template)
	if err != nil {
		return nil, err
	}
	if newUnique {
		player.UniqueMaidens++
	}

	if isPity {
		player.PityCounter = 0
	} else {
		player.PityCounter++
	}

	record := model.NewAuditRecord(player.ID, model.AuditSummon, "summon", map[string]any{
		"template_id":  template.ID,
		"tier":         tier,
		"was_pity":     isPity,
		"pity_counter": player.PityCounter,
		"grace_cost":   cost,
		"new_unique":   newUnique,
	})
	if err := s.repo.InsertAudit(ctx, tx, record); err != nil {
		return nil, err
	}
	s.metrics.RecordSummon(isPity)

	s.log.Info("summon resolved",
		"player_id", player.ID,
		"template", template.Name,
		"tier", tier,
		"was_pity", isPity,
	)

	return &SummonResult{
		Template:    template,
		Tier:        tier,
		WasPity:     isPity,
		NewUnique:   newUnique,
		PityCounter: player.PityCounter,
		GraceCost:   cost,
	}, nil
}

// rollPick 常规抽取：加权抽阶级后在该阶级模板中均匀取一个
// 抽到的阶级没有模板时回退到 T1
func (s *SummonService) rollPick(ctx context.Context, player *model.Player) (*model.MaidenBase, int32, error) {
	table := s.RatesForLevel(ctx, player.Level)
	tier := RollTier(table, s.rng)

	candidates, err := s.repo.ListSummonableByTiers(ctx, []int32{tier})
	if err != nil {
		return nil, 0, err
	}
	if len(candidates) == 0 {
		s.log.Error("no summonable templates at rolled tier, defaulting to tier 1", "tier", tier)
		tier = model.MinTier
		candidates, err = s.repo.ListSummonableByTiers(ctx, []int32{tier})
		if err != nil {
			return nil, 0, err
		}
		if len(candidates) == 0 {
			return nil, 0, gameerr.NewInvalidOperation("summon", "no summonable templates available")
		}
	}

	return candidates[s.rng.IntN(len(candidates))], tier, nil
}

// pityPick 保底：优先在已解锁阶级中均匀抽一个未收录模板
// 全部收录时抽更高一阶（封顶 12），再没有则落回最高解锁阶
func (s *SummonService) pityPick(ctx context.Context, tx postgres.Tx, player *model.Player) (*model.MaidenBase, int32, error) {
	table := s.RatesForLevel(ctx, player.Level)

	allBases, err := s.repo.ListSummonableByTiers(ctx, table.UnlockedTiers)
	if err != nil {
		return nil, 0, err
	}
	owned, err := s.repo.ListOwnedTemplateIDs(ctx, tx, player.ID)
	if err != nil {
		return nil, 0, err
	}

	var unowned []*model.MaidenBase
	for _, base := range allBases {
		if _, ok := owned[base.ID]; !ok {
			unowned = append(unowned, base)
		}
	}

	if len(unowned) > 0 {
		pick := unowned[s.rng.IntN(len(unowned))]
		return pick, pick.Tier, nil
	}

	nextTier := min(table.HighestTier+1, model.MaxTier)
	candidates, err := s.repo.ListSummonableByTiers(ctx, []int32{nextTier})
	if err != nil {
		return nil, 0, err
	}
	tier := nextTier
	if len(candidates) == 0 {
		tier = table.HighestTier
		candidates, err = s.repo.ListSummonableByTiers(ctx, []int32{tier})
		if err != nil {
			return nil, 0, err
		}
		if len(candidates) == 0 {
			return nil, 0, gameerr.NewInvalidOperation("summon", "no pity candidates available")
		}
	}

	return candidates[s.rng.IntN(len(candidates))], tier, nil
}

// tableFromRates 从缓存的概率表还原阶级信息
func tableFromRates(rates map[int32]float64) *RateTable {
	tiers := make([]int32, 0, len(rates))
	for tier := range rates {
		tiers = append(tiers, tier)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i] < tiers[j] })
	return &RateTable{
		UnlockedTiers: tiers,
		Rates:         rates,
		HighestTier:   tiers[len(tiers)-1],
	}
}
