package service

import (
	"context"

	"github.com/rikirpg/rikicore/internal/model"
	"github.com/rikirpg/rikicore/internal/repository"
	"github.com/rikirpg/rikicore/pkg/logger"
)

// Modifiers 激活的加成集合
// 乘数字段默认 1.0，加数字段默认 0.0
type Modifiers struct {
	IncomeBoost       float64 // rikis/grace/riki_gems 收益乘数
	XPBoost           float64 // experience 收益乘数
	FusionBonus       float64 // 融合成功率加成（百分点/100）
	EnergyEfficiency  float64 // 能量消耗减免比例
	StaminaEfficiency float64 // 体力消耗减免比例
}

// NeutralModifiers 无加成状态
func NeutralModifiers() Modifiers {
	return Modifiers{IncomeBoost: 1.0, XPBoost: 1.0}
}

// AsMap 转为审计明细使用的键值表
func (m Modifiers) AsMap() map[string]float64 {
	return map[string]float64{
		"income_boost":       m.IncomeBoost,
		"xp_boost":           m.XPBoost,
		"fusion_bonus":       m.FusionBonus,
		"energy_efficiency":  m.EnergyEfficiency,
		"stamina_efficiency": m.StaminaEfficiency,
	}
}

// LeaderService 队长效果解析
type LeaderService struct {
	repo repository.GameRepository
	log  logger.Logger
}

// NewLeaderService 创建队长服务
func NewLeaderService(repo repository.GameRepository, log logger.Logger) *LeaderService {
	return &LeaderService{
		repo: repo,
		log:  log.Named("service.leader"),
	}
}

// ActiveModifiers 解析玩家当前队长的加成
// 队长缺失、模板缺失或无队长效果时降级为无加成，不返回错误
func (s *LeaderService) ActiveModifiers(ctx context.Context, player *model.Player) Modifiers {
	modifiers := NeutralModifiers()

	if player.LeaderMaidenID == 0 {
		return modifiers
	}

	maidens, err := s.repo.ListMaidens(ctx, player.ID)
	if err != nil {
		s.log.Warn("failed to load maidens for leader lookup", "player_id", player.ID, "error", err)
		return modifiers
	}

	var leader *model.Maiden
	for _, m := range maidens {
		if m.ID == player.LeaderMaidenID {
			leader = m
			break
		}
	}
	if leader == nil {
		s.log.Warn("leader maiden not found", "player_id", player.ID, "leader_maiden_id", player.LeaderMaidenID)
		return modifiers
	}

	base, err := s.repo.GetTemplate(ctx, leader.TemplateID)
	if err != nil {
		s.log.Warn("leader template not found", "player_id", player.ID, "template_id", leader.TemplateID)
		return modifiers
	}
	if base.LeaderEffect == nil {
		return modifiers
	}

	value := ScaleEffectValue(base.LeaderEffect, leader.Tier, base.Tier)
	ApplyEffect(&modifiers, base.LeaderEffect.Type, value)

	s.log.Debug("leader modifiers resolved",
		"player_id", player.ID,
		"leader", base.Name,
		"tier", leader.Tier,
		"effect", base.LeaderEffect.Type,
		"value", value,
	)

	return modifiers
}

// ScaleEffectValue 按阶级差缩放效果数值
// scaled = base * (1 + tier_diff * (tier_multiplier - 1))，上限 base * (1 + max_bonus/100)
func ScaleEffectValue(effect *model.LeaderEffect, currentTier, baseTier int32) float64 {
	if !effect.Scaling.Enabled {
		return effect.Value
	}

	tierDiff := currentTier - baseTier
	if tierDiff < 0 {
		tierDiff = 0
	}

	scaled := effect.Value * (1 + float64(tierDiff)*(effect.Scaling.TierMultiplier-1.0))
	cap := effect.Value * (1 + effect.Scaling.MaxBonus/100)
	if scaled > cap {
		return cap
	}
	return scaled
}

// ApplyEffect 将效果数值映射到加成集合
func ApplyEffect(modifiers *Modifiers, kind model.EffectKind, value float64) {
	switch kind {
	case model.EffectIncomeBoost:
		modifiers.IncomeBoost = 1.0 + value/100
	case model.EffectXPBoost:
		modifiers.XPBoost = 1.0 + value/100
	case model.EffectFusionBonus:
		modifiers.FusionBonus = value / 100
	case model.EffectEnergyEfficiency:
		modifiers.EnergyEfficiency = value / 100
	case model.EffectStaminaEfficiency:
		modifiers.StaminaEfficiency = value / 100
	}
}
