package model

import "time"

// 阶级范围
const (
	MinTier int32 = 1
	MaxTier int32 = 12
)

// EffectKind 队长效果类型
type EffectKind string

const (
	EffectIncomeBoost       EffectKind = "income_boost"
	EffectXPBoost           EffectKind = "xp_boost"
	EffectFusionBonus       EffectKind = "fusion_bonus"
	EffectEnergyEfficiency  EffectKind = "energy_efficiency"
	EffectStaminaEfficiency EffectKind = "stamina_efficiency"
)

// EffectScaling 队长效果随阶级成长的参数
type EffectScaling struct {
	Enabled        bool    `json:"enabled"`
	TierMultiplier float64 `json:"tier_multiplier"`
	MaxBonus       float64 `json:"max_bonus"`
}

// LeaderEffect 队长效果，按类型区分语义
// Value 为百分比数值（15 表示 +15%）
type LeaderEffect struct {
	Type    EffectKind    `json:"type"`
	Value   float64       `json:"value"`
	Scaling EffectScaling `json:"scaling"`
}

// MaidenBase 女仆模板，对应 maiden_bases 表
type MaidenBase struct {
	ID           int64                  `db:"id"`
	Name         string                 `db:"name"`
	Tier         int32                  `db:"tier"`
	Element      string                 `db:"element"`
	BaseStats    map[string]interface{} `db:"base_stats"`
	LeaderEffect *LeaderEffect          `db:"leader_effect"`
	Summonable   bool                   `db:"summonable"`
	CreatedAt    time.Time              `db:"created_at"`
}
