package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rikirpg/rikicore/internal/model"
	"github.com/rikirpg/rikicore/pkg/logger"
)

func TestScaleEffectValue(t *testing.T) {
	tests := []struct {
		name        string
		effect      *model.LeaderEffect
		currentTier int32
		baseTier    int32
		want        float64
	}{
		{
			name:   "scaling disabled returns base value",
			effect: &model.LeaderEffect{Type: model.EffectIncomeBoost, Value: 15},
			// 阶级差不生效
			currentTier: 5,
			baseTier:    1,
			want:        15,
		},
		{
			name: "tier diff scales value",
			effect: &model.LeaderEffect{
				Type:    model.EffectIncomeBoost,
				Value:   10,
				Scaling: model.EffectScaling{Enabled: true, TierMultiplier: 1.5, MaxBonus: 500},
			},
			currentTier: 3,
			baseTier:    1,
			want:        20, // 10 * (1 + 2*0.5)
		},
		{
			name: "scaled value capped at max bonus",
			effect: &model.LeaderEffect{
				Type:    model.EffectIncomeBoost,
				Value:   10,
				Scaling: model.EffectScaling{Enabled: true, TierMultiplier: 2.0, MaxBonus: 50},
			},
			currentTier: 10,
			baseTier:    1,
			want:        15, // cap 10 * 1.5
		},
		{
			name: "negative tier diff clamped to zero",
			effect: &model.LeaderEffect{
				Type:    model.EffectIncomeBoost,
				Value:   10,
				Scaling: model.EffectScaling{Enabled: true, TierMultiplier: 1.5, MaxBonus: 500},
			},
			currentTier: 1,
			baseTier:    3,
			want:        10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScaleEffectValue(tt.effect, tt.currentTier, tt.baseTier)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestApplyEffectMapping(t *testing.T) {
	tests := []struct {
		kind  model.EffectKind
		value float64
		check func(t *testing.T, m Modifiers)
	}{
		{model.EffectIncomeBoost, 15, func(t *testing.T, m Modifiers) {
			assert.InDelta(t, 1.15, m.IncomeBoost, 1e-9)
		}},
		{model.EffectXPBoost, 20, func(t *testing.T, m Modifiers) {
			assert.InDelta(t, 1.20, m.XPBoost, 1e-9)
		}},
		{model.EffectFusionBonus, 10, func(t *testing.T, m Modifiers) {
			assert.InDelta(t, 0.10, m.FusionBonus, 1e-9)
		}},
		{model.EffectEnergyEfficiency, 25, func(t *testing.T, m Modifiers) {
			assert.InDelta(t, 0.25, m.EnergyEfficiency, 1e-9)
		}},
		{model.EffectStaminaEfficiency, 30, func(t *testing.T, m Modifiers) {
			assert.InDelta(t, 0.30, m.StaminaEfficiency, 1e-9)
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			m := NeutralModifiers()
			ApplyEffect(&m, tt.kind, tt.value)
			tt.check(t, m)
		})
	}
}

func TestActiveModifiersNoLeader(t *testing.T) {
	repo := newFakeRepo()
	svc := NewLeaderService(repo, logger.NewNoop())

	player := model.NewPlayer(1)
	repo.addPlayer(player)

	m := svc.ActiveModifiers(context.Background(), player)
	assert.Equal(t, NeutralModifiers(), m)
}

func TestActiveModifiersWithLeader(t *testing.T) {
	repo := newFakeRepo()
	svc := NewLeaderService(repo, logger.NewNoop())

	tpl := &model.MaidenBase{
		ID:      10,
		Name:    "Seraphine",
		Tier:    1,
		Element: "radiant",
		LeaderEffect: &model.LeaderEffect{
			Type:    model.EffectIncomeBoost,
			Value:   10,
			Scaling: model.EffectScaling{Enabled: true, TierMultiplier: 1.5, MaxBonus: 500},
		},
	}
	repo.addTemplate(tpl)

	player := model.NewPlayer(1)
	repo.addPlayer(player)

	leader := model.NewMaiden(player.ID, tpl)
	leader.Tier = 3
	repo.addMaiden(leader)
	player.LeaderMaidenID = leader.ID

	m := svc.ActiveModifiers(context.Background(), player)
	// 10 * (1 + 2*0.5) = 20% → 1.20
	assert.InDelta(t, 1.20, m.IncomeBoost, 1e-9)
	assert.InDelta(t, 1.0, m.XPBoost, 1e-9)
}

func TestActiveModifiersDegradesOnMissingLeader(t *testing.T) {
	repo := newFakeRepo()
	svc := NewLeaderService(repo, logger.NewNoop())

	player := model.NewPlayer(1)
	player.LeaderMaidenID = 999
	repo.addPlayer(player)

	m := svc.ActiveModifiers(context.Background(), player)
	require.Equal(t, NeutralModifiers(), m)
}
