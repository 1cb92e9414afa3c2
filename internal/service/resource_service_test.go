package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rikirpg/rikicore/internal/gameerr"
	"github.com/rikirpg/rikicore/internal/model"
	"github.com/rikirpg/rikicore/pkg/logger"
)

func newResourceFixture() (*fakeRepo, *ResourceService) {
	repo := newFakeRepo()
	log := logger.NewNoop()
	leaders := NewLeaderService(repo, log)
	svc := NewResourceService(repo, newTestStore(), leaders, log, newTestMetrics())
	return repo, svc
}

func TestGrantAppliesIncomeModifier(t *testing.T) {
	repo, svc := newResourceFixture()

	tpl := &model.MaidenBase{
		ID:      1,
		Name:    "Velia",
		Tier:    1,
		Element: "infernal",
		LeaderEffect: &model.LeaderEffect{
			Type:  model.EffectIncomeBoost,
			Value: 15,
		},
	}
	repo.addTemplate(tpl)

	player := model.NewPlayer(1)
	repo.addPlayer(player)
	leader := repo.addMaiden(model.NewMaiden(player.ID, tpl))
	player.LeaderMaidenID = leader.ID

	result, err := svc.Grant(context.Background(), &fakeTx{}, player, map[string]int64{
		model.ResourceRikis: 1000,
	}, "quest_reward", true)
	require.NoError(t, err)

	assert.Equal(t, int64(1150), result.Granted[model.ResourceRikis])
	assert.Equal(t, int64(1150), player.Rikis)
	assert.InDelta(t, 1.15, result.ModifiersApplied.IncomeBoost, 1e-9)
	assert.Empty(t, result.CapsHit)
	require.Len(t, repo.audits, 1)
	assert.Equal(t, model.AuditResourceGrant, repo.audits[0].Type)

	var details map[string]any
	require.NoError(t, json.Unmarshal(repo.audits[0].Details, &details))
	modifiers, ok := details["modifiers"].(map[string]any)
	require.True(t, ok, "grant audit must carry the applied modifiers")
	assert.InDelta(t, 1.15, modifiers["income_boost"], 1e-9)
	assert.InDelta(t, 1.0, modifiers["xp_boost"], 1e-9)
}

func TestGrantWithoutModifiers(t *testing.T) {
	repo, svc := newResourceFixture()
	player := model.NewPlayer(1)
	repo.addPlayer(player)

	result, err := svc.Grant(context.Background(), &fakeTx{}, player, map[string]int64{
		model.ResourceRikis: 1000,
	}, "tutorial", false)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), result.Granted[model.ResourceRikis])
}

func TestGrantGraceCap(t *testing.T) {
	repo, svc := newResourceFixture()
	player := model.NewPlayer(1)
	player.Grace = 999990
	repo.addPlayer(player)

	result, err := svc.Grant(context.Background(), &fakeTx{}, player, map[string]int64{
		model.ResourceGrace: 100,
	}, "prayer", false)
	require.NoError(t, err)

	assert.Equal(t, model.GraceCap, player.Grace)
	assert.Equal(t, int64(9), result.Granted[model.ResourceGrace])
	assert.Contains(t, result.CapsHit, model.ResourceGrace)
}

func TestGrantClampsPools(t *testing.T) {
	repo, svc := newResourceFixture()
	player := model.NewPlayer(1)
	player.Energy = 95
	player.Stamina = 48
	player.PrayerCharges = 4
	repo.addPlayer(player)

	result, err := svc.Grant(context.Background(), &fakeTx{}, player, map[string]int64{
		model.ResourceEnergy:        20,
		model.ResourceStamina:       10,
		model.ResourcePrayerCharges: 3,
	}, "level_up", false)
	require.NoError(t, err)

	assert.Equal(t, player.MaxEnergy, player.Energy)
	assert.Equal(t, int64(5), result.Granted[model.ResourceEnergy])
	assert.Equal(t, player.MaxStamina, player.Stamina)
	assert.Equal(t, int64(2), result.Granted[model.ResourceStamina])
	assert.Equal(t, player.MaxPrayerCharges, player.PrayerCharges)
	assert.Equal(t, int64(1), result.Granted[model.ResourcePrayerCharges])
}

func TestGrantSkipsNonPositiveAmounts(t *testing.T) {
	repo, svc := newResourceFixture()
	player := model.NewPlayer(1)
	repo.addPlayer(player)

	result, err := svc.Grant(context.Background(), &fakeTx{}, player, map[string]int64{
		model.ResourceRikis: 0,
		model.ResourceGrace: -5,
	}, "noop", false)
	require.NoError(t, err)
	assert.Empty(t, result.Granted)
	assert.Equal(t, int64(0), player.Rikis)
}

func TestConsumeAllOrNothing(t *testing.T) {
	repo, svc := newResourceFixture()
	player := model.NewPlayer(1)
	player.Rikis = 5000
	player.Grace = 3
	repo.addPlayer(player)

	_, err := svc.Consume(context.Background(), &fakeTx{}, player, map[string]int64{
		model.ResourceRikis: 1000,
		model.ResourceGrace: 5,
	}, "summon_cost")
	require.Error(t, err)

	insufficient, ok := gameerr.AsInsufficientResources(err)
	require.True(t, ok)
	assert.Equal(t, model.ResourceGrace, insufficient.Resource)
	assert.Equal(t, int64(5), insufficient.Required)
	assert.Equal(t, int64(3), insufficient.Current)

	// 校验失败不得有任何扣除
	assert.Equal(t, int64(5000), player.Rikis)
	assert.Equal(t, int64(3), player.Grace)
	assert.Empty(t, repo.audits)
}

func TestConsumeDebitsAll(t *testing.T) {
	repo, svc := newResourceFixture()
	player := model.NewPlayer(1)
	player.Rikis = 5000
	player.Grace = 10
	repo.addPlayer(player)

	result, err := svc.Consume(context.Background(), &fakeTx{}, player, map[string]int64{
		model.ResourceRikis: 1000,
		model.ResourceGrace: 5,
	}, "fusion_cost")
	require.NoError(t, err)

	assert.Equal(t, int64(4000), player.Rikis)
	assert.Equal(t, int64(5), player.Grace)
	assert.Equal(t, int64(1000), result.Consumed[model.ResourceRikis])
	require.Len(t, repo.audits, 1)
	assert.Equal(t, model.AuditResourceConsume, repo.audits[0].Type)
}

func TestCheckResources(t *testing.T) {
	_, svc := newResourceFixture()
	player := model.NewPlayer(1)
	player.Rikis = 100
	player.Grace = 5

	assert.True(t, svc.Check(player, map[string]int64{model.ResourceRikis: 100, model.ResourceGrace: 5}))
	assert.False(t, svc.Check(player, map[string]int64{model.ResourceRikis: 101}))
	assert.True(t, svc.Check(player, map[string]int64{model.ResourceRikis: -1}))
}

func TestApplyRegenerationRespectsCaps(t *testing.T) {
	player := model.NewPlayer(1)
	player.Energy = 98
	player.Stamina = 40
	player.PrayerCharges = 5

	actual := ApplyRegeneration(player, map[string]int64{
		model.ResourceEnergy:        10,
		model.ResourceStamina:       5,
		model.ResourcePrayerCharges: 2,
	})

	assert.Equal(t, int64(2), actual[model.ResourceEnergy])
	assert.Equal(t, int64(5), actual[model.ResourceStamina])
	assert.Equal(t, int64(0), actual[model.ResourcePrayerCharges])
	assert.Equal(t, player.MaxEnergy, player.Energy)
	assert.Equal(t, int64(45), player.Stamina)
}
