package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rikirpg/rikicore/internal/gameerr"
	"github.com/rikirpg/rikicore/internal/model"
	"github.com/rikirpg/rikicore/pkg/logger"
)

func newPlayerFixture() (*fakeRepo, *PlayerService) {
	repo := newFakeRepo()
	log := logger.NewNoop()
	leaders := NewLeaderService(repo, log)
	resources := NewResourceService(repo, newTestStore(), leaders, log, newTestMetrics())
	svc := NewPlayerService(repo, newTestStore(), resources, log)
	return repo, svc
}

func TestXPForNextLevelPolynomial(t *testing.T) {
	_, svc := newPlayerFixture()
	ctx := context.Background()

	assert.Equal(t, int64(50), svc.XPForNextLevel(ctx, 1))
	// 50 * 2^2.2
	assert.Equal(t, int64(229), svc.XPForNextLevel(ctx, 2))
	assert.Greater(t, svc.XPForNextLevel(ctx, 10), svc.XPForNextLevel(ctx, 9))
}

func TestAddXPAndLevelUpMultiLevel(t *testing.T) {
	repo, svc := newPlayerFixture()
	player := model.NewPlayer(1)
	repo.addPlayer(player)

	result := svc.AddXPAndLevelUp(context.Background(), player, 300, true)

	assert.True(t, result.LeveledUp)
	assert.Equal(t, int32(2), result.LevelsGained)
	assert.Equal(t, int32(3), result.NewLevel)
	assert.Equal(t, int32(3), player.Level)
	// 300 - 50 - 229
	assert.Equal(t, int64(21), player.Experience)
	assert.False(t, result.SafetyCapHit)
}

func TestLevelUpRefillsAndOvercaps(t *testing.T) {
	repo, svc := newPlayerFixture()
	player := model.NewPlayer(1)
	player.Energy = 95 // ≥90% 触发溢出奖励
	player.Stamina = 10
	repo.addPlayer(player)

	result := svc.AddXPAndLevelUp(context.Background(), player, 50, true)

	require.True(t, result.LeveledUp)
	assert.Equal(t, int64(110), player.Energy)
	assert.Equal(t, int64(10), result.OvercapEnergy)
	assert.Equal(t, player.MaxStamina, player.Stamina)
	assert.Equal(t, int64(0), result.OvercapStamina)
}

func TestLevelUpMilestones(t *testing.T) {
	repo, svc := newPlayerFixture()
	player := model.NewPlayer(1)
	player.Level = 9
	repo.addPlayer(player)

	needed := svc.XPForNextLevel(context.Background(), 9)
	result := svc.AddXPAndLevelUp(context.Background(), player, needed, false)

	require.True(t, result.LeveledUp)
	assert.Equal(t, int32(10), player.Level)

	major, ok := result.MilestoneRewards["level_10_major"]
	require.True(t, ok)
	assert.Equal(t, int64(5000), major[model.ResourceRikis])
	assert.Equal(t, int64(10), major["max_energy_increase"])
	assert.Equal(t, int64(110), player.MaxEnergy)
	assert.Equal(t, int64(55), player.MaxStamina)
	// 10 级同时是小里程碑
	minor, ok := result.MilestoneRewards["level_10"]
	require.True(t, ok)
	assert.Equal(t, int64(1000), minor[model.ResourceRikis])
}

func TestLevelUpSafetyCap(t *testing.T) {
	repo, svc := newPlayerFixture()
	player := model.NewPlayer(1)
	repo.addPlayer(player)

	// 远超 100 连升的经验量
	result := svc.AddXPAndLevelUp(context.Background(), player, 1<<50, true)

	assert.True(t, result.SafetyCapHit)
	assert.Equal(t, int32(1+maxLevelUpsPerAction), player.Level)
}

func TestRegenerateEnergyCycles(t *testing.T) {
	repo, svc := newPlayerFixture()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base.Add(25 * time.Minute) }

	player := model.NewPlayer(1)
	player.Energy = 90
	player.LastEnergyRegen = base
	repo.addPlayer(player)

	result := svc.RegenerateAll(context.Background(), player)

	// 每 5 分钟 1 点，25 分钟恢复 5 点
	assert.Equal(t, int64(5), result.EnergyGained)
	assert.Equal(t, int64(95), player.Energy)
	assert.Equal(t, base.Add(25*time.Minute), player.LastEnergyRegen)
}

func TestRegenerateStaminaDestroyerFaster(t *testing.T) {
	repo, svc := newPlayerFixture()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base.Add(15 * time.Minute) }

	player := model.NewPlayer(1)
	player.Class = model.ClassDestroyer
	player.Stamina = 40
	player.LastStaminaRegen = base
	player.LastEnergyRegen = svc.now()
	player.LastPrayerRegen = svc.now()
	repo.addPlayer(player)

	result := svc.RegenerateAll(context.Background(), player)

	// 10 分钟基准，destroyer 加速到 7.5 分钟，15 分钟恢复 2 点
	assert.Equal(t, int64(2), result.StaminaGained)
	assert.Equal(t, int64(42), player.Stamina)
}

func TestRegeneratePrayerKeepsRemainder(t *testing.T) {
	repo, svc := newPlayerFixture()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base.Add(12 * time.Minute) }

	player := model.NewPlayer(1)
	player.PrayerCharges = 2
	player.LastPrayerRegen = base
	player.LastEnergyRegen = svc.now()
	player.LastStaminaRegen = svc.now()
	repo.addPlayer(player)

	result := svc.RegenerateAll(context.Background(), player)

	assert.Equal(t, int64(2), result.PrayerChargesGained)
	assert.Equal(t, int32(4), player.PrayerCharges)
	// 余下的 2 分钟保留在时间基准里
	assert.Equal(t, base.Add(10*time.Minute), player.LastPrayerRegen)
}

func TestPerformPrayerInvokerBonus(t *testing.T) {
	repo, svc := newPlayerFixture()
	player := model.NewPlayer(1)
	repo.addPlayer(player)

	result, err := svc.PerformPrayer(context.Background(), player.ID)
	require.NoError(t, err)

	// invoker 加成 1.2：5 * 1.2 = 6
	assert.Equal(t, int64(6), result.GraceGained)
	assert.Equal(t, int64(6), player.Grace)
	assert.Equal(t, int32(4), result.ChargesRemaining)
	require.Len(t, repo.audits, 1)
	assert.Equal(t, model.AuditPrayer, repo.audits[0].Type)
}

func TestPerformPrayerNoCharges(t *testing.T) {
	repo, svc := newPlayerFixture()
	player := model.NewPlayer(1)
	player.PrayerCharges = 0
	repo.addPlayer(player)

	_, err := svc.PerformPrayer(context.Background(), player.ID)
	require.Error(t, err)
	assert.True(t, gameerr.IsInsufficientResources(err))
	assert.Equal(t, int64(0), player.Grace)
}
