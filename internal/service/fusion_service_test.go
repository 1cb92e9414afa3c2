package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rikirpg/rikicore/internal/gameerr"
	"github.com/rikirpg/rikicore/internal/model"
	"github.com/rikirpg/rikicore/pkg/logger"
)

func newFusionFixture(rng RandomSource) (*fakeRepo, *FusionService) {
	repo := newFakeRepo()
	log := logger.NewNoop()
	store := newTestStore()
	leaders := NewLeaderService(repo, log)
	resources := NewResourceService(repo, store, leaders, log, newTestMetrics())
	svc := NewFusionService(repo, store, resources, leaders, rng, log, newTestMetrics())
	return repo, svc
}

// 两个一阶输入加一个二阶产出模板
func seedFusionScenario(repo *fakeRepo, player *model.Player) (*model.Maiden, *model.Maiden) {
	infernal := &model.MaidenBase{ID: 1, Name: "Ignis", Tier: 1, Element: "infernal", Summonable: true}
	abyssal := &model.MaidenBase{ID: 2, Name: "Nerei", Tier: 1, Element: "abyssal", Summonable: true}
	umbral := &model.MaidenBase{ID: 3, Name: "Noxia", Tier: 2, Element: "umbral", Summonable: true}
	repo.addTemplate(infernal)
	repo.addTemplate(abyssal)
	repo.addTemplate(umbral)

	m1 := repo.addMaiden(model.NewMaiden(player.ID, infernal))
	m2 := repo.addMaiden(model.NewMaiden(player.ID, abyssal))
	return m1, m2
}

func TestFusionCost(t *testing.T) {
	_, svc := newFusionFixture(&scriptRNG{})
	ctx := context.Background()

	assert.Equal(t, int64(1000), svc.FusionCost(ctx, 1))
	// 1000 * 2.5^2
	assert.Equal(t, int64(6250), svc.FusionCost(ctx, 3))
	// 高阶封顶
	assert.Equal(t, int64(10000000), svc.FusionCost(ctx, 12))

	for tier := int32(1); tier < model.MaxTier; tier++ {
		assert.LessOrEqual(t, svc.FusionCost(ctx, tier), svc.FusionCost(ctx, tier+1))
	}
}

func TestSuccessRateDecreasesWithTier(t *testing.T) {
	_, svc := newFusionFixture(&scriptRNG{})
	ctx := context.Background()

	assert.Equal(t, 70.0, svc.SuccessRate(ctx, 1))
	assert.Equal(t, 20.0, svc.SuccessRate(ctx, 11))
	for tier := int32(1); tier < 11; tier++ {
		assert.Greater(t, svc.SuccessRate(ctx, tier), svc.SuccessRate(ctx, tier+1))
	}
	// 未配置的阶级退回 50
	assert.Equal(t, 50.0, svc.SuccessRate(ctx, 12))
}

func TestCombineElementsSymmetric(t *testing.T) {
	_, svc := newFusionFixture(&scriptRNG{})
	ctx := context.Background()

	assert.Equal(t, "umbral", svc.CombineElements(ctx, "infernal", "abyssal"))
	assert.Equal(t, "umbral", svc.CombineElements(ctx, "abyssal", "infernal"))
	assert.Equal(t, "infernal", svc.CombineElements(ctx, "infernal", "infernal"))
	// 未定义组合退回第一个元素
	assert.Equal(t, "mystery", svc.CombineElements(ctx, "mystery", "abyssal"))
}

func TestFuseSuccess(t *testing.T) {
	// 0 <= 70% 必成功
	rng := &scriptRNG{floats: []float64{0}, ints: []int{0}}
	repo, svc := newFusionFixture(rng)

	player := model.NewPlayer(1)
	player.Rikis = 5000
	repo.addPlayer(player)
	m1, m2 := seedFusionScenario(repo, player)

	result, err := svc.Fuse(context.Background(), player.ID, m1.ID, m2.ID, false)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, int32(2), result.OutputTier)
	assert.Equal(t, "umbral", result.OutputElement)
	assert.Equal(t, int64(1000), result.Cost)
	assert.Equal(t, int64(4000), player.Rikis)
	assert.Equal(t, int32(1), player.UniqueMaidens)

	// 两个输入堆叠都被消耗
	maidens, _ := repo.ListMaidens(context.Background(), player.ID)
	require.Len(t, maidens, 1)
	assert.Equal(t, int64(3), maidens[0].TemplateID)
}

func TestFuseFailureGrantsShards(t *testing.T) {
	// 0.99 → 99 > 70% 必失败，碎片掷出 1+4=5
	rng := &scriptRNG{floats: []float64{0.99}, ints: []int{4}}
	repo, svc := newFusionFixture(rng)

	player := model.NewPlayer(1)
	player.Rikis = 5000
	repo.addPlayer(player)
	m1, m2 := seedFusionScenario(repo, player)

	result, err := svc.Fuse(context.Background(), player.ID, m1.ID, m2.ID, false)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Nil(t, result.Output)
	assert.Equal(t, int64(5), result.ShardsGained)
	assert.Equal(t, int64(5), player.FusionShards["tier_1"])
	// 失败同样消耗输入与费用
	assert.Equal(t, int64(4000), player.Rikis)
	maidens, _ := repo.ListMaidens(context.Background(), player.ID)
	assert.Empty(t, maidens)
}

func TestFuseTierMismatchNoMutation(t *testing.T) {
	repo, svc := newFusionFixture(&scriptRNG{})

	player := model.NewPlayer(1)
	player.Rikis = 5000
	repo.addPlayer(player)
	m1, _ := seedFusionScenario(repo, player)

	higher := &model.MaidenBase{ID: 9, Name: "Aster", Tier: 2, Element: "tempest"}
	repo.addTemplate(higher)
	m3 := repo.addMaiden(model.NewMaiden(player.ID, higher))

	_, err := svc.Fuse(context.Background(), player.ID, m1.ID, m3.ID, false)
	require.Error(t, err)
	assert.True(t, gameerr.IsInvalidOperation(err))

	assert.Equal(t, int64(5000), player.Rikis)
	maidens, _ := repo.ListMaidens(context.Background(), player.ID)
	assert.Len(t, maidens, 3)
}

func TestFuseMaxTierRejected(t *testing.T) {
	repo, svc := newFusionFixture(&scriptRNG{})

	player := model.NewPlayer(1)
	player.Rikis = 50000000
	repo.addPlayer(player)

	top := &model.MaidenBase{ID: 20, Name: "Astraea", Tier: model.MaxTier, Element: "radiant"}
	repo.addTemplate(top)
	m1 := repo.addMaiden(model.NewMaiden(player.ID, top))
	m1.Quantity = 2

	_, err := svc.Fuse(context.Background(), player.ID, m1.ID, m1.ID, false)
	require.Error(t, err)
	assert.True(t, gameerr.IsInvalidOperation(err))
	assert.Equal(t, int32(2), m1.Quantity)
}

func TestFuseSameStackNeedsTwoCopies(t *testing.T) {
	repo, svc := newFusionFixture(&scriptRNG{})

	player := model.NewPlayer(1)
	player.Rikis = 5000
	repo.addPlayer(player)
	m1, _ := seedFusionScenario(repo, player)

	_, err := svc.Fuse(context.Background(), player.ID, m1.ID, m1.ID, false)
	require.Error(t, err)
	assert.True(t, gameerr.IsInvalidOperation(err))
}

func TestFuseSameStackWithTwoCopies(t *testing.T) {
	rng := &scriptRNG{floats: []float64{0}, ints: []int{0}}
	repo, svc := newFusionFixture(rng)

	player := model.NewPlayer(1)
	player.Rikis = 5000
	repo.addPlayer(player)
	m1, _ := seedFusionScenario(repo, player)
	m1.Quantity = 2

	result, err := svc.Fuse(context.Background(), player.ID, m1.ID, m1.ID, false)
	require.NoError(t, err)
	require.True(t, result.Success)

	// infernal|infernal → infernal，没有二阶 infernal 模板时退回全阶级
	maidens, _ := repo.ListMaidens(context.Background(), player.ID)
	for _, m := range maidens {
		assert.NotEqual(t, m1.ID, m.ID)
	}
}

func TestFuseInsufficientRikis(t *testing.T) {
	repo, svc := newFusionFixture(&scriptRNG{})

	player := model.NewPlayer(1)
	player.Rikis = 10
	repo.addPlayer(player)
	m1, m2 := seedFusionScenario(repo, player)

	_, err := svc.Fuse(context.Background(), player.ID, m1.ID, m2.ID, false)
	require.Error(t, err)
	assert.True(t, gameerr.IsInsufficientResources(err))

	maidens, _ := repo.ListMaidens(context.Background(), player.ID)
	assert.Len(t, maidens, 2)
}

func TestFuseShardRedemptionForcesSuccess(t *testing.T) {
	// 不消耗随机数也必须成功
	rng := &scriptRNG{floats: []float64{0.99}, ints: []int{0}}
	repo, svc := newFusionFixture(rng)

	player := model.NewPlayer(1)
	player.Rikis = 5000
	player.FusionShards = map[string]int64{"tier_1": 120}
	repo.addPlayer(player)
	m1, m2 := seedFusionScenario(repo, player)

	result, err := svc.Fuse(context.Background(), player.ID, m1.ID, m2.ID, true)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.True(t, result.UsedShards)
	assert.Equal(t, int64(100), result.ShardsSpent)
	assert.Equal(t, int64(20), player.FusionShards["tier_1"])
	assert.Equal(t, 100.0, result.SuccessRate)
}

func TestFuseShardRedemptionInsufficient(t *testing.T) {
	repo, svc := newFusionFixture(&scriptRNG{})

	player := model.NewPlayer(1)
	player.Rikis = 5000
	player.FusionShards = map[string]int64{"tier_1": 99}
	repo.addPlayer(player)
	m1, m2 := seedFusionScenario(repo, player)

	_, err := svc.Fuse(context.Background(), player.ID, m1.ID, m2.ID, true)
	require.Error(t, err)
	assert.True(t, gameerr.IsInsufficientResources(err))

	assert.Equal(t, int64(99), player.FusionShards["tier_1"])
	assert.Equal(t, int64(5000), player.Rikis)
}

func TestRedeemableTiers(t *testing.T) {
	_, svc := newFusionFixture(&scriptRNG{})

	player := model.NewPlayer(1)
	player.FusionShards = map[string]int64{
		"tier_1": 120,
		"tier_2": 99,
		"tier_5": 100,
	}

	tiers := svc.RedeemableTiers(context.Background(), player)
	assert.Equal(t, []int32{1, 5}, tiers)
}
