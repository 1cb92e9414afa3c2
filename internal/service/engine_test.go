package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rikirpg/rikicore/internal/gameerr"
	"github.com/rikirpg/rikicore/internal/model"
	"github.com/rikirpg/rikicore/internal/ratelimit"
	"github.com/rikirpg/rikicore/pkg/logger"
)

func newEngineFixture() (*fakeRepo, *Engine) {
	repo := newFakeRepo()
	log := logger.NewNoop()
	store := newTestStore()
	m := newTestMetrics()
	leaders := NewLeaderService(repo, log)
	resources := NewResourceService(repo, store, leaders, log, m)
	players := NewPlayerService(repo, store, resources, log)
	summons := NewSummonService(repo, store, resources, NewSeededRNG(1), log, m)
	fusions := NewFusionService(repo, store, resources, leaders, NewSeededRNG(1), log, m)
	limiter := ratelimit.New(log)
	return repo, NewEngine(repo, players, resources, summons, fusions, limiter, log)
}

func TestGetProfileIncludesShardState(t *testing.T) {
	repo, engine := newEngineFixture()
	player := model.NewPlayer(1)
	player.FusionShards = map[string]int64{"tier_1": 120, "tier_3": 40}
	repo.addPlayer(player)

	profile, err := engine.GetProfile(context.Background(), player.ID)
	require.NoError(t, err)

	assert.Equal(t, player.Rikis, profile["rikis"])
	assert.Equal(t, map[string]int64{"tier_1": 120, "tier_3": 40}, profile["fusion_shards"])
	// 碎片达到兑换阈值的阶级出现在档案中
	assert.Equal(t, []int32{1}, profile["redeemable_tiers"])
}

func TestGetProfileUnknownPlayer(t *testing.T) {
	_, engine := newEngineFixture()

	_, err := engine.GetProfile(context.Background(), 404)
	assert.Error(t, err)
}

func TestEngineRateLimitsSummon(t *testing.T) {
	repo, engine := newEngineFixture()
	player := model.NewPlayer(1)
	player.Grace = 100000
	repo.addPlayer(player)
	seedTemplates(repo, 1, 2, 3)

	var lastErr error
	for i := 0; i < 20; i++ {
		if _, err := engine.PerformSummon(context.Background(), player.ID); err != nil {
			lastErr = err
			break
		}
	}

	require.Error(t, lastErr)
	assert.True(t, gameerr.IsCooldown(lastErr))
}
