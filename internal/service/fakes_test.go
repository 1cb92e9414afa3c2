package service

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/rikirpg/rikicore/internal/gameconfig"
	"github.com/rikirpg/rikicore/internal/gameerr"
	"github.com/rikirpg/rikicore/internal/metrics"
	"github.com/rikirpg/rikicore/internal/model"
	"github.com/rikirpg/rikicore/pkg/database/postgres"
	"github.com/rikirpg/rikicore/pkg/logger"
)

// fakeTx 内存事务桩，服务层只透传不直接使用
type fakeTx struct{}

func (t *fakeTx) QueryOne(ctx context.Context, dest any, sql string, args ...any) error {
	return postgres.ErrNoRows
}
func (t *fakeTx) QueryAll(ctx context.Context, dest any, sql string, args ...any) error { return nil }
func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (int64, error)      { return 0, nil }
func (t *fakeTx) Exists(ctx context.Context, sql string, args ...any) (bool, error) {
	return false, nil
}
func (t *fakeTx) InsertBatch(ctx context.Context, sql string, argsList [][]any) (int64, error) {
	return int64(len(argsList)), nil
}
func (t *fakeTx) Commit(ctx context.Context) error   { return nil }
func (t *fakeTx) Rollback(ctx context.Context) error { return nil }

// fakeRepo 内存仓储，直接持有模型对象
type fakeRepo struct {
	players   map[int64]*model.Player
	maidens   map[int64]*model.Maiden
	templates map[int64]*model.MaidenBase
	audits    []*model.AuditRecord
	rates     map[int32]map[int32]float64

	nextMaidenID int64
	lockBusy     bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		players:      make(map[int64]*model.Player),
		maidens:      make(map[int64]*model.Maiden),
		templates:    make(map[int64]*model.MaidenBase),
		rates:        make(map[int32]map[int32]float64),
		nextMaidenID: 1,
	}
}

func (r *fakeRepo) addPlayer(p *model.Player) { r.players[p.ID] = p }

func (r *fakeRepo) addTemplate(t *model.MaidenBase) { r.templates[t.ID] = t }

func (r *fakeRepo) addMaiden(m *model.Maiden) *model.Maiden {
	m.ID = r.nextMaidenID
	r.nextMaidenID++
	r.maidens[m.ID] = m
	return m
}

func (r *fakeRepo) WithTx(ctx context.Context, fn func(postgres.Tx) error) error {
	return fn(&fakeTx{})
}

func (r *fakeRepo) WithPlayerLock(ctx context.Context, playerID int64, fn func() error) error {
	if r.lockBusy {
		return gameerr.ErrLockUnavailable
	}
	return fn()
}

func (r *fakeRepo) GetPlayer(ctx context.Context, playerID int64) (*model.Player, error) {
	p, ok := r.players[playerID]
	if !ok {
		return nil, gameerr.ErrPlayerNotFound
	}
	return p, nil
}

func (r *fakeRepo) GetPlayerForUpdate(ctx context.Context, tx postgres.Tx, playerID int64) (*model.Player, error) {
	return r.GetPlayer(ctx, playerID)
}

func (r *fakeRepo) CreatePlayer(ctx context.Context, tx postgres.Tx, player *model.Player) error {
	r.players[player.ID] = player
	return nil
}

func (r *fakeRepo) UpdatePlayer(ctx context.Context, tx postgres.Tx, player *model.Player) error {
	if _, ok := r.players[player.ID]; !ok {
		return gameerr.ErrPlayerNotFound
	}
	r.players[player.ID] = player
	return nil
}

func (r *fakeRepo) InvalidatePlayer(ctx context.Context, playerID int64) {}

func (r *fakeRepo) ListMaidens(ctx context.Context, playerID int64) ([]*model.Maiden, error) {
	var out []*model.Maiden
	for _, m := range r.maidens {
		if m.PlayerID == playerID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetMaidenForUpdate(ctx context.Context, tx postgres.Tx, playerID, maidenID int64) (*model.Maiden, error) {
	m, ok := r.maidens[maidenID]
	if !ok || m.PlayerID != playerID {
		return nil, gameerr.ErrMaidenNotFound
	}
	return m, nil
}

func (r *fakeRepo) UpdateMaidenQuantity(ctx context.Context, tx postgres.Tx, maidenID int64, quantity int32) error {
	m, ok := r.maidens[maidenID]
	if !ok {
		return gameerr.ErrMaidenNotFound
	}
	m.Quantity = quantity
	return nil
}

func (r *fakeRepo) DeleteMaiden(ctx context.Context, tx postgres.Tx, maidenID int64) error {
	delete(r.maidens, maidenID)
	return nil
}

func (r *fakeRepo) AddMaidenToStack(ctx context.Context, tx postgres.Tx, playerID int64, base *model.MaidenBase) (*model.Maiden, bool, error) {
	for _, m := range r.maidens {
		if m.PlayerID == playerID && m.TemplateID == base.ID && m.Tier == base.Tier {
			m.Quantity++
			return m, false, nil
		}
	}
	stack := r.addMaiden(model.NewMaiden(playerID, base))
	for _, m := range r.maidens {
		if m.ID != stack.ID && m.PlayerID == playerID && m.TemplateID == base.ID {
			return stack, false, nil
		}
	}
	return stack, true, nil
}

func (r *fakeRepo) ListOwnedTemplateIDs(ctx context.Context, tx postgres.Tx, playerID int64) (map[int64]struct{}, error) {
	owned := make(map[int64]struct{})
	for _, m := range r.maidens {
		if m.PlayerID == playerID {
			owned[m.TemplateID] = struct{}{}
		}
	}
	return owned, nil
}

func (r *fakeRepo) GetTemplate(ctx context.Context, templateID int64) (*model.MaidenBase, error) {
	t, ok := r.templates[templateID]
	if !ok {
		return nil, gameerr.ErrTemplateNotFound
	}
	return t, nil
}

func (r *fakeRepo) ListTemplatesByTier(ctx context.Context, tier int32) ([]*model.MaidenBase, error) {
	return r.ListTemplatesByTiers(ctx, []int32{tier})
}

func (r *fakeRepo) ListTemplatesByTiers(ctx context.Context, tiers []int32) ([]*model.MaidenBase, error) {
	want := make(map[int32]struct{}, len(tiers))
	for _, t := range tiers {
		want[t] = struct{}{}
	}
	var out []*model.MaidenBase
	for _, tpl := range r.templates {
		if _, ok := want[tpl.Tier]; ok {
			out = append(out, tpl)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListSummonableByTiers(ctx context.Context, tiers []int32) ([]*model.MaidenBase, error) {
	all, _ := r.ListTemplatesByTiers(ctx, tiers)
	var out []*model.MaidenBase
	for _, tpl := range all {
		if tpl.Summonable {
			out = append(out, tpl)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListTemplatesByTierAndElement(ctx context.Context, tier int32, element string) ([]*model.MaidenBase, error) {
	all, _ := r.ListTemplatesByTier(ctx, tier)
	var out []*model.MaidenBase
	for _, tpl := range all {
		if tpl.Element == element {
			out = append(out, tpl)
		}
	}
	return out, nil
}

func (r *fakeRepo) InsertAudit(ctx context.Context, tx postgres.Tx, record *model.AuditRecord) error {
	r.audits = append(r.audits, record)
	return nil
}

func (r *fakeRepo) ListAuditByPlayer(ctx context.Context, playerID int64, limit int) ([]*model.AuditRecord, error) {
	var out []*model.AuditRecord
	for _, rec := range r.audits {
		if rec.PlayerID == playerID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListAuditSince(ctx context.Context, since time.Time, limit int) ([]*model.AuditRecord, error) {
	var out []*model.AuditRecord
	for _, rec := range r.audits {
		if rec.CreatedAt.After(since) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeRepo) DeleteAuditBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var kept []*model.AuditRecord
	var deleted int64
	for _, rec := range r.audits {
		if rec.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	r.audits = kept
	return deleted, nil
}

func (r *fakeRepo) GetCachedRates(ctx context.Context, level int32) map[int32]float64 {
	return r.rates[level]
}

func (r *fakeRepo) SetCachedRates(ctx context.Context, level int32, rates map[int32]float64) {
	r.rates[level] = rates
}

// unreachableSource 永远失败的配置来源，Store 会退回内置默认值
type unreachableSource struct{}

func (unreachableSource) Load(ctx context.Context, key string) (*model.ConfigEntry, error) {
	return nil, errors.New("config storage unreachable")
}

func (unreachableSource) LoadAll(ctx context.Context) ([]*model.ConfigEntry, error) {
	return nil, errors.New("config storage unreachable")
}

func (unreachableSource) Upsert(ctx context.Context, entry *model.ConfigEntry) error {
	return errors.New("config storage unreachable")
}

// newTestStore 使用内置默认值的配置存储
func newTestStore() *gameconfig.Store {
	return gameconfig.NewStore(unreachableSource{}, logger.NewNoop())
}

func newTestMetrics() *metrics.GameMetrics {
	return metrics.New("rikicore_test")
}

// scriptRNG 按脚本回放随机值，耗尽后退回中间值
type scriptRNG struct {
	floats []float64
	ints   []int
}

func (r *scriptRNG) Float64() float64 {
	if len(r.floats) == 0 {
		return 0.5
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptRNG) IntN(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	if v >= n {
		v = n - 1
	}
	return v
}
