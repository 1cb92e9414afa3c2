package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/rikirpg/rikicore/internal/dao"
	"github.com/rikirpg/rikicore/internal/gameerr"
	"github.com/rikirpg/rikicore/internal/metrics"
	"github.com/rikirpg/rikicore/internal/model"
	"github.com/rikirpg/rikicore/pkg/database/postgres"
	"github.com/rikirpg/rikicore/pkg/database/redis"
	"github.com/rikirpg/rikicore/pkg/logger"
)

// 玩家锁参数
const (
	playerLockPrefix      = "rikicore:lock:player:"
	playerLockTTL         = 10 * time.Second
	playerLockWaitTimeout = 3 * time.Second
)

// GameRepository 游戏数据仓储接口
// 服务层唯一的数据入口，聚合数据库、缓存与分布式锁
type GameRepository interface {
	// WithTx 在数据库事务中执行函数
	WithTx(ctx context.Context, fn func(postgres.Tx) error) error
	// WithPlayerLock 持有玩家分布式锁执行函数
	// 锁不可用时返回 gameerr.ErrLockUnavailable
	WithPlayerLock(ctx context.Context, playerID int64, fn func() error) error

	// 玩家
	GetPlayer(ctx context.Context, playerID int64) (*model.Player, error)
	GetPlayerForUpdate(ctx context.Context, tx postgres.Tx, playerID int64) (*model.Player, error)
	CreatePlayer(ctx context.Context, tx postgres.Tx, player *model.Player) error
	UpdatePlayer(ctx context.Context, tx postgres.Tx, player *model.Player) error
	InvalidatePlayer(ctx context.Context, playerID int64)

	// 女仆
	ListMaidens(ctx context.Context, playerID int64) ([]*model.Maiden, error)
	GetMaidenForUpdate(ctx context.Context, tx postgres.Tx, playerID, maidenID int64) (*model.Maiden, error)
	UpdateMaidenQuantity(ctx context.Context, tx postgres.Tx, maidenID int64, quantity int32) error
	DeleteMaiden(ctx context.Context, tx postgres.Tx, maidenID int64) error
	// AddMaidenToStack 将模板加入玩家库存：已有同模板同阶堆叠则数量加一，否则新建
	// 返回堆叠与是否为图鉴新增
	AddMaidenToStack(ctx context.Context, tx postgres.Tx, playerID int64, base *model.MaidenBase) (*model.Maiden, bool, error)
	ListOwnedTemplateIDs(ctx context.Context, tx postgres.Tx, playerID int64) (map[int64]struct{}, error)

	// 模板
	GetTemplate(ctx context.Context, templateID int64) (*model.MaidenBase, error)
	ListTemplatesByTier(ctx context.Context, tier int32) ([]*model.MaidenBase, error)
	ListTemplatesByTiers(ctx context.Context, tiers []int32) ([]*model.MaidenBase, error)
	ListSummonableByTiers(ctx context.Context, tiers []int32) ([]*model.MaidenBase, error)
	ListTemplatesByTierAndElement(ctx context.Context, tier int32, element string) ([]*model.MaidenBase, error)

	// 审计
	InsertAudit(ctx context.Context, tx postgres.Tx, record *model.AuditRecord) error
	ListAuditByPlayer(ctx context.Context, playerID int64, limit int) ([]*model.AuditRecord, error)
	ListAuditSince(ctx context.Context, since time.Time, limit int) ([]*model.AuditRecord, error)
	DeleteAuditBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// 召唤概率表缓存，按等级缓存归一化后的结果
	GetCachedRates(ctx context.Context, level int32) map[int32]float64
	SetCachedRates(ctx context.Context, level int32, rates map[int32]float64)
}

// gameRepository 仓储实现
type gameRepository struct {
	db      *postgres.Client
	rdb     *redis.Client
	logger  logger.Logger
	metrics *metrics.GameMetrics

	players   *dao.PlayerDAO
	maidens   *dao.MaidenDAO
	templates *dao.TemplateDAO
	audits    *dao.AuditDAO
	cache     *dao.CacheDAO
}

// New 创建游戏仓储
func New(db *postgres.Client, rdb *redis.Client, l logger.Logger, m *metrics.GameMetrics) GameRepository {
	return &gameRepository{
		db:        db,
		rdb:       rdb,
		logger:    l.Named("repository.game"),
		metrics:   m,
		players:   dao.NewPlayerDAO(db, l, m),
		maidens:   dao.NewMaidenDAO(db, l, m),
		templates: dao.NewTemplateDAO(db, l, m),
		audits:    dao.NewAuditDAO(db, l, m),
		cache:     dao.NewCacheDAO(rdb, l, m),
	}
}

func (r *gameRepository) WithTx(ctx context.Context, fn func(postgres.Tx) error) error {
	return r.db.WithTx(ctx, fn)
}

// WithPlayerLock 持有玩家分布式锁执行函数
func (r *gameRepository) WithPlayerLock(ctx context.Context, playerID int64, fn func() error) error {
	key := fmt.Sprintf("%s%d", playerLockPrefix, playerID)

	err := r.rdb.WithLock(ctx, key, playerLockTTL, playerLockWaitTimeout, fn)
	if err != nil {
		if errors.Is(err, redis.ErrLockFailed) {
			r.metrics.RecordLockFailure()
			return errors.WithSecondaryError(gameerr.ErrLockUnavailable, err)
		}
		if errors.Is(err, redis.ErrCircuitOpen) {
			// 熔断期间无法保证互斥，拒绝执行写操作
			r.metrics.RecordLockFailure()
			r.logger.Warn("lock service unavailable, rejecting action", "player_id", playerID)
			return errors.WithSecondaryError(gameerr.ErrLockUnavailable, err)
		}
		return err
	}
	return nil
}

// GetPlayer 获取玩家，缓存优先
func (r *gameRepository) GetPlayer(ctx context.Context, playerID int64) (*model.Player, error) {
	if cached := r.cache.GetPlayer(ctx, playerID); cached != nil {
		return cached, nil
	}

	player, err := r.players.GetByID(ctx, playerID)
	if err != nil {
		return nil, err
	}

	r.cache.SetPlayer(ctx, player)
	return player, nil
}

func (r *gameRepository) GetPlayerForUpdate(ctx context.Context, tx postgres.Tx, playerID int64) (*model.Player, error) {
	return r.players.GetByIDForUpdate(ctx, tx, playerID)
}

func (r *gameRepository) CreatePlayer(ctx context.Context, tx postgres.Tx, player *model.Player) error {
	return r.players.Create(ctx, tx, player)
}

func (r *gameRepository) UpdatePlayer(ctx context.Context, tx postgres.Tx, player *model.Player) error {
	return r.players.Update(ctx, tx, player)
}

// InvalidatePlayer 使玩家缓存失效，事务提交后调用
func (r *gameRepository) InvalidatePlayer(ctx context.Context, playerID int64) {
	r.cache.InvalidatePlayer(ctx, playerID)
}

func (r *gameRepository) ListMaidens(ctx context.Context, playerID int64) ([]*model.Maiden, error) {
	return r.maidens.ListByPlayer(ctx, playerID)
}

func (r *gameRepository) GetMaidenForUpdate(ctx context.Context, tx postgres.Tx, playerID, maidenID int64) (*model.Maiden, error) {
	return r.maidens.GetByIDForUpdate(ctx, tx, playerID, maidenID)
}

func (r *gameRepository) UpdateMaidenQuantity(ctx context.Context, tx postgres.Tx, maidenID int64, quantity int32) error {
	return r.maidens.UpdateQuantity(ctx, tx, maidenID, quantity)
}

func (r *gameRepository) DeleteMaiden(ctx context.Context, tx postgres.Tx, maidenID int64) error {
	return r.maidens.Delete(ctx, tx, maidenID)
}

// AddMaidenToStack 将模板加入玩家库存
func (r *gameRepository) AddMaidenToStack(ctx context.Context, tx postgres.Tx, playerID int64, base *model.MaidenBase) (*model.Maiden, bool, error) {
	stack, err := r.maidens.GetStackForUpdate(ctx, tx, playerID, base.ID, base.Tier)
	if err == nil {
		stack.Quantity++
		if err := r.maidens.UpdateQuantity(ctx, tx, stack.ID, stack.Quantity); err != nil {
			return nil, false, err
		}
		return stack, false, nil
	}
	if !errors.Is(err, gameerr.ErrMaidenNotFound) {
		return nil, false, err
	}

	maiden := model.NewMaiden(playerID, base)
	if err := r.maidens.Insert(ctx, tx, maiden); err != nil {
		return nil, false, err
	}
	return maiden, true, nil
}

func (r *gameRepository) ListOwnedTemplateIDs(ctx context.Context, tx postgres.Tx, playerID int64) (map[int64]struct{}, error) {
	return r.maidens.ListOwnedTemplateIDs(ctx, tx, playerID)
}

func (r *gameRepository) GetTemplate(ctx context.Context, templateID int64) (*model.MaidenBase, error) {
	return r.templates.GetByID(ctx, templateID)
}

func (r *gameRepository) ListTemplatesByTier(ctx context.Context, tier int32) ([]*model.MaidenBase, error) {
	return r.templates.ListByTier(ctx, tier)
}

func (r *gameRepository) ListTemplatesByTiers(ctx context.Context, tiers []int32) ([]*model.MaidenBase, error) {
	return r.templates.ListByTiers(ctx, tiers)
}

func (r *gameRepository) ListSummonableByTiers(ctx context.Context, tiers []int32) ([]*model.MaidenBase, error) {
	return r.templates.ListSummonableByTiers(ctx, tiers)
}

func (r *gameRepository) ListTemplatesByTierAndElement(ctx context.Context, tier int32, element string) ([]*model.MaidenBase, error) {
	return r.templates.ListByTierAndElement(ctx, tier, element)
}

func (r *gameRepository) InsertAudit(ctx context.Context, tx postgres.Tx, record *model.AuditRecord) error {
	return r.audits.Insert(ctx, tx, record)
}

func (r *gameRepository) ListAuditByPlayer(ctx context.Context, playerID int64, limit int) ([]*model.AuditRecord, error) {
	return r.audits.ListByPlayer(ctx, playerID, uint64(limit))
}

func (r *gameRepository) ListAuditSince(ctx context.Context, since time.Time, limit int) ([]*model.AuditRecord, error) {
	return r.audits.ListSince(ctx, since, uint64(limit))
}

func (r *gameRepository) DeleteAuditBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.audits.DeleteBefore(ctx, cutoff)
}

func (r *gameRepository) GetCachedRates(ctx context.Context, level int32) map[int32]float64 {
	return r.cache.GetRates(ctx, level)
}

func (r *gameRepository) SetCachedRates(ctx context.Context, level int32, rates map[int32]float64) {
	r.cache.SetRates(ctx, level, rates)
}
