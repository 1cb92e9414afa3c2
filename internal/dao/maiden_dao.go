package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/rikirpg/rikicore/internal/gameerr"
	"github.com/rikirpg/rikicore/internal/metrics"
	"github.com/rikirpg/rikicore/internal/model"
	"github.com/rikirpg/rikicore/pkg/database/postgres"
	"github.com/rikirpg/rikicore/pkg/logger"
)

var maidenColumns = []string{
	"id", "player_id", "template_id", "tier", "level", "quantity", "element",
	"created_at", "updated_at",
}

// MaidenDAO 女仆堆叠数据访问对象
type MaidenDAO struct {
	db      *postgres.Client
	logger  logger.Logger
	metrics *metrics.GameMetrics
}

// NewMaidenDAO 创建女仆 DAO
func NewMaidenDAO(db *postgres.Client, l logger.Logger, m *metrics.GameMetrics) *MaidenDAO {
	return &MaidenDAO{
		db:      db,
		logger:  l.Named("dao.maiden"),
		metrics: m,
	}
}

// ListByPlayer 获取玩家全部女仆堆叠
func (d *MaidenDAO) ListByPlayer(ctx context.Context, playerID int64) ([]*model.Maiden, error) {
	start := time.Now()
	defer func() {
		d.metrics.RecordDBQuery("maiden_list", true, time.Since(start).Seconds())
	}()

	query, args, err := postgres.QueryBuilder.
		Select(maidenColumns...).
		From("maidens").
		Where("player_id = ?", playerID).
		OrderBy("tier DESC", "template_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	return postgres.QueryAll[model.Maiden](d.db, ctx, query, args...)
}

// GetByIDForUpdate 在事务内按 ID 获取女仆堆叠并加行锁，校验归属
func (d *MaidenDAO) GetByIDForUpdate(ctx context.Context, tx postgres.Tx, playerID, maidenID int64) (*model.Maiden, error) {
	start := time.Now()
	defer func() {
		d.metrics.RecordDBQuery("maiden_select_for_update", true, time.Since(start).Seconds())
	}()

	query, args, err := postgres.QueryBuilder.
		Select(maidenColumns...).
		From("maidens").
		Where("id = ? AND player_id = ?", maidenID, playerID).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var maiden model.Maiden
	if err := tx.QueryOne(ctx, &maiden, query, args...); err != nil {
		if errors.Is(err, postgres.ErrNoRows) {
			return nil, gameerr.ErrMaidenNotFound
		}
		d.logger.Error("failed to lock maiden row", "maiden_id", maidenID, "error", err)
		return nil, fmt.Errorf("failed to lock maiden row: %w", err)
	}

	return &maiden, nil
}

// GetStackForUpdate 在事务内按模板和阶级获取堆叠并加行锁
// 不存在时返回 gameerr.ErrMaidenNotFound
func (d *MaidenDAO) GetStackForUpdate(ctx context.Context, tx postgres.Tx, playerID, templateID int64, tier int32) (*model.Maiden, error) {
	query, args, err := postgres.QueryBuilder.
		Select(maidenColumns...).
		From("maidens").
		Where("player_id = ? AND template_id = ? AND tier = ?", playerID, templateID, tier).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var maiden model.Maiden
	if err := tx.QueryOne(ctx, &maiden, query, args...); err != nil {
		if errors.Is(err, postgres.ErrNoRows) {
			return nil, gameerr.ErrMaidenNotFound
		}
		return nil, fmt.Errorf("failed to lock maiden stack: %w", err)
	}

	return &maiden, nil
}

// Insert 创建女仆堆叠
func (d *MaidenDAO) Insert(ctx context.Context, tx postgres.Tx, maiden *model.Maiden) error {
	start := time.Now()
	defer func() {
		d.metrics.RecordDBQuery("maiden_insert", true, time.Since(start).Seconds())
	}()

	query, args, err := postgres.QueryBuilder.
		Insert("maidens").
		Columns("player_id", "template_id", "tier", "level", "quantity", "element", "created_at", "updated_at").
		Values(maiden.PlayerID, maiden.TemplateID, maiden.Tier, maiden.Level, maiden.Quantity, maiden.Element, maiden.CreatedAt, maiden.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if err := tx.QueryOne(ctx, maiden, query, args...); err != nil {
		d.logger.Error("failed to insert maiden", "player_id", maiden.PlayerID, "template_id", maiden.TemplateID, "error", err)
		return fmt.Errorf("failed to insert maiden: %w", err)
	}

	return nil
}

// UpdateQuantity 更新堆叠数量
func (d *MaidenDAO) UpdateQuantity(ctx context.Context, tx postgres.Tx, maidenID int64, quantity int32) error {
	start := time.Now()
	defer func() {
		d.metrics.RecordDBQuery("maiden_update", true, time.Since(start).Seconds())
	}()

	query, args, err := postgres.QueryBuilder.
		Update("maidens").
		Set("quantity", quantity).
		Set("updated_at", time.Now().UTC()).
		Where("id = ?", maidenID).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	affected, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update maiden quantity: %w", err)
	}
	if affected == 0 {
		return gameerr.ErrMaidenNotFound
	}

	return nil
}

// Delete 删除女仆堆叠
func (d *MaidenDAO) Delete(ctx context.Context, tx postgres.Tx, maidenID int64) error {
	start := time.Now()
	defer func() {
		d.metrics.RecordDBQuery("maiden_delete", true, time.Since(start).Seconds())
	}()

	query, args, err := postgres.QueryBuilder.
		Delete("maidens").
		Where("id = ?", maidenID).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}

	affected, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete maiden: %w", err)
	}
	if affected == 0 {
		return gameerr.ErrMaidenNotFound
	}

	return nil
}

// ListOwnedTemplateIDs 在事务内获取玩家已拥有的模板 ID 集合
func (d *MaidenDAO) ListOwnedTemplateIDs(ctx context.Context, tx postgres.Tx, playerID int64) (map[int64]struct{}, error) {
	query, args, err := postgres.QueryBuilder.
		Select("id", "player_id", "template_id", "tier", "level", "quantity", "element", "created_at", "updated_at").
		From("maidens").
		Where("player_id = ?", playerID).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var maidens []*model.Maiden
	if err := tx.QueryAll(ctx, &maidens, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list owned templates: %w", err)
	}

	owned := make(map[int64]struct{}, len(maidens))
	for _, m := range maidens {
		owned[m.TemplateID] = struct{}{}
	}
	return owned, nil
}
