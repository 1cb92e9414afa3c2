package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"

	"github.com/rikirpg/rikicore/internal/gameerr"
	"github.com/rikirpg/rikicore/internal/metrics"
	"github.com/rikirpg/rikicore/internal/model"
	"github.com/rikirpg/rikicore/pkg/database/postgres"
	"github.com/rikirpg/rikicore/pkg/logger"
)

var templateColumns = []string{
	"id", "name", "tier", "element", "base_stats", "leader_effect", "summonable", "created_at",
}

// TemplateDAO 女仆模板数据访问对象
type TemplateDAO struct {
	db      *postgres.Client
	logger  logger.Logger
	metrics *metrics.GameMetrics
}

// NewTemplateDAO 创建模板 DAO
func NewTemplateDAO(db *postgres.Client, l logger.Logger, m *metrics.GameMetrics) *TemplateDAO {
	return &TemplateDAO{
		db:      db,
		logger:  l.Named("dao.template"),
		metrics: m,
	}
}

// GetByID 根据 ID 获取模板
func (d *TemplateDAO) GetByID(ctx context.Context, templateID int64) (*model.MaidenBase, error) {
	start := time.Now()
	defer func() {
		d.metrics.RecordDBQuery("template_select", true, time.Since(start).Seconds())
	}()

	query, args, err := postgres.QueryBuilder.
		Select(templateColumns...).
		From("maiden_bases").
		Where("id = ?", templateID).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	base, err := postgres.QueryOne[model.MaidenBase](d.db, ctx, query, args...)
	if err != nil {
		if errors.Is(err, postgres.ErrNoRows) {
			return nil, gameerr.ErrTemplateNotFound
		}
		d.logger.Error("failed to get template", "template_id", templateID, "error", err)
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	return base, nil
}

// ListByTier 获取指定阶级的全部模板
func (d *TemplateDAO) ListByTier(ctx context.Context, tier int32) ([]*model.MaidenBase, error) {
	return d.ListByTiers(ctx, []int32{tier})
}

// ListByTiers 获取多个阶级的全部模板
func (d *TemplateDAO) ListByTiers(ctx context.Context, tiers []int32) ([]*model.MaidenBase, error) {
	start := time.Now()
	defer func() {
		d.metrics.RecordDBQuery("template_list", true, time.Since(start).Seconds())
	}()

	query, args, err := postgres.QueryBuilder.
		Select(templateColumns...).
		From("maiden_bases").
		Where(squirrel.Eq{"tier": tiers}).
		OrderBy("tier", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	return postgres.QueryAll[model.MaidenBase](d.db, ctx, query, args...)
}

// ListSummonableByTiers 获取多个阶级中可被召唤的模板
func (d *TemplateDAO) ListSummonableByTiers(ctx context.Context, tiers []int32) ([]*model.MaidenBase, error) {
	start := time.Now()
	defer func() {
		d.metrics.RecordDBQuery("template_list", true, time.Since(start).Seconds())
	}()

	query, args, err := postgres.QueryBuilder.
		Select(templateColumns...).
		From("maiden_bases").
		Where(squirrel.Eq{"tier": tiers}).
		Where("summonable = TRUE").
		OrderBy("tier", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	return postgres.QueryAll[model.MaidenBase](d.db, ctx, query, args...)
}

// ListByTierAndElement 获取指定阶级与属性的模板
func (d *TemplateDAO) ListByTierAndElement(ctx context.Context, tier int32, element string) ([]*model.MaidenBase, error) {
	start := time.Now()
	defer func() {
		d.metrics.RecordDBQuery("template_list", true, time.Since(start).Seconds())
	}()

	query, args, err := postgres.QueryBuilder.
		Select(templateColumns...).
		From("maiden_bases").
		Where("tier = ? AND element = ?", tier, element).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	return postgres.QueryAll[model.MaidenBase](d.db, ctx, query, args...)
}
