package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/rikirpg/rikicore/internal/metrics"
	"github.com/rikirpg/rikicore/internal/model"
	"github.com/rikirpg/rikicore/pkg/database/postgres"
	"github.com/rikirpg/rikicore/pkg/logger"
)

// ConfigDAO 游戏配置数据访问对象，实现 gameconfig.Source
type ConfigDAO struct {
	db      *postgres.Client
	logger  logger.Logger
	metrics *metrics.GameMetrics
}

// NewConfigDAO 创建配置 DAO
func NewConfigDAO(db *postgres.Client, l logger.Logger, m *metrics.GameMetrics) *ConfigDAO {
	return &ConfigDAO{
		db:      db,
		logger:  l.Named("dao.config"),
		metrics: m,
	}
}

// Load 读取单个顶层配置条目
func (d *ConfigDAO) Load(ctx context.Context, key string) (*model.ConfigEntry, error) {
	start := time.Now()
	defer func() {
		d.metrics.RecordDBQuery("config_select", true, time.Since(start).Seconds())
	}()

	query, args, err := postgres.QueryBuilder.
		Select("key", "value", "modified_by", "updated_at").
		From("game_config").
		Where("key = ?", key).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	entry, err := postgres.QueryOne[model.ConfigEntry](d.db, ctx, query, args...)
	if err != nil {
		if errors.Is(err, postgres.ErrNoRows) {
			return nil, fmt.Errorf("config key %q not found: %w", key, err)
		}
		return nil, fmt.Errorf("failed to load config %q: %w", key, err)
	}

	return entry, nil
}

// LoadAll 读取全部配置条目
func (d *ConfigDAO) LoadAll(ctx context.Context) ([]*model.ConfigEntry, error) {
	start := time.Now()
	defer func() {
		d.metrics.RecordDBQuery("config_list", true, time.Since(start).Seconds())
	}()

	query, args, err := postgres.QueryBuilder.
		Select("key", "value", "modified_by", "updated_at").
		From("game_config").
		OrderBy("key").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	return postgres.QueryAll[model.ConfigEntry](d.db, ctx, query, args...)
}

// Upsert 写入配置条目，键冲突时覆盖
func (d *ConfigDAO) Upsert(ctx context.Context, entry *model.ConfigEntry) error {
	start := time.Now()
	defer func() {
		d.metrics.RecordDBQuery("config_upsert", true, time.Since(start).Seconds())
	}()

	query, args, err := postgres.QueryBuilder.
		Insert("game_config").
		Columns("key", "value", "modified_by", "updated_at").
		Values(entry.Key, entry.Value, entry.ModifiedBy, entry.UpdatedAt).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, modified_by = EXCLUDED.modified_by, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert: %w", err)
	}

	if _, err := d.db.Exec(ctx, query, args...); err != nil {
		d.logger.Error("failed to upsert config", "key", entry.Key, "error", err)
		return fmt.Errorf("failed to upsert config %q: %w", entry.Key, err)
	}

	return nil
}
