package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/rikirpg/rikicore/internal/metrics"
	"github.com/rikirpg/rikicore/internal/model"
	"github.com/rikirpg/rikicore/pkg/database/postgres"
	"github.com/rikirpg/rikicore/pkg/logger"
)

var auditColumns = []string{
	"id", "player_id", "type", "details", "context", "created_at",
}

// AuditDAO 审计日志数据访问对象
type AuditDAO struct {
	db      *postgres.Client
	logger  logger.Logger
	metrics *metrics.GameMetrics
}

// NewAuditDAO 创建审计 DAO
func NewAuditDAO(db *postgres.Client, l logger.Logger, m *metrics.GameMetrics) *AuditDAO {
	return &AuditDAO{
		db:      db,
		logger:  l.Named("dao.audit"),
		metrics: m,
	}
}

// Insert 在事务内写入审计记录
func (d *AuditDAO) Insert(ctx context.Context, tx postgres.Tx, record *model.AuditRecord) error {
	start := time.Now()
	defer func() {
		d.metrics.RecordDBQuery("audit_insert", true, time.Since(start).Seconds())
	}()

	query, args, err := postgres.QueryBuilder.
		Insert("audit_logs").
		Columns("player_id", "type", "details", "context", "created_at").
		Values(record.PlayerID, record.Type, record.Details, record.Context, record.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		d.logger.Error("failed to insert audit record", "player_id", record.PlayerID, "type", record.Type, "error", err)
		return fmt.Errorf("failed to insert audit record: %w", err)
	}

	return nil
}

// ListByPlayer 按时间倒序获取玩家审计记录
func (d *AuditDAO) ListByPlayer(ctx context.Context, playerID int64, limit uint64) ([]*model.AuditRecord, error) {
	start := time.Now()
	defer func() {
		d.metrics.RecordDBQuery("audit_list", true, time.Since(start).Seconds())
	}()

	query, args, err := postgres.QueryBuilder.
		Select(auditColumns...).
		From("audit_logs").
		Where("player_id = ?", playerID).
		OrderBy("created_at DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	return postgres.QueryAll[model.AuditRecord](d.db, ctx, query, args...)
}

// ListSince 获取某时间点之后的审计记录，导出任务使用
func (d *AuditDAO) ListSince(ctx context.Context, since time.Time, limit uint64) ([]*model.AuditRecord, error) {
	start := time.Now()
	defer func() {
		d.metrics.RecordDBQuery("audit_list", true, time.Since(start).Seconds())
	}()

	query, args, err := postgres.QueryBuilder.
		Select(auditColumns...).
		From("audit_logs").
		Where("created_at >= ?", since).
		OrderBy("created_at").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	return postgres.QueryAll[model.AuditRecord](d.db, ctx, query, args...)
}

// DeleteBefore 删除某时间点之前的审计记录，返回删除行数
func (d *AuditDAO) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	start := time.Now()
	defer func() {
		d.metrics.RecordDBQuery("audit_delete", true, time.Since(start).Seconds())
	}()

	query, args, err := postgres.QueryBuilder.
		Delete("audit_logs").
		Where("created_at < ?", cutoff).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build delete: %w", err)
	}

	deleted, err := d.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit records: %w", err)
	}

	return deleted, nil
}
