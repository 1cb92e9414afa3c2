package audit

import (
	"context"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/rikirpg/rikicore/internal/model"
	"github.com/rikirpg/rikicore/pkg/logger"
)

// 默认导出参数
const (
	defaultWorkers   = 8
	defaultBatchSize = 500
)

// Sink 审计记录的外部去向，实现方自行保证幂等
type Sink interface {
	Export(ctx context.Context, record *model.AuditRecord) error
}

// Store 导出器需要的审计读删能力，由仓储实现
type Store interface {
	ListAuditSince(ctx context.Context, since time.Time, limit int) ([]*model.AuditRecord, error)
	DeleteAuditBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Exporter 异步审计导出器
// 已提交的审计记录经 worker 池分发到 Sink，池满时丢弃而不是阻塞游戏主流程
type Exporter struct {
	repo Store
	sink Sink
	pool *ants.Pool
	log  logger.Logger
}

// Option Exporter 选项
type Option func(*options)

type options struct {
	workers int
}

// WithWorkers 设置分发并发数
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// NewExporter 创建导出器
func NewExporter(repo Store, sink Sink, log logger.Logger, opts ...Option) (*Exporter, error) {
	o := &options{workers: defaultWorkers}
	for _, opt := range opts {
		opt(o)
	}

	pool, err := ants.NewPool(o.workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}

	return &Exporter{
		repo: repo,
		sink: sink,
		pool: pool,
		log:  log.Named("audit.exporter"),
	}, nil
}

// Publish 非阻塞投递一条记录，池满时丢弃并记日志
func (e *Exporter) Publish(ctx context.Context, record *model.AuditRecord) {
	err := e.pool.Submit(func() {
		if err := e.sink.Export(context.WithoutCancel(ctx), record); err != nil {
			e.log.Warn("audit export failed", "player_id", record.PlayerID, "type", record.Type, "error", err)
		}
	})
	if err != nil {
		e.log.Warn("audit export dropped, pool saturated", "player_id", record.PlayerID, "type", record.Type)
	}
}

// ExportSince 拉取某时间点之后的记录并全部投递
// 返回新的检查点（最后一条记录的时间），没有新记录时返回原值
func (e *Exporter) ExportSince(ctx context.Context, checkpoint time.Time) (time.Time, error) {
	records, err := e.repo.ListAuditSince(ctx, checkpoint, defaultBatchSize)
	if err != nil {
		return checkpoint, err
	}
	if len(records) == 0 {
		return checkpoint, nil
	}

	for _, record := range records {
		e.Publish(ctx, record)
		if record.CreatedAt.After(checkpoint) {
			checkpoint = record.CreatedAt
		}
	}

	e.log.Debug("audit batch dispatched", "count", len(records), "checkpoint", checkpoint)
	return checkpoint, nil
}

// CleanupBefore 删除截止时间之前的记录，返回删除条数
func (e *Exporter) CleanupBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	count, err := e.repo.DeleteAuditBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		e.log.Info("audit retention sweep", "deleted", count, "cutoff", cutoff)
	}
	return count, nil
}

// Close 等待在途任务并释放 worker 池
func (e *Exporter) Close() {
	e.pool.Release()
}
