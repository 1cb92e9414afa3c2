package audit

import (
	"context"

	"github.com/rikirpg/rikicore/internal/model"
	"github.com/rikirpg/rikicore/pkg/logger"
)

// LogSink 把审计记录写到结构化日志，作为默认导出去向
// 生产部署可替换为消息队列或数据仓库的 Sink 实现
type LogSink struct {
	log logger.Logger
}

var _ Sink = (*LogSink)(nil)

// NewLogSink 创建日志 Sink
func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log.Named("audit.sink")}
}

// Export 输出一条审计记录
func (s *LogSink) Export(ctx context.Context, record *model.AuditRecord) error {
	s.log.Info("audit",
		"player_id", record.PlayerID,
		"type", record.Type,
		"context", record.Context,
		"details", string(record.Details),
		"created_at", record.CreatedAt,
	)
	return nil
}
