package model

import (
	"encoding/json"
	"time"
)

// 审计事件类型
const (
	AuditResourceGrant   = "resource_grant"
	AuditResourceConsume = "resource_consume"
	AuditSummon          = "summon"
	AuditFusion          = "fusion"
	AuditShardRedeem     = "shard_redeem"
	AuditPrayer          = "prayer"
	AuditLevelUp         = "level_up"
	AuditConfigChange    = "config_change"
)

// AuditRecord 审计日志，对应 audit_logs 表
type AuditRecord struct {
	ID        int64           `db:"id"`
	PlayerID  int64           `db:"player_id"`
	Type      string          `db:"type"`
	Details   json.RawMessage `db:"details"`
	Context   string          `db:"context"`
	CreatedAt time.Time       `db:"created_at"`
}

// NewAuditRecord 创建审计记录，details 序列化失败时记录空对象
func NewAuditRecord(playerID int64, auditType, context string, details any) *AuditRecord {
	raw, err := json.Marshal(details)
	if err != nil {
		raw = json.RawMessage("{}")
	}
	return &AuditRecord{
		PlayerID:  playerID,
		Type:      auditType,
		Details:   raw,
		Context:   context,
		CreatedAt: time.Now().UTC(),
	}
}
