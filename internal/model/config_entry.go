package model

import (
	"encoding/json"
	"time"
)

// ConfigEntry 游戏数值配置条目，对应 game_config 表
// key 为顶层配置名（如 gacha_rates），value 为完整的 JSON 文档
type ConfigEntry struct {
	Key        string          `db:"key"`
	Value      json.RawMessage `db:"value"`
	ModifiedBy string          `db:"modified_by"`
	UpdatedAt  time.Time       `db:"updated_at"`
}
