package model

import "time"

// Maiden 玩家持有的女仆堆叠，对应 maidens 表
// 同模板同阶的副本合并为一条记录，quantity 归零时删除
type Maiden struct {
	ID         int64     `db:"id"`
	PlayerID   int64     `db:"player_id"`
	TemplateID int64     `db:"template_id"`
	Tier       int32     `db:"tier"`
	Level      int32     `db:"level"`
	Quantity   int32     `db:"quantity"`
	Element    string    `db:"element"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// NewMaiden 创建新的女仆堆叠
func NewMaiden(playerID int64, base *MaidenBase) *Maiden {
	now := time.Now().UTC()
	return &Maiden{
		PlayerID:   playerID,
		TemplateID: base.ID,
		Tier:       base.Tier,
		Level:      1,
		Quantity:   1,
		Element:    base.Element,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
