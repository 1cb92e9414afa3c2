package model

import (
	"time"
)

// 资源键名，与 players 表列名一致
const (
	ResourceRikis      = "rikis"
	ResourceRikiGems   = "riki_gems"
	ResourceGrace      = "grace"
	ResourceExperience = "experience"
	ResourceEnergy     = "energy"
	ResourceStamina    = "stamina"

	// prayer_charges 走独立的 int32 字段，不在通用余额辅助方法内
	ResourcePrayerCharges = "prayer_charges"
)

// GraceCap 恩惠上限，超出部分直接截断
const GraceCap int64 = 999999

// 玩家职业
const (
	ClassInvoker   = "invoker"
	ClassAdapter   = "adapter"
	ClassDestroyer = "destroyer"
)

// Player 玩家模型，对应 players 表
type Player struct {
	ID int64 `db:"id"`

	// 经济资源
	Rikis      int64 `db:"rikis"`
	RikiGems   int64 `db:"riki_gems"`
	Grace      int64 `db:"grace"`
	Experience int64 `db:"experience"`

	// 等级成长
	Level int32 `db:"level"`

	// 行动力资源池
	Energy     int64 `db:"energy"`
	MaxEnergy  int64 `db:"max_energy"`
	Stamina    int64 `db:"stamina"`
	MaxStamina int64 `db:"max_stamina"`

	// 祈祷系统
	PrayerCharges    int32     `db:"prayer_charges"`
	MaxPrayerCharges int32     `db:"max_prayer_charges"`
	LastPrayerRegen  time.Time `db:"last_prayer_regen"`

	// 行动力恢复时间基准
	LastEnergyRegen  time.Time `db:"last_energy_regen"`
	LastStaminaRegen time.Time `db:"last_stamina_regen"`

	// 召唤保底计数（自上次高阶产出以来的召唤次数）
	PityCounter int32 `db:"pity_counter"`

	// 职业与队长
	Class          string `db:"class"`
	LeaderMaidenID int64  `db:"leader_maiden_id"`

	// 碎片与自由属性（JSONB 字段）
	FusionShards map[string]int64       `db:"fusion_shards"`
	Stats        map[string]interface{} `db:"stats"`

	// 图鉴计数
	UniqueMaidens int32 `db:"unique_maidens"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// NewPlayer 创建新玩家实例
func NewPlayer(id int64) *Player {
	now := time.Now().UTC()
	return &Player{
		ID:               id,
		Level:            1,
		Energy:           100,
		MaxEnergy:        100,
		Stamina:          50,
		MaxStamina:       50,
		PrayerCharges:    5,
		MaxPrayerCharges: 5,
		LastPrayerRegen:  now,
		LastEnergyRegen:  now,
		LastStaminaRegen: now,
		Class:            ClassInvoker,
		FusionShards:     make(map[string]int64),
		Stats:            make(map[string]interface{}),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Resource 按资源键读取当前余额
func (p *Player) Resource(name string) (int64, bool) {
	switch name {
	case ResourceRikis:
		return p.Rikis, true
	case ResourceRikiGems:
		return p.RikiGems, true
	case ResourceGrace:
		return p.Grace, true
	case ResourceExperience:
		return p.Experience, true
	case ResourceEnergy:
		return p.Energy, true
	case ResourceStamina:
		return p.Stamina, true
	}
	return 0, false
}

// SetResource 按资源键写入余额
func (p *Player) SetResource(name string, value int64) bool {
	switch name {
	case ResourceRikis:
		p.Rikis = value
	case ResourceRikiGems:
		p.RikiGems = value
	case ResourceGrace:
		p.Grace = value
	case ResourceExperience:
		p.Experience = value
	case ResourceEnergy:
		p.Energy = value
	case ResourceStamina:
		p.Stamina = value
	default:
		return false
	}
	return true
}

// ResourceCap 返回资源上限，无上限返回 false
func (p *Player) ResourceCap(name string) (int64, bool) {
	switch name {
	case ResourceGrace:
		return GraceCap, true
	case ResourceEnergy:
		return p.MaxEnergy, true
	case ResourceStamina:
		return p.MaxStamina, true
	}
	return 0, false
}
