package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rikirpg/rikicore/internal/gameconfig"
	"github.com/rikirpg/rikicore/internal/gameerr"
	"github.com/rikirpg/rikicore/internal/model"
	"github.com/rikirpg/rikicore/internal/repository"
	"github.com/rikirpg/rikicore/pkg/database/postgres"
	"github.com/rikirpg/rikicore/pkg/logger"
)

// maxLevelUpsPerAction 单次结算允许的最大连升等级数
// 命中说明 XP 曲线配置异常
const maxLevelUpsPerAction = 100

// RegenResult 恢复结算结果
type RegenResult struct {
	PrayerChargesGained int64
	EnergyGained        int64
	StaminaGained       int64
	TotalRegenerated    int64
}

// PrayerResult 祈祷结果
type PrayerResult struct {
	GraceGained      int64
	TotalGrace       int64
	ChargesRemaining int32
	ClassBonus       float64
}

// LevelUpResult 升级结算结果
type LevelUpResult struct {
	LeveledUp        bool
	LevelsGained     int32
	NewLevel         int32
	OvercapEnergy    int64
	OvercapStamina   int64
	MilestoneRewards map[string]map[string]int64
	SafetyCapHit     bool
}

// PlayerService 玩家成长系统，负责恢复、祈祷与升级
type PlayerService struct {
	repo      repository.GameRepository
	cfg       *gameconfig.Store
	resources *ResourceService
	log       logger.Logger
	now       func() time.Time
}

// NewPlayerService 创建玩家服务
func NewPlayerService(repo repository.GameRepository, cfg *gameconfig.Store, resources *ResourceService, log logger.Logger) *PlayerService {
	return &PlayerService{
		repo:      repo,
		cfg:       cfg,
		resources: resources,
		log:       log.Named("service.player"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RefreshPlayer 加载玩家并结算离线恢复，有变化时落库
func (s *PlayerService) RefreshPlayer(ctx context.Context, playerID int64) (*model.Player, error) {
	var player *model.Player
	err := s.repo.WithPlayerLock(ctx, playerID, func() error {
		return s.repo.WithTx(ctx, func(tx postgres.Tx) error {
			p, err := s.repo.GetPlayerForUpdate(ctx, tx, playerID)
			if err != nil {
				return err
			}
			regen := s.RegenerateAll(ctx, p)
			if regen.TotalRegenerated > 0 {
				if err := s.repo.UpdatePlayer(ctx, tx, p); err != nil {
					return err
				}
			}
			player = p
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if player != nil {
		s.repo.InvalidatePlayer(ctx, playerID)
	}
	return player, nil
}

// RegenerateAll 按经过时间结算能量、体力与祈祷次数的恢复
// 各项先折算为待恢复量，再经 ApplyRegeneration 统一夹到上限，
// 直接修改 player，不负责落库
func (s *PlayerService) RegenerateAll(ctx context.Context, player *model.Player) *RegenResult {
	pending := map[string]int64{
		model.ResourcePrayerCharges: s.pendingPrayerCharges(ctx, player),
		model.ResourceEnergy:        s.pendingEnergy(ctx, player),
		model.ResourceStamina:       s.pendingStamina(ctx, player),
	}
	actual := ApplyRegeneration(player, pending)
	return &RegenResult{
		PrayerChargesGained: actual[model.ResourcePrayerCharges],
		EnergyGained:        actual[model.ResourceEnergy],
		StaminaGained:       actual[model.ResourceStamina],
		TotalRegenerated:    actual[model.ResourcePrayerCharges] + actual[model.ResourceEnergy] + actual[model.ResourceStamina],
	}
}

// pendingPrayerCharges 默认每 5 分钟恢复 1 次祈祷
// 时间基准按整周期推进，保留不足一个周期的余量
func (s *PlayerService) pendingPrayerCharges(ctx context.Context, player *model.Player) int64 {
	if player.PrayerCharges >= player.MaxPrayerCharges {
		return 0
	}

	interval := time.Duration(s.cfg.GetFloat64(ctx, "prayer_system.regen_minutes", 5)*60) * time.Second
	if interval <= 0 {
		return 0
	}

	elapsed := s.now().Sub(player.LastPrayerRegen)
	cycles := int64(elapsed / interval)
	if cycles <= 0 {
		return 0
	}

	player.LastPrayerRegen = player.LastPrayerRegen.Add(interval * time.Duration(cycles))
	return cycles
}

// pendingEnergy 默认每 5 分钟恢复 1 点，adapter 职业加速 25%
func (s *PlayerService) pendingEnergy(ctx context.Context, player *model.Player) int64 {
	if player.Energy >= player.MaxEnergy {
		return 0
	}

	regenMinutes := s.cfg.GetFloat64(ctx, "energy_system.regen_minutes", 5)
	if player.Class == model.ClassAdapter {
		regenMinutes *= 0.75
	}
	interval := time.Duration(regenMinutes*60) * time.Second
	if interval <= 0 {
		return 0
	}

	elapsed := s.now().Sub(player.LastEnergyRegen)
	cycles := int64(elapsed / interval)
	if cycles <= 0 {
		return 0
	}

	player.LastEnergyRegen = player.LastEnergyRegen.Add(interval * time.Duration(cycles))
	return cycles
}

// pendingStamina 默认每 10 分钟恢复 1 点，destroyer 职业加速 25%
func (s *PlayerService) pendingStamina(ctx context.Context, player *model.Player) int64 {
	if player.Stamina >= player.MaxStamina {
		return 0
	}

	regenMinutes := s.cfg.GetFloat64(ctx, "stamina_system.regen_minutes", 10)
	if player.Class == model.ClassDestroyer {
		regenMinutes *= 0.75
	}
	interval := time.Duration(regenMinutes*60) * time.Second
	if interval <= 0 {
		return 0
	}

	elapsed := s.now().Sub(player.LastStaminaRegen)
	cycles := int64(elapsed / interval)
	if cycles <= 0 {
		return 0
	}

	player.LastStaminaRegen = player.LastStaminaRegen.Add(interval * time.Duration(cycles))
	return cycles
}

// PerformPrayer 执行祈祷，消耗 1 次祈祷并获得恩惠
// invoker 职业有额外加成，恩惠受上限约束
func (s *PlayerService) PerformPrayer(ctx context.Context, playerID int64) (*PrayerResult, error) {
	var result *PrayerResult
	err := s.repo.WithPlayerLock(ctx, playerID, func() error {
		return s.repo.WithTx(ctx, func(tx postgres.Tx) error {
			player, err := s.repo.GetPlayerForUpdate(ctx, tx, playerID)
			if err != nil {
				return err
			}
			s.RegenerateAll(ctx, player)

			if player.PrayerCharges <= 0 {
				return gameerr.NewInsufficientResources(model.ResourcePrayerCharges, 1, 0)
			}

			oldCharges := player.PrayerCharges
			player.PrayerCharges--
			if player.PrayerCharges == player.MaxPrayerCharges-1 {
				// 从满状态落下来时重置恢复计时
				player.LastPrayerRegen = s.now()
			}

			baseGrace := s.cfg.GetFloat64(ctx, "prayer_system.grace_per_prayer", 5)
			bonuses := s.cfg.GetMap(ctx, "prayer_system.class_bonuses")
			multiplier := 1.0
			if raw, ok := bonuses[player.Class]; ok {
				if v, ok := raw.(float64); ok {
					multiplier = v
				}
			}

			graceGained := int64(baseGrace * multiplier)
			graceCap := s.cfg.GetInt64(ctx, "resource_system.grace_max_cap", model.GraceCap)
			oldGrace := player.Grace
			player.Grace = min(player.Grace+graceGained, graceCap)
			graceGained = player.Grace - oldGrace

			incrStat(player, "prayers_performed", 1)

			if err := s.repo.UpdatePlayer(ctx, tx, player); err != nil {
				return err
			}

			record := model.NewAuditRecord(playerID, model.AuditPrayer, "prayer", map[string]any{
				"grace_gained": graceGained,
				"old_grace":    oldGrace,
				"new_grace":    player.Grace,
				"old_charges":  oldCharges,
				"new_charges":  player.PrayerCharges,
				"class_bonus":  multiplier,
			})
			if err := s.repo.InsertAudit(ctx, tx, record); err != nil {
				return err
			}

			result = &PrayerResult{
				GraceGained:      graceGained,
				TotalGrace:       player.Grace,
				ChargesRemaining: player.PrayerCharges,
				ClassBonus:       multiplier,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.repo.InvalidatePlayer(ctx, playerID)
	return result, nil
}

// XPForNextLevel 计算升到下一级所需经验
// 曲线类型与参数可配置，默认多项式曲线
func (s *PlayerService) XPForNextLevel(ctx context.Context, level int32) int64 {
	curveType := s.cfg.GetString(ctx, "xp_curve.type", "polynomial")
	base := s.cfg.GetFloat64(ctx, "xp_curve.base", 50)
	exponent := s.cfg.GetFloat64(ctx, "xp_curve.exponent", 2.2)

	switch curveType {
	case "exponential":
		return int64(base * math.Pow(1.5, float64(level-1)))
	case "polynomial":
		return int64(base * math.Pow(float64(level), exponent))
	case "logarithmic":
		return int64(500 * float64(level) * math.Log(float64(level)+1))
	default:
		return int64(base * math.Pow(1.5, float64(level-1)))
	}
}

// AddXPAndLevelUp 加经验并结算连升
// 升级时资源池回满，升级前池子 ≥90% 额外给 10% 溢出奖励
// 5/10 级里程碑发放额外奖励，大里程碑同时提升池上限
func (s *PlayerService) AddXPAndLevelUp(ctx context.Context, player *model.Player, xpAmount int64, allowOvercap bool) *LevelUpResult {
	player.Experience += xpAmount
	return s.SettleLevelUps(ctx, player, allowOvercap)
}

// SettleLevelUps 结算已累计经验触发的升级，不额外加经验
func (s *PlayerService) SettleLevelUps(ctx context.Context, player *model.Player, allowOvercap bool) *LevelUpResult {
	result := &LevelUpResult{
		NewLevel:         player.Level,
		MilestoneRewards: make(map[string]map[string]int64),
	}

	minorInterval := int32(s.cfg.GetInt(ctx, "level_milestones.minor_interval", 5))
	majorInterval := int32(s.cfg.GetInt(ctx, "level_milestones.major_interval", 10))
	graceCap := s.cfg.GetInt64(ctx, "resource_system.grace_max_cap", model.GraceCap)

	loops := 0
	for player.Experience >= s.XPForNextLevel(ctx, player.Level) {
		loops++
		if loops > maxLevelUpsPerAction {
			s.log.Error("level-up loop safety cap hit, check xp curve configuration",
				"player_id", player.ID,
				"level", player.Level,
			)
			result.SafetyCapHit = true
			break
		}

		needed := s.XPForNextLevel(ctx, player.Level)
		player.Experience -= needed
		player.Level++
		result.LevelsGained++
		result.LeveledUp = true
		incrStat(player, "level_ups", 1)

		oldEnergy := player.Energy
		oldStamina := player.Stamina
		player.Energy = player.MaxEnergy
		player.Stamina = player.MaxStamina

		if allowOvercap {
			overflowBonus := s.cfg.GetFloat64(ctx, "energy_system.overcap_bonus", 0.10)
			if float64(oldEnergy) >= float64(player.MaxEnergy)*0.9 {
				bonus := int64(float64(player.MaxEnergy) * overflowBonus)
				player.Energy += bonus
				result.OvercapEnergy = bonus
				incrStat(player, "overflow_energy_gained", bonus)
			}
			if float64(oldStamina) >= float64(player.MaxStamina)*0.9 {
				bonus := int64(float64(player.MaxStamina) * overflowBonus)
				player.Stamina += bonus
				result.OvercapStamina = bonus
				incrStat(player, "overflow_stamina_gained", bonus)
			}
		}

		if minorInterval > 0 && player.Level%minorInterval == 0 {
			rewards := map[string]int64{
				model.ResourceRikis:    int64(player.Level) * s.cfg.GetInt64(ctx, "level_milestones.minor_rewards.rikis_multiplier", 100),
				model.ResourceGrace:    s.cfg.GetInt64(ctx, "level_milestones.minor_rewards.grace", 5),
				model.ResourceRikiGems: int64(player.Level) / s.cfg.GetInt64(ctx, "level_milestones.minor_rewards.gems_divisor", 10),
			}
			s.applyMilestoneRewards(player, rewards, graceCap)
			result.MilestoneRewards[fmt.Sprintf("level_%d", player.Level)] = rewards
		}

		if majorInterval > 0 && player.Level%majorInterval == 0 {
			energyInc := s.cfg.GetInt64(ctx, "level_milestones.major_rewards.max_energy_increase", 10)
			staminaInc := s.cfg.GetInt64(ctx, "level_milestones.major_rewards.max_stamina_increase", 5)
			rewards := map[string]int64{
				model.ResourceRikis:    int64(player.Level) * s.cfg.GetInt64(ctx, "level_milestones.major_rewards.rikis_multiplier", 500),
				model.ResourceGrace:    s.cfg.GetInt64(ctx, "level_milestones.major_rewards.grace", 10),
				model.ResourceRikiGems: s.cfg.GetInt64(ctx, "level_milestones.major_rewards.gems", 5),
			}
			s.applyMilestoneRewards(player, rewards, graceCap)
			player.MaxEnergy += energyInc
			player.MaxStamina += staminaInc
			rewards["max_energy_increase"] = energyInc
			rewards["max_stamina_increase"] = staminaInc
			result.MilestoneRewards[fmt.Sprintf("level_%d_major", player.Level)] = rewards
		}
	}

	result.NewLevel = player.Level
	return result
}

// AwardXP 经验入账的完整动作：加锁、结算恢复、经验加成、连升与审计
func (s *PlayerService) AwardXP(ctx context.Context, playerID, amount int64, source string) (*LevelUpResult, error) {
	var result *LevelUpResult
	err := s.repo.WithPlayerLock(ctx, playerID, func() error {
		return s.repo.WithTx(ctx, func(tx postgres.Tx) error {
			player, err := s.repo.GetPlayerForUpdate(ctx, tx, playerID)
			if err != nil {
				return err
			}
			s.RegenerateAll(ctx, player)

			grant, err := s.resources.Grant(ctx, tx, player, map[string]int64{
				model.ResourceExperience: amount,
			}, source, true)
			if err != nil {
				return err
			}

			result = s.SettleLevelUps(ctx, player, true)

			if err := s.repo.UpdatePlayer(ctx, tx, player); err != nil {
				return err
			}

			if result.LeveledUp {
				record := model.NewAuditRecord(playerID, model.AuditLevelUp, "xp:"+source, map[string]any{
					"xp_granted":        grant.Granted[model.ResourceExperience],
					"levels_gained":     result.LevelsGained,
					"new_level":         result.NewLevel,
					"overcap_energy":    result.OvercapEnergy,
					"overcap_stamina":   result.OvercapStamina,
					"milestone_rewards": result.MilestoneRewards,
				})
				if err := s.repo.InsertAudit(ctx, tx, record); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.repo.InvalidatePlayer(ctx, playerID)
	return result, nil
}

// applyMilestoneRewards 里程碑奖励直接入账，恩惠夹到上限
func (s *PlayerService) applyMilestoneRewards(player *model.Player, rewards map[string]int64, graceCap int64) {
	player.Rikis += rewards[model.ResourceRikis]
	player.RikiGems += rewards[model.ResourceRikiGems]
	player.Grace = min(player.Grace+rewards[model.ResourceGrace], graceCap)
}

// incrStat 累加 JSONB 统计字段，兼容反序列化出的 float64
func incrStat(player *model.Player, key string, delta int64) {
	if player.Stats == nil {
		player.Stats = make(map[string]interface{})
	}
	switch v := player.Stats[key].(type) {
	case int64:
		player.Stats[key] = v + delta
	case int:
		player.Stats[key] = int64(v) + delta
	case float64:
		player.Stats[key] = int64(v) + delta
	default:
		player.Stats[key] = delta
	}
}
