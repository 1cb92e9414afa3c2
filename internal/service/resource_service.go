package service

import (
	"context"

	"github.com/rikirpg/rikicore/internal/gameconfig"
	"github.com/rikirpg/rikicore/internal/gameerr"
	"github.com/rikirpg/rikicore/internal/metrics"
	"github.com/rikirpg/rikicore/internal/model"
	"github.com/rikirpg/rikicore/internal/repository"
	"github.com/rikirpg/rikicore/pkg/database/postgres"
	"github.com/rikirpg/rikicore/pkg/logger"
)

// GrantResult 发放结果
type GrantResult struct {
	Granted          map[string]int64
	ModifiersApplied Modifiers
	CapsHit          []string
	OldValues        map[string]int64
	NewValues        map[string]int64
}

// ConsumeResult 扣除结果
type ConsumeResult struct {
	Consumed  map[string]int64
	OldValues map[string]int64
	NewValues map[string]int64
}

// ResourceService 玩家资源账本
// 所有变更要求调用方已对玩家行加锁并持有事务
type ResourceService struct {
	repo    repository.GameRepository
	cfg     *gameconfig.Store
	leaders *LeaderService
	log     logger.Logger
	metrics *metrics.GameMetrics
}

// NewResourceService 创建资源服务
func NewResourceService(repo repository.GameRepository, cfg *gameconfig.Store, leaders *LeaderService, log logger.Logger, m *metrics.GameMetrics) *ResourceService {
	return &ResourceService{
		repo:    repo,
		cfg:     cfg,
		leaders: leaders,
		log:     log.Named("service.resource"),
		metrics: m,
	}
}

// Grant 发放资源，可选应用队长加成
// income_boost 作用于 rikis/grace/riki_gems，xp_boost 作用于 experience
// grace 受上限约束，energy/stamina/prayer_charges 夹到各自的最大池
func (s *ResourceService) Grant(ctx context.Context, tx postgres.Tx, player *model.Player, resources map[string]int64, source string, applyModifiers bool) (*GrantResult, error) {
	result := &GrantResult{
		Granted:          make(map[string]int64),
		ModifiersApplied: NeutralModifiers(),
		OldValues:        make(map[string]int64),
		NewValues:        make(map[string]int64),
	}

	if applyModifiers {
		result.ModifiersApplied = s.leaders.ActiveModifiers(ctx, player)
	}

	for resource, baseAmount := range resources {
		if baseAmount <= 0 {
			continue
		}

		old := s.currentValue(player, resource)
		result.OldValues[resource] = old

		finalAmount := baseAmount
		if applyModifiers {
			switch resource {
			case model.ResourceRikis, model.ResourceGrace, model.ResourceRikiGems:
				finalAmount = int64(float64(baseAmount) * result.ModifiersApplied.IncomeBoost)
			case model.ResourceExperience:
				finalAmount = int64(float64(baseAmount) * result.ModifiersApplied.XPBoost)
			}
		}

		switch resource {
		case model.ResourceGrace:
			graceCap := s.cfg.GetInt64(ctx, "resource_system.grace_max_cap", model.GraceCap)
			newValue := old + finalAmount
			if newValue > graceCap {
				finalAmount = graceCap - old
				result.CapsHit = append(result.CapsHit, model.ResourceGrace)
				newValue = graceCap
			}
			player.Grace = newValue
		case model.ResourceRikis:
			player.Rikis += finalAmount
		case model.ResourceRikiGems:
			player.RikiGems += finalAmount
		case model.ResourceExperience:
			player.Experience += finalAmount
		case model.ResourceEnergy:
			newVal := min(player.Energy+finalAmount, player.MaxEnergy)
			finalAmount = newVal - player.Energy
			player.Energy = newVal
		case model.ResourceStamina:
			newVal := min(player.Stamina+finalAmount, player.MaxStamina)
			finalAmount = newVal - player.Stamina
			player.Stamina = newVal
		case model.ResourcePrayerCharges:
			newVal := min(player.PrayerCharges+int32(finalAmount), player.MaxPrayerCharges)
			finalAmount = int64(newVal - player.PrayerCharges)
			player.PrayerCharges = newVal
		default:
			s.log.Warn("unknown resource type for grant", "resource", resource)
			continue
		}

		result.Granted[resource] = finalAmount
		result.NewValues[resource] = s.currentValue(player, resource)
		s.metrics.RecordResourceGrant(resource, finalAmount)
	}

	record := model.NewAuditRecord(player.ID, model.AuditResourceGrant, "grant:"+source, map[string]any{
		"resources_granted": result.Granted,
		"base_amounts":      resources,
		"modifiers":         result.ModifiersApplied.AsMap(),
		"caps_hit":          result.CapsHit,
		"old_values":        result.OldValues,
		"new_values":        result.NewValues,
		"source":            source,
	})
	if err := s.repo.InsertAudit(ctx, tx, record); err != nil {
		return nil, err
	}

	s.log.Info("granted resources",
		"player_id", player.ID,
		"granted", result.Granted,
		"source", source,
	)
	return result, nil
}

// Consume 扣除资源
// 先校验全部需求，任何一项不足即返回 InsufficientResourcesError 且不做改动
func (s *ResourceService) Consume(ctx context.Context, tx postgres.Tx, player *model.Player, resources map[string]int64, source string) (*ConsumeResult, error) {
	result := &ConsumeResult{
		Consumed:  make(map[string]int64),
		OldValues: make(map[string]int64),
		NewValues: make(map[string]int64),
	}

	for resource, amount := range resources {
		if amount <= 0 {
			continue
		}
		current := s.currentValue(player, resource)
		result.OldValues[resource] = current
		if current < amount {
			return nil, gameerr.NewInsufficientResources(resource, amount, current)
		}
	}

	for resource, amount := range resources {
		if amount <= 0 {
			continue
		}

		switch resource {
		case model.ResourceGrace:
			player.Grace -= amount
		case model.ResourceRikis:
			player.Rikis -= amount
		case model.ResourceRikiGems:
			player.RikiGems -= amount
		case model.ResourceEnergy:
			player.Energy -= amount
		case model.ResourceStamina:
			player.Stamina -= amount
		case model.ResourcePrayerCharges:
			player.PrayerCharges -= int32(amount)
		default:
			s.log.Warn("unknown resource type for consumption", "resource", resource)
			continue
		}

		result.Consumed[resource] = amount
		result.NewValues[resource] = s.currentValue(player, resource)
	}

	record := model.NewAuditRecord(player.ID, model.AuditResourceConsume, "consume:"+source, map[string]any{
		"resources_consumed": result.Consumed,
		"old_values":         result.OldValues,
		"new_values":         result.NewValues,
		"source":             source,
	})
	if err := s.repo.InsertAudit(ctx, tx, record); err != nil {
		return nil, err
	}

	s.log.Info("consumed resources",
		"player_id", player.ID,
		"consumed", result.Consumed,
		"source", source,
	)
	return result, nil
}

// Check 校验余额是否足够，不做任何改动
func (s *ResourceService) Check(player *model.Player, resources map[string]int64) bool {
	for resource, amount := range resources {
		if amount <= 0 {
			continue
		}
		if s.currentValue(player, resource) < amount {
			return false
		}
	}
	return true
}

// ApplyRegeneration 应用已计算好的恢复量，夹到各自上限
// 返回实际恢复量，计算逻辑由 PlayerService 负责
func ApplyRegeneration(player *model.Player, regen map[string]int64) map[string]int64 {
	actual := make(map[string]int64)

	if amount := regen[model.ResourceEnergy]; amount > 0 {
		old := player.Energy
		player.Energy = min(player.Energy+amount, player.MaxEnergy)
		actual[model.ResourceEnergy] = player.Energy - old
	}
	if amount := regen[model.ResourceStamina]; amount > 0 {
		old := player.Stamina
		player.Stamina = min(player.Stamina+amount, player.MaxStamina)
		actual[model.ResourceStamina] = player.Stamina - old
	}
	if amount := regen[model.ResourcePrayerCharges]; amount > 0 {
		old := player.PrayerCharges
		player.PrayerCharges = min(player.PrayerCharges+int32(amount), player.MaxPrayerCharges)
		actual[model.ResourcePrayerCharges] = int64(player.PrayerCharges - old)
	}

	return actual
}

// Summary 供外层协作方展示用的资源快照
func (s *ResourceService) Summary(player *model.Player) map[string]any {
	return map[string]any{
		"rikis":              player.Rikis,
		"riki_gems":          player.RikiGems,
		"grace":              player.Grace,
		"experience":         player.Experience,
		"level":              player.Level,
		"energy":             player.Energy,
		"max_energy":         player.MaxEnergy,
		"stamina":            player.Stamina,
		"max_stamina":        player.MaxStamina,
		"prayer_charges":     player.PrayerCharges,
		"max_prayer_charges": player.MaxPrayerCharges,
		"pity_counter":       player.PityCounter,
		"unique_maidens":     player.UniqueMaidens,
	}
}

// currentValue 读取资源当前值，prayer_charges 单独处理
func (s *ResourceService) currentValue(player *model.Player, resource string) int64 {
	if resource == model.ResourcePrayerCharges {
		return int64(player.PrayerCharges)
	}
	value, _ := player.Resource(resource)
	return value
}
