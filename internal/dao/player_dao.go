package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"github.com/rikirpg/rikicore/internal/gameerr"
	"github.com/rikirpg/rikicore/internal/metrics"
	"github.com/rikirpg/rikicore/internal/model"
	"github.com/rikirpg/rikicore/pkg/database/postgres"
	"github.com/rikirpg/rikicore/pkg/logger"
)

// playerColumns players 表的全部列
var playerColumns = []string{
	"id", "rikis", "riki_gems", "grace", "experience", "level",
	"energy", "max_energy", "stamina", "max_stamina",
	"prayer_charges", "max_prayer_charges", "last_prayer_regen",
	"last_energy_regen", "last_stamina_regen",
	"pity_counter", "class", "leader_maiden_id",
	"fusion_shards", "stats", "unique_maidens",
	"created_at", "updated_at",
}

// PlayerDAO 玩家数据访问对象
type PlayerDAO struct {
	db      *postgres.Client
	logger  logger.Logger
	metrics *metrics.GameMetrics
}

// NewPlayerDAO 创建玩家 DAO
func NewPlayerDAO(db *postgres.Client, l logger.Logger, m *metrics.GameMetrics) *PlayerDAO {
	return &PlayerDAO{
		db:      db,
		logger:  l.Named("dao.player"),
		metrics: m,
	}
}

// GetByID 根据玩家 ID 获取玩家
func (d *PlayerDAO) GetByID(ctx context.Context, playerID int64) (*model.Player, error) {
	start := time.Now()
	defer func() {
		d.metrics.RecordDBQuery("player_select", true, time.Since(start).Seconds())
	}()

	query, args, err := postgres.QueryBuilder.
		Select(playerColumns...).
		From("players").
		Where("id = ?", playerID).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	player, err := postgres.QueryOne[model.Player](d.db, ctx, query, args...)
	if err != nil {
		if errors.Is(err, postgres.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
			return nil, gameerr.ErrPlayerNotFound
		}
		d.logger.Error("failed to get player", "player_id", playerID, "error", err)
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	return player, nil
}

// GetByIDForUpdate 在事务内获取玩家并加行锁
func (d *PlayerDAO) GetByIDForUpdate(ctx context.Context, tx postgres.Tx, playerID int64) (*model.Player, error) {
	start := time.Now()
	defer func() {
		d.metrics.RecordDBQuery("player_select_for_update", true, time.Since(start).Seconds())
	}()

	query, args, err := postgres.QueryBuilder.
		Select(playerColumns...).
		From("players").
		Where("id = ?", playerID).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var player model.Player
	if err := tx.QueryOne(ctx, &player, query, args...); err != nil {
		if errors.Is(err, postgres.ErrNoRows) {
			return nil, gameerr.ErrPlayerNotFound
		}
		d.logger.Error("failed to lock player row", "player_id", playerID, "error", err)
		return nil, fmt.Errorf("failed to lock player row: %w", err)
	}

	return &player, nil
}

// Create 创建玩家
func (d *PlayerDAO) Create(ctx context.Context, tx postgres.Tx, player *model.Player) error {
	start := time.Now()
	defer func() {
		d.metrics.RecordDBQuery("player_insert", true, time.Since(start).Seconds())
	}()

	query, args, err := postgres.QueryBuilder.
		Insert("players").
		Columns(playerColumns...).
		Values(
			player.ID, player.Rikis, player.RikiGems, player.Grace, player.Experience, player.Level,
			player.Energy, player.MaxEnergy, player.Stamina, player.MaxStamina,
			player.PrayerCharges, player.MaxPrayerCharges, player.LastPrayerRegen,
			player.LastEnergyRegen, player.LastStaminaRegen,
			player.PityCounter, player.Class, player.LeaderMaidenID,
			player.FusionShards, player.Stats, player.UniqueMaidens,
			player.CreatedAt, player.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		d.logger.Error("failed to create player", "player_id", player.ID, "error", err)
		return fmt.Errorf("failed to create player: %w", err)
	}

	return nil
}

// Update 更新玩家全部可变状态
func (d *PlayerDAO) Update(ctx context.Context, tx postgres.Tx, player *model.Player) error {
	start := time.Now()
	defer func() {
		d.metrics.RecordDBQuery("player_update", true, time.Since(start).Seconds())
	}()

	player.UpdatedAt = time.Now().UTC()

	query, args, err := postgres.QueryBuilder.
		Update("players").
		SetMap(map[string]any{
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
			"last_prayer_regen":  player.LastPrayerRegen,
			"last_energy_regen":  player.LastEnergyRegen,
			"last_stamina_regen": player.LastStaminaRegen,
			"pity_counter":       player.PityCounter,
			"class":              player.Class,
			"leader_maiden_id":   player.LeaderMaidenID,
			"fusion_shards":      player.FusionShards,
			"stats":              player.Stats,
			"unique_maidens":     player.UniqueMaidens,
			"updated_at":         player.UpdatedAt,
		}).
		Where("id = ?", player.ID).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	affected, err := tx.Exec(ctx, query, args...)
	if err != nil {
		d.logger.Error("failed to update player", "player_id", player.ID, "error", err)
		return fmt.Errorf("failed to update player: %w", err)
	}
	if affected == 0 {
		return gameerr.ErrPlayerNotFound
	}

	return nil
}

// Exists 检查玩家是否存在
func (d *PlayerDAO) Exists(ctx context.Context, playerID int64) (bool, error) {
	query, args, err := postgres.QueryBuilder.
		Select("1").
		Prefix("SELECT EXISTS (").
		From("players").
		Where("id = ?", playerID).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build query: %w", err)
	}

	return d.db.Exists(ctx, query, args...)
}
