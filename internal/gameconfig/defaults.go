package gameconfig

// Defaults 内置数值配置
// 数据库缺失对应条目时的兜底来源，顶层键与 game_config 表的 key 一一对应
func Defaults() map[string]any {
	return map[string]any{
		"fusion_rates": map[string]any{
			"1": 70.0, "2": 65.0, "3": 60.0, "4": 55.0, "5": 50.0, "6": 45.0,
			"7": 40.0, "8": 35.0, "9": 30.0, "10": 25.0, "11": 20.0,
		},
		"fusion_costs": map[string]any{
			"base":       1000.0,
			"multiplier": 2.5,
			"max_cost":   10000000.0,
		},
		"shard_system": map[string]any{
			"shards_min_per_failure": 1.0,
			"shards_max_per_failure": 12.0,
			"shards_for_redemption":  100.0,
			"enabled":                true,
		},
		"energy_system": map[string]any{
			"base_max":           100.0,
			"regen_minutes":      5.0,
			"per_level_increase": 10.0,
			"overcap_bonus":      0.10,
		},
		"stamina_system": map[string]any{
			"base_max":           50.0,
			"regen_minutes":      10.0,
			"per_level_increase": 5.0,
			"overcap_bonus":      0.10,
		},
		"xp_curve": map[string]any{
			"type":     "polynomial",
			"base":     50.0,
			"exponent": 2.2,
		},
		"level_milestones": map[string]any{
			"minor_interval": 5.0,
			"major_interval": 10.0,
			"minor_rewards": map[string]any{
				"rikis_multiplier": 100.0,
				"grace":            5.0,
				"gems_divisor":     10.0,
			},
			"major_rewards": map[string]any{
				"rikis_multiplier":     500.0,
				"grace":                10.0,
				"gems":                 5.0,
				"max_energy_increase":  10.0,
				"max_stamina_increase": 5.0,
			},
		},
		"prayer_system": map[string]any{
			"grace_per_prayer": 5.0,
			"max_charges":      5.0,
			"regen_minutes":    5.0,
			"class_bonuses": map[string]any{
				"destroyer": 1.0,
				"adapter":   1.0,
				"invoker":   1.2,
			},
		},
		"gacha_rates": map[string]any{
			"tier_unlock_levels": map[string]any{},
			"rate_distribution": map[string]any{
				"decay_factor":      0.75,
				"highest_tier_base": 22.0,
			},
		},
		"summon": map[string]any{
			"pity": map[string]any{
				"summons_for_pity": 25.0,
			},
		},
		"summon_costs": map[string]any{
			"grace_per_summon": 5.0,
		},
		"event_modifiers": map[string]any{
			"fusion_rate_boost": 0.0,
			"xp_boost":          0.0,
			"rikis_boost":       0.0,
			"shard_boost":       0.0,
		},
		"quest_rewards": map[string]any{
			"base_rikis":             500.0,
			"base_grace":             3.0,
			"base_gems":              1.0,
			"completion_bonus_rikis": 500.0,
			"completion_bonus_grace": 2.0,
			"completion_bonus_gems":  1.0,
			"streak_multiplier":      0.1,
		},
		"element_combinations": map[string]any{
			"infernal|infernal": "infernal",
			"infernal|abyssal":  "umbral",
			"infernal|tempest":  "radiant",
			"infernal|earth":    "tempest",
			"infernal|radiant":  "earth",
			"infernal|umbral":   "abyssal",
			"abyssal|abyssal":   "abyssal",
			"abyssal|tempest":   "earth",
			"abyssal|earth":     "umbral",
			"abyssal|radiant":   "tempest",
			"abyssal|umbral":    "infernal",
			"tempest|tempest":   "tempest",
			"tempest|earth":     "radiant",
			"tempest|radiant":   "umbral",
			"tempest|umbral":    "abyssal",
			"earth|earth":       "earth",
			"earth|radiant":     "abyssal",
			"earth|umbral":      "tempest",
			"radiant|radiant":   "radiant",
			"radiant|umbral":    "infernal",
			"umbral|umbral":     "umbral",
		},
	}
}
