package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/rikirpg/rikicore/pkg/config"
	"github.com/rikirpg/rikicore/pkg/database/postgres"
	"github.com/rikirpg/rikicore/pkg/database/redis"
	"github.com/rikirpg/rikicore/pkg/logger"
)

// ServerConfig 运维端口配置
type ServerConfig struct {
	MetricsAddr string `mapstructure:"metrics_addr" validate:"required"`
}

// AuditConfig 审计导出与保留配置
type AuditConfig struct {
	Workers       int `mapstructure:"workers" validate:"gte=0"`
	RetentionDays int `mapstructure:"retention_days" validate:"gte=1"`
}

// GameConfigConfig 数值配置存储配置
type GameConfigConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// Config rikicore 服务完整配置
type Config struct {
	Log        logger.Config    `mapstructure:"log"`
	Database   postgres.Config  `mapstructure:"database"`
	Redis      redis.Config     `mapstructure:"redis"`
	Server     ServerConfig     `mapstructure:"server"`
	Audit      AuditConfig      `mapstructure:"audit"`
	GameConfig GameConfigConfig `mapstructure:"gameconfig"`
}

// loadConfig 加载配置并返回管理器供运行期监听
// 优先级：命令行参数 > 环境变量 RIKI_* > 配置文件 > 默认值
func loadConfig() (*Config, config.Manager, error) {
	var configPath string
	if pflag.Lookup("config") == nil {
		pflag.StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to config file")
	}
	if !pflag.Parsed() {
		pflag.Parse()
	}

	if env := os.Getenv("RIKI_CONFIG"); env != "" && !pflag.CommandLine.Changed("config") {
		configPath = env
	}

	mgr := config.NewManager(
		config.WithEnvPrefix("RIKI"),
		config.WithDefaults(map[string]any{
			"server.metrics_addr":  ":9100",
			"audit.workers":        8,
			"audit.retention_days": 90,
			"gameconfig.cache_ttl": "5m",
		}),
	)
	if err := mgr.LoadFile(configPath); err != nil {
		return nil, nil, err
	}

	cfg := &Config{
		Log:      *logger.DefaultConfig(),
		Database: *postgres.DefaultConfig(),
		Redis:    *redis.DefaultConfig(),
	}
	if err := mgr.Unmarshal(cfg); err != nil {
		return nil, nil, err
	}

	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, mgr, nil
}

// defaultConfigPath 默认取可执行文件旁的 config.yaml
func defaultConfigPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return "config.yaml"
	}
	if real, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = real
	}
	return filepath.Join(filepath.Dir(execPath), "config.yaml")
}
