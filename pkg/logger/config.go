package logger

import "fmt"

// Level 日志级别
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Format 输出格式
type Format string

const (
	JSONFormat    Format = "json"
	ConsoleFormat Format = "console"
)

// RotationType 日志轮转类型
type RotationType string

const (
	// RotationSize 按文件大小轮转（lumberjack）
	RotationSize RotationType = "size"
	// RotationTime 按时间轮转（file-rotatelogs）
	RotationTime RotationType = "time"
)

// Config 日志配置
type Config struct {
	Level      Level          `mapstructure:"level"`
	Format     Format         `mapstructure:"format"`
	OutputPath string         `mapstructure:"output_path"`
	Console    bool           `mapstructure:"console"`
	Rotation   RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 轮转配置
type RotationConfig struct {
	Type RotationType `mapstructure:"type"`

	// size 轮转参数
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`

	// time 轮转参数
	RotationHours int `mapstructure:"rotation_hours"`
	MaxAgeHours   int `mapstructure:"max_age_hours"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Level:      InfoLevel,
		Format:     JSONFormat,
		OutputPath: "",
		Console:    true,
		Rotation: RotationConfig{
			Type:          RotationSize,
			MaxSizeMB:     100,
			MaxBackups:    10,
			MaxAgeDays:    30,
			Compress:      true,
			RotationHours: 24,
			MaxAgeHours:   720,
		},
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Level {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel:
	default:
		return fmt.Errorf("invalid log level: %s", c.Level)
	}

	switch c.Format {
	case JSONFormat, ConsoleFormat:
	default:
		return fmt.Errorf("invalid log format: %s", c.Format)
	}

	if c.OutputPath == "" && !c.Console {
		return ErrNoOutputEnabled
	}

	if c.OutputPath != "" {
		switch c.Rotation.Type {
		case RotationSize, RotationTime:
		default:
			return fmt.Errorf("invalid rotation type: %s", c.Rotation.Type)
		}
	}

	return nil
}
