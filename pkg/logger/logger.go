package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// BaseLogger 基于 zap 的 Logger 实现
type BaseLogger struct {
	zap   *zap.Logger
	level zap.AtomicLevel
	cfg   *Config
}

var _ Logger = (*BaseLogger)(nil)

// New 创建日志器
func New(cfg *Config) (*BaseLogger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	atomic := zap.NewAtomicLevelAt(toZapLevel(cfg.Level))

	var cores []zapcore.Core

	if cfg.Console {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		var enc zapcore.Encoder
		if cfg.Format == JSONFormat {
			enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		} else {
			enc = zapcore.NewConsoleEncoder(encCfg)
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(os.Stdout), atomic))
	}

	if cfg.OutputPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.OutputPath), 0o755); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidOutputPath, cfg.OutputPath)
		}
		writer, err := NewRotationWriter(cfg.OutputPath, &cfg.Rotation)
		if err != nil {
			return nil, err
		}
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		var enc zapcore.Encoder
		if cfg.Format == ConsoleFormat {
			enc = zapcore.NewConsoleEncoder(encCfg)
		} else {
			enc = zapcore.NewJSONEncoder(encCfg)
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(writer), atomic))
	}

	core := zapcore.NewTee(cores...)
	zl := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	return &BaseLogger{zap: zl, level: atomic, cfg: cfg}, nil
}

// Debug 输出 Debug 级别日志
func (l *BaseLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.zap.Debug(msg, toZapFields(keysAndValues)...)
}

// Info 输出 Info 级别日志
func (l *BaseLogger) Info(msg string, keysAndValues ...interface{}) {
	l.zap.Info(msg, toZapFields(keysAndValues)...)
}

// Warn 输出 Warn 级别日志
func (l *BaseLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.zap.Warn(msg, toZapFields(keysAndValues)...)
}

// Error 输出 Error 级别日志
func (l *BaseLogger) Error(msg string, keysAndValues ...interface{}) {
	l.zap.Error(msg, toZapFields(keysAndValues)...)
}

// Named 创建命名子日志器
func (l *BaseLogger) Named(name string) Logger {
	clone := *l
	clone.zap = l.zap.Named(name)
	return &clone
}

// WithFields 附加固定字段
func (l *BaseLogger) WithFields(keysAndValues ...interface{}) Logger {
	clone := *l
	clone.zap = l.zap.With(toZapFields(keysAndValues)...)
	return &clone
}

// SetLevel 运行时调整日志级别，配置热更新时使用
func (l *BaseLogger) SetLevel(level Level) error {
	switch level {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel:
	default:
		return fmt.Errorf("invalid log level: %s", level)
	}
	l.level.SetLevel(toZapLevel(level))
	return nil
}

// Sync 刷新缓冲区
func (l *BaseLogger) Sync() error {
	return l.zap.Sync()
}

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// toZapFields 将 key-value 对转换为 zap 字段
// 奇数个参数时最后一个被忽略，key 非字符串时降级为 fmt.Sprint
func toZapFields(keysAndValues []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
