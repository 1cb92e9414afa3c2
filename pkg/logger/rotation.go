package logger

import (
	"io"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewRotationWriter 根据轮转类型创建文件写入器
func NewRotationWriter(path string, cfg *RotationConfig) (io.Writer, error) {
	switch cfg.Type {
	case RotationTime:
		return newTimeRotationWriter(path, cfg)
	default:
		return newSizeRotationWriter(path, cfg), nil
	}
}

// newSizeRotationWriter 按大小轮转
func newSizeRotationWriter(path string, cfg *RotationConfig) io.Writer {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
}

// newTimeRotationWriter 按时间轮转
func newTimeRotationWriter(path string, cfg *RotationConfig) (io.Writer, error) {
	return rotatelogs.New(
		path+".%Y%m%d%H",
		rotatelogs.WithLinkName(path),
		rotatelogs.WithRotationTime(time.Duration(cfg.RotationHours)*time.Hour),
		rotatelogs.WithMaxAge(time.Duration(cfg.MaxAgeHours)*time.Hour),
	)
}
