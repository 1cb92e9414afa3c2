package logger

import "github.com/cockroachdb/errors"

var (
	// ErrNoOutputEnabled 既未开启控制台输出也未配置文件输出
	ErrNoOutputEnabled = errors.New("logger: no output enabled")

	// ErrInvalidOutputPath 文件输出路径非法
	ErrInvalidOutputPath = errors.New("logger: invalid output path")
)
