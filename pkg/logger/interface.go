package logger

// Logger 日志接口
// 业务代码统一依赖此接口，避免直接耦合 zap
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})

	// 派生方法
	Named(name string) Logger
	WithFields(keysAndValues ...interface{}) Logger

	// 运行时调整日志级别
	SetLevel(level Level) error

	// 同步缓冲区
	Sync() error
}
