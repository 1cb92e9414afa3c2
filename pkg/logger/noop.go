package logger

// NoopLogger 空实现，测试与可选依赖场景使用
type NoopLogger struct{}

var _ Logger = (*NoopLogger)(nil)

// NewNoop 创建空日志器
func NewNoop() *NoopLogger { return &NoopLogger{} }

func (n *NoopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (n *NoopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (n *NoopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (n *NoopLogger) Error(msg string, keysAndValues ...interface{}) {}

func (n *NoopLogger) Named(name string) Logger                        { return n }
func (n *NoopLogger) WithFields(keysAndValues ...interface{}) Logger  { return n }
func (n *NoopLogger) SetLevel(level Level) error                      { return nil }
func (n *NoopLogger) Sync() error                                     { return nil }
