package config

// Option 配置选项函数
type Option func(*manager)

// WithDefaults 设置默认配置值
func WithDefaults(defaults map[string]any) Option {
	return func(m *manager) {
		for key, value := range defaults {
			m.v.SetDefault(key, value)
		}
	}
}

// WithConfigType 设置配置文件类型（yaml、json、toml）
func WithConfigType(configType string) Option {
	return func(m *manager) {
		m.v.SetConfigType(configType)
	}
}

// WithEnvPrefix 设置环境变量前缀并开启自动映射
func WithEnvPrefix(prefix string) Option {
	return func(m *manager) {
		if prefix != "" {
			m.v.SetEnvPrefix(prefix)
			m.v.AutomaticEnv()
		}
	}
}
