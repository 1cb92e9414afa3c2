package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, InfoLevel, cfg.Level)
	assert.Equal(t, JSONFormat, cfg.Format)
	assert.True(t, cfg.Console)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid default", func(c *Config) {}, false},
		{"invalid level", func(c *Config) { c.Level = "trace" }, true},
		{"invalid format", func(c *Config) { c.Format = "xml" }, true},
		{"no output", func(c *Config) { c.Console = false; c.OutputPath = "" }, true},
		{"invalid rotation", func(c *Config) {
			c.OutputPath = "/tmp/app.log"
			c.Rotation.Type = "weekly"
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewAndLog(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Console = false
	cfg.OutputPath = filepath.Join(dir, "test.log")

	log, err := New(cfg)
	require.NoError(t, err)

	log.Info("hello", "player_id", 42, "action", "summon")
	log.Debug("should be filtered")
	require.NoError(t, log.Sync())
}

func TestSetLevel(t *testing.T) {
	log, err := New(DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, log.SetLevel(DebugLevel))
	assert.Error(t, log.SetLevel("trace"))
}

func TestNamedAndWithFields(t *testing.T) {
	log, err := New(DefaultConfig())
	require.NoError(t, err)

	sub := log.Named("service.summon").WithFields("shard", 3)
	require.NotNil(t, sub)
	sub.Info("derived logger works")
}

func TestToZapFields(t *testing.T) {
	fields := toZapFields([]interface{}{"a", 1, "b", "two"})
	assert.Len(t, fields, 2)

	// 奇数个参数忽略最后一个
	fields = toZapFields([]interface{}{"a", 1, "dangling"})
	assert.Len(t, fields, 1)

	// 非字符串 key 降级处理
	fields = toZapFields([]interface{}{42, "v"})
	assert.Len(t, fields, 1)
	assert.Equal(t, "42", fields[0].Key)
}

func TestNoopLogger(t *testing.T) {
	n := NewNoop()
	n.Info("ignored")
	assert.Same(t, n, n.Named("x"))
	assert.NoError(t, n.SetLevel(DebugLevel))
	assert.NoError(t, n.Sync())
}
