package gameconfig

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/rikirpg/rikicore/internal/gameerr"
	"github.com/rikirpg/rikicore/internal/model"
	"github.com/rikirpg/rikicore/pkg/database/postgres"
	"github.com/rikirpg/rikicore/pkg/logger"
)

// 顶层键缓存有效期
const defaultCacheTTL = 5 * time.Minute

// Source 配置持久化来源
type Source interface {
	// Load 读取单个顶层配置条目，缺失时返回包装 postgres.ErrNoRows 的错误
	Load(ctx context.Context, key string) (*model.ConfigEntry, error)
	// LoadAll 读取全部配置条目
	LoadAll(ctx context.Context) ([]*model.ConfigEntry, error)
	// Upsert 写入配置条目
	Upsert(ctx context.Context, entry *model.ConfigEntry) error
}

// cacheEntry 缓存条目
type cacheEntry struct {
	value    any
	loadedAt time.Time
}

// Store 游戏数值配置存储
// 数据库为权威来源，内存缓存按顶层键做 TTL 失效，
// 数据库不可达时退回内置默认值，读路径永不失败
type Store struct {
	source   Source
	log      logger.Logger
	ttl      time.Duration
	defaults map[string]any

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// Option Store 选项
type Option func(*Store)

// WithCacheTTL 设置缓存有效期
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewStore 创建配置存储
func NewStore(source Source, log logger.Logger, opts ...Option) *Store {
	if log == nil {
		log = logger.NewNoop()
	}
	s := &Store{
		source:   source,
		log:      log.Named("gameconfig"),
		ttl:      defaultCacheTTL,
		defaults: Defaults(),
		cache:    make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize 从数据库加载全部配置
// 数据库不可达时仅告警，后续读取使用默认值
func (s *Store) Initialize(ctx context.Context) {
	entries, err := s.source.LoadAll(ctx)
	if err != nil {
		s.log.Warn("failed to load config from database, using defaults", "error", err)
		return
	}

	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range entries {
		value, err := decodeValue(entry.Value)
		if err != nil {
			s.log.Warn("skipping malformed config entry", "key", entry.Key, "error", err)
			continue
		}
		s.cache[entry.Key] = cacheEntry{value: value, loadedAt: now}
	}

	s.log.Info("config store initialized", "entries", len(entries))
}

// Get 按点分路径读取配置值
// 顺序：缓存（未过期）→ 数据库 → 过期缓存 → 内置默认值 → fallback
func (s *Store) Get(ctx context.Context, path string, fallback any) any {
	topKey, rest := splitPath(path)
	if topKey == "" {
		return fallback
	}

	value, ok := s.topLevel(ctx, topKey)
	if !ok {
		if dv, ok := lookupPath(s.defaults, path); ok {
			return dv
		}
		return fallback
	}

	if rest == "" {
		return value
	}

	if nested, ok := walkPath(value, rest); ok {
		return nested
	}
	if dv, ok := lookupPath(s.defaults, path); ok {
		return dv
	}
	return fallback
}

// GetFloat64 读取浮点配置
func (s *Store) GetFloat64(ctx context.Context, path string, fallback float64) float64 {
	v := s.Get(ctx, path, fallback)
	if f, ok := toFloat64(v); ok {
		return f
	}
	return fallback
}

// GetInt 读取整数配置
func (s *Store) GetInt(ctx context.Context, path string, fallback int) int {
	v := s.Get(ctx, path, float64(fallback))
	if f, ok := toFloat64(v); ok {
		return int(f)
	}
	return fallback
}

// GetInt64 读取 int64 配置
func (s *Store) GetInt64(ctx context.Context, path string, fallback int64) int64 {
	v := s.Get(ctx, path, float64(fallback))
	if f, ok := toFloat64(v); ok {
		return int64(f)
	}
	return fallback
}

// GetString 读取字符串配置
func (s *Store) GetString(ctx context.Context, path string, fallback string) string {
	if v, ok := s.Get(ctx, path, fallback).(string); ok {
		return v
	}
	return fallback
}

// GetBool 读取布尔配置
func (s *Store) GetBool(ctx context.Context, path string, fallback bool) bool {
	if v, ok := s.Get(ctx, path, fallback).(bool); ok {
		return v
	}
	return fallback
}

// GetMap 读取对象配置
func (s *Store) GetMap(ctx context.Context, path string) map[string]any {
	if v, ok := s.Get(ctx, path, nil).(map[string]any); ok {
		return v
	}
	return nil
}

// Set 写入配置，数据库先行，成功后更新缓存
func (s *Store) Set(ctx context.Context, key string, value any, modifiedBy string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return gameerr.NewConfigError(key, "value is not JSON-serializable: "+err.Error())
	}

	entry := &model.ConfigEntry{
		Key:        key,
		Value:      raw,
		ModifiedBy: modifiedBy,
		UpdatedAt:  time.Now().UTC(),
	}

	if err := s.source.Upsert(ctx, entry); err != nil {
		return gameerr.NewConfigError(key, "failed to persist: "+err.Error())
	}

	decoded, err := decodeValue(raw)
	if err != nil {
		return gameerr.NewConfigError(key, "failed to decode persisted value: "+err.Error())
	}

	s.mu.Lock()
	s.cache[key] = cacheEntry{value: decoded, loadedAt: time.Now()}
	s.mu.Unlock()

	s.log.Info("config updated", "key", key, "modified_by", modifiedBy)
	return nil
}

// Refresh 重载全部配置，供定时任务调用，失败只告警
func (s *Store) Refresh(ctx context.Context) {
	s.Initialize(ctx)
}

// topLevel 获取顶层键的值，过期时先尝试数据库重载
// 数据库缺失或不可达时回退值同样按 TTL 缓存，避免热路径反复查库
func (s *Store) topLevel(ctx context.Context, key string) (any, bool) {
	s.mu.RLock()
	entry, cached := s.cache[key]
	s.mu.RUnlock()

	if cached && time.Since(entry.loadedAt) < s.ttl {
		return entry.value, true
	}

	loaded, err := s.source.Load(ctx, key)
	if err == nil && loaded != nil {
		value, decodeErr := decodeValue(loaded.Value)
		if decodeErr == nil {
			s.setCache(key, value)
			return value, true
		}
		s.log.Warn("malformed config entry in database", "key", key, "error", decodeErr)
	} else if err != nil {
		if errors.Is(err, postgres.ErrNoRows) {
			s.log.Debug("config entry absent in database, using default", "key", key)
		} else {
			s.log.Warn("failed to reload config entry", "key", key, "error", err)
		}
	}

	// 数据库不可达或条目缺失时沿用过期缓存
	if cached {
		s.setCache(key, entry.value)
		return entry.value, true
	}

	if dv, ok := s.defaults[key]; ok {
		s.setCache(key, dv)
		return dv, true
	}
	return nil, false
}

func (s *Store) setCache(key string, value any) {
	s.mu.Lock()
	s.cache[key] = cacheEntry{value: value, loadedAt: time.Now()}
	s.mu.Unlock()
}

// decodeValue 解析 JSON 配置值
func decodeValue(raw json.RawMessage) (any, error) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, err
	}
	return value, nil
}

// splitPath 拆分点分路径为顶层键和剩余路径
func splitPath(path string) (string, string) {
	if idx := strings.IndexByte(path, '.'); idx >= 0 {
		return path[:idx], path[idx+1:]
	}
	return path, ""
}

// walkPath 沿点分路径深入嵌套 map
func walkPath(value any, path string) (any, bool) {
	current := value
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// lookupPath 从默认值表按完整路径查找
func lookupPath(defaults map[string]any, path string) (any, bool) {
	topKey, rest := splitPath(path)
	value, ok := defaults[topKey]
	if !ok {
		return nil, false
	}
	if rest == "" {
		return value, true
	}
	return walkPath(value, rest)
}

// toFloat64 数值类型归一化
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
