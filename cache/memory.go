package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

// MemoryConfig ristretto 配置
type MemoryConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

// DefaultMemoryConfig 默认内存缓存配置（64MB）
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		NumCounters: 100000,
		MaxCost:     64 << 20,
		BufferItems: 64,
	}
}

// MemoryCache 基于 ristretto 的进程内缓存
type MemoryCache struct {
	client *ristretto.Cache
}

// NewMemoryCache 创建内存缓存
func NewMemoryCache(cfg MemoryConfig) (*MemoryCache, error) {
	def := DefaultMemoryConfig()
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = def.NumCounters
	}
	if cfg.MaxCost <= 0 {
		cfg.MaxCost = def.MaxCost
	}
	if cfg.BufferItems <= 0 {
		cfg.BufferItems = def.BufferItems
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	return &MemoryCache{client: c}, nil
}

// Set 设置缓存项。值先序列化，读写双方拿到的都是独立副本
func (m *MemoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value for %s: %w", key, err)
	}
	if m.client.SetWithTTL(key, data, int64(len(data)), expiration) {
		m.client.Wait()
	}
	return nil
}

// Get 获取缓存项
func (m *MemoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	value, found := m.client.Get(key)
	if !found {
		return ErrCacheMiss
	}
	data, ok := value.([]byte)
	if !ok {
		return ErrCacheMiss
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode cache value for %s: %w", key, err)
	}
	return nil
}

// Delete 删除缓存项
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.client.Del(key)
	return nil
}

// Exists 检查缓存项是否存在
func (m *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	_, found := m.client.Get(key)
	return found, nil
}

func (m *MemoryCache) Health(ctx context.Context) error {
	return nil
}

// ClearAll 清空全部缓存
func (m *MemoryCache) ClearAll(ctx context.Context) error {
	m.client.Clear()
	return nil
}

func (m *MemoryCache) Close() error {
	m.client.Close()
	return nil
}

func (m *MemoryCache) Name() string {
	return "memory"
}
