package cache

import (
	"context"
	"errors"
	"time"
)

// Provider 缓存提供者接口
type Provider interface {
	// Set 设置缓存项，value 以 JSON 形式保存
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	// Get 读取缓存项到 dest，不存在时返回 ErrCacheMiss
	Get(ctx context.Context, key string, dest interface{}) error

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)

	// Health 检查缓存后端是否可用
	Health(ctx context.Context) error

	Close() error

	Name() string
}

// ErrCacheMiss 缓存未命中错误
var ErrCacheMiss = errors.New("cache miss")

// IsCacheMiss 判断是否为缓存未命中错误
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}
