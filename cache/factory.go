package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/friedchicken888/cab432-a2/config"
	"github.com/friedchicken888/cab432-a2/utils"
	"go.uber.org/zap"
)

// Factory 根据配置创建缓存提供者及配套的列表键注册表
type Factory struct {
	provider Provider
	registry Registry
}

// NewFactory 创建缓存工厂。redis 提供者使用共享的 Redis 注册表，
// memory 提供者使用进程内注册表
func NewFactory(cfg *config.Config) (*Factory, error) {
	log := utils.Component("cache")

	switch strings.ToLower(cfg.CacheType) {
	case "", "memory":
		mem, err := NewMemoryCache(DefaultMemoryConfig())
		if err != nil {
			return nil, err
		}
		log.Info("using memory cache")
		return &Factory{provider: mem, registry: NewMemoryRegistry(cfg.CacheRegistryLimit)}, nil

	case "redis":
		rc, err := NewRedisCache(RedisConfig{
			Address:      cfg.CacheRedisAddr,
			Password:     cfg.CacheRedisPassword,
			DB:           cfg.CacheRedisDB,
			PoolSize:     10,
			MinIdleConns: 2,
		})
		if err != nil {
			return nil, err
		}
		log.Info("using redis cache", zap.String("addr", cfg.CacheRedisAddr))
		return &Factory{provider: rc, registry: NewRedisRegistry(rc.Client())}, nil

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.CacheType)
	}
}

// NewFactoryWith 直接组装工厂，主要用于测试
func NewFactoryWith(provider Provider, registry Registry) *Factory {
	return &Factory{provider: provider, registry: registry}
}

// GetProvider 获取缓存提供者
func (f *Factory) GetProvider() Provider {
	return f.provider
}

// GetRegistry 获取列表键注册表
func (f *Factory) GetRegistry() Registry {
	return f.registry
}

// Clear 删除指定前缀下的全部键；memory 提供者无法按前缀删除，直接清空
func (f *Factory) Clear(ctx context.Context, builders ...*KeyBuilder) (int, error) {
	switch p := f.provider.(type) {
	case *RedisCache:
		total := 0
		for _, kb := range builders {
			n, err := p.ClearByPattern(ctx, kb.Pattern())
			total += n
			if err != nil {
				return total, err
			}
		}
		return total, nil
	case *MemoryCache:
		return 0, p.ClearAll(ctx)
	default:
		return 0, fmt.Errorf("cache provider %s does not support clearing", f.provider.Name())
	}
}

// Close 关闭缓存提供者
func (f *Factory) Close() error {
	if f.provider == nil {
		return nil
	}
	return f.provider.Close()
}
