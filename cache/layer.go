package cache

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/friedchicken888/cab432-a2/internal/metrics"
	"github.com/friedchicken888/cab432-a2/utils"
	"go.uber.org/zap"
)

// DefaultOpTimeout bounds every cache call made through a Layer.
const DefaultOpTimeout = 250 * time.Millisecond

// Layer is the best-effort front of a Provider. A provider error or timeout
// is logged and reported as a miss or a no-op; it never reaches the caller.
type Layer struct {
	provider Provider
	timeout  time.Duration
	metrics  *metrics.Collector
	log      *zap.Logger
}

// NewLayer 创建缓存层，provider 为 nil 时所有操作都是空操作
func NewLayer(provider Provider, timeout time.Duration, collector *metrics.Collector) *Layer {
	if timeout <= 0 {
		timeout = DefaultOpTimeout
	}
	return &Layer{
		provider: provider,
		timeout:  timeout,
		metrics:  collector,
		log:      utils.Component("cache"),
	}
}

// Provider returns the wrapped provider.
func (l *Layer) Provider() Provider {
	if l == nil {
		return nil
	}
	return l.provider
}

// Get decodes the entry under key into dest and reports whether it was found.
func (l *Layer) Get(ctx context.Context, key string, dest interface{}) bool {
	if l == nil || l.provider == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	kind := KindOf(key)
	if err := l.provider.Get(ctx, key, dest); err != nil {
		if !IsCacheMiss(err) {
			l.metrics.RecordCacheError("get")
			l.log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		l.metrics.RecordCacheMiss(kind)
		return false
	}
	l.metrics.RecordCacheHit(kind)
	return true
}

// Set stores value under key for ttl plus up to 10% jitter.
func (l *Layer) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if l == nil || l.provider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := l.provider.Set(ctx, key, value, addJitter(ttl)); err != nil {
		l.metrics.RecordCacheError("set")
		l.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Del removes keys. Invalidation must run even if the request that caused it
// was cancelled, so the caller's cancellation is dropped.
func (l *Layer) Del(ctx context.Context, keys ...string) {
	if l == nil || l.provider == nil || len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()

	for _, key := range keys {
		if err := l.provider.Delete(ctx, key); err != nil {
			l.metrics.RecordCacheError("del")
			l.log.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// addJitter 增加最多 10% 的随机抖动，避免同时过期
func addJitter(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttl
	}
	spread := int64(ttl) / 10
	if spread <= 0 {
		return ttl
	}
	return ttl + time.Duration(rand.Int64N(spread))
}
