package cache

import (
	"context"
	"errors"
	"time"

	"github.com/friedchicken888/cab432-a2/utils"
	"go.uber.org/zap"
)

// ListingCache caches paginated listing pages and invalidates them by scope.
//
// A page read from the store before a mutation may be written after that
// mutation's Invalidate. Such a page is served for at most one listing TTL,
// which is therefore kept short.
type ListingCache struct {
	layer    *Layer
	registry Registry
	ttl      time.Duration
	log      *zap.Logger
}

// NewListingCache 创建列表缓存；layer 或 registry 为 nil 时不缓存
func NewListingCache(layer *Layer, registry Registry, ttl time.Duration) *ListingCache {
	return &ListingCache{
		layer:    layer,
		registry: registry,
		ttl:      ttl,
		log:      utils.Component("listing-cache"),
	}
}

func (c *ListingCache) enabled() bool {
	return c != nil && c.layer != nil && c.layer.Provider() != nil && c.registry != nil && c.ttl > 0
}

// Get loads the page under key into dest.
func (c *ListingCache) Get(ctx context.Context, key string, dest interface{}) bool {
	if !c.enabled() {
		return false
	}
	return c.layer.Get(ctx, key, dest)
}

// Put tracks key under every scope and then stores the page. If any scope
// refuses the key the page is not stored.
func (c *ListingCache) Put(ctx context.Context, key string, value interface{}, scopes ...string) {
	if !c.enabled() {
		return
	}
	tctx, cancel := context.WithTimeout(ctx, c.layer.timeout)
	defer cancel()
	for _, scope := range scopes {
		if err := c.registry.Track(tctx, scope, key, c.ttl); err != nil {
			if !errors.Is(err, ErrRegistryFull) {
				c.log.Warn("listing registry track failed", zap.String("scope", scope), zap.Error(err))
			}
			return
		}
	}
	c.layer.Set(ctx, key, value, c.ttl)
}

// Invalidate deletes every page tracked under the given scopes.
func (c *ListingCache) Invalidate(ctx context.Context, scopes ...string) {
	if !c.enabled() {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, scope := range scopes {
		dctx, cancel := context.WithTimeout(ctx, c.layer.timeout)
		keys, err := c.registry.Drain(dctx, scope)
		cancel()
		if err != nil {
			c.log.Warn("listing registry drain failed", zap.String("scope", scope), zap.Error(err))
			continue
		}
		c.layer.Del(ctx, keys...)
	}
}

// TTL returns the lifetime of cached pages.
func (c *ListingCache) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.ttl
}
