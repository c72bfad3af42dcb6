package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisRegistry keeps each scope as a Redis set, shared by every instance
// using the same Redis cache.
type RedisRegistry struct {
	client *redis.Client
	prefix string
}

// NewRedisRegistry 创建基于 Redis SET 的注册表
func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{client: client, prefix: "collection-keys:"}
}

func (r *RedisRegistry) setKey(scope string) string {
	return r.prefix + scope
}

// Track adds key to the scope set and pushes the set's expiry past the
// page's own.
func (r *RedisRegistry) Track(ctx context.Context, scope, key string, ttl time.Duration) error {
	setKey := r.setKey(scope)
	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, setKey, key)
	pipe.Expire(ctx, setKey, 2*ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisRegistry) Drain(ctx context.Context, scope string) ([]string, error) {
	setKey := r.setKey(scope)
	pipe := r.client.TxPipeline()
	members := pipe.SMembers(ctx, setKey)
	pipe.Del(ctx, setKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return members.Val(), nil
}
