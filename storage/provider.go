package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound 对象不存在
var ErrNotFound = errors.New("blob not found")

// Provider 存储提供者接口
type Provider interface {
	// Put 保存数据并返回新分配的 key
	Put(ctx context.Context, data []byte, contentType string) (string, error)

	// AccessURL 返回 ttl 内有效的访问链接
	AccessURL(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Delete 删除对象，对象不存在时视为成功
	Delete(ctx context.Context, key string) error

	// Exists 检查对象是否存在
	Exists(ctx context.Context, key string) (bool, error)

	// Health 检查存储健康状态
	Health(ctx context.Context) error

	// Name 返回存储名称
	Name() string
}
