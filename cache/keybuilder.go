package cache

import (
	"encoding/json"
	"fmt"
	"strings"
)

// KeyBuilder 缓存键构建器
type KeyBuilder struct {
	prefix string
	sep    string
}

// NewKeyBuilder 创建新的键构建器
func NewKeyBuilder(prefix string) *KeyBuilder {
	return &KeyBuilder{
		prefix: prefix,
		sep:    ":",
	}
}

// Prefix 返回键前缀，也作为命中率指标的 kind 标签
func (kb *KeyBuilder) Prefix() string {
	return kb.prefix
}

// Build 构建缓存键
func (kb *KeyBuilder) Build(parts ...string) string {
	if len(parts) == 0 {
		return kb.prefix
	}
	return kb.prefix + kb.sep + strings.Join(parts, kb.sep)
}

// BuildID 构建带 ID 的缓存键
func (kb *KeyBuilder) BuildID(id interface{}) string {
	return fmt.Sprintf("%s%s%v", kb.prefix, kb.sep, id)
}

// Pattern 返回匹配该前缀全部键的 glob 模式
func (kb *KeyBuilder) Pattern() string {
	return kb.prefix + kb.sep + "*"
}

var (
	// ArtifactByHash 哈希到分形记录
	ArtifactByHash = NewKeyBuilder("artifact-by-hash")

	// ArtifactBlobKeyByID 分形 ID 到 blob key
	ArtifactBlobKeyByID = NewKeyBuilder("artifact-blobkey-by-id")

	// Collection 用户图库列表页
	Collection = NewKeyBuilder("collection")

	// AdminCollection 管理员图库列表页
	AdminCollection = NewKeyBuilder("admin-collection")
)

// KindOf 返回键所属的前缀
func KindOf(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}

// SerializeFilters 以键排序的 JSON 对象表示过滤条件，空过滤条件为 "{}"
func SerializeFilters(filters map[string]string) string {
	if len(filters) == 0 {
		return "{}"
	}
	// encoding/json writes map keys in sorted order
	b, err := json.Marshal(filters)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// PageKey 构建列表页的缓存键
func PageKey(kb *KeyBuilder, scopeID string, filters map[string]string, sortBy, sortOrder string, limit, offset int) string {
	parts := make([]string, 0, 6)
	if scopeID != "" {
		parts = append(parts, scopeID)
	}
	parts = append(parts, SerializeFilters(filters), sortBy, sortOrder, fmt.Sprint(limit), fmt.Sprint(offset))
	return kb.Build(parts...)
}
