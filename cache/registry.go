package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRegistryFull is returned by Track when a scope holds its limit of live
// keys. The caller must skip caching the page so it can never go stale.
var ErrRegistryFull = errors.New("listing registry scope full")

const (
	// ScopeAdmin groups every admin-wide listing page.
	ScopeAdmin = "admin"

	// DefaultRegistryLimit is the per-scope key bound of MemoryRegistry.
	DefaultRegistryLimit = 1024
)

// ScopeUser returns the registry scope of one user's listing pages.
func ScopeUser(userID string) string {
	return "user:" + userID
}

// Registry records which listing keys are outstanding per scope so that a
// mutation can delete exactly the pages it affects.
type Registry interface {
	// Track registers key under scope for ttl. A key must be tracked before
	// its page is written.
	Track(ctx context.Context, scope, key string, ttl time.Duration) error

	// Drain removes and returns every key tracked under scope.
	Drain(ctx context.Context, scope string) ([]string, error)
}

// MemoryRegistry is an in-process Registry, suitable when the cache provider
// is local to the process.
type MemoryRegistry struct {
	mu     sync.Mutex
	limit  int
	scopes map[string]map[string]time.Time
	now    func() time.Time
}

// NewMemoryRegistry 创建进程内注册表，limit <= 0 时使用默认上限
func NewMemoryRegistry(limit int) *MemoryRegistry {
	if limit <= 0 {
		limit = DefaultRegistryLimit
	}
	return &MemoryRegistry{
		limit:  limit,
		scopes: make(map[string]map[string]time.Time),
		now:    time.Now,
	}
}

func (r *MemoryRegistry) Track(_ context.Context, scope, key string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	keys, ok := r.scopes[scope]
	if !ok {
		keys = make(map[string]time.Time)
		r.scopes[scope] = keys
	}
	if _, exists := keys[key]; !exists && len(keys) >= r.limit {
		for k, exp := range keys {
			if !exp.After(now) {
				delete(keys, k)
			}
		}
		if len(keys) >= r.limit {
			return ErrRegistryFull
		}
	}
	// jittered cache TTLs run up to 10% longer than ttl
	keys[key] = now.Add(ttl + ttl/10)
	return nil
}

func (r *MemoryRegistry) Drain(_ context.Context, scope string) ([]string, error) {
	r.mu.Lock()
	keys := r.scopes[scope]
	delete(r.scopes, scope)
	r.mu.Unlock()

	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	return out, nil
}

// Len returns the number of keys tracked under scope.
func (r *MemoryRegistry) Len(scope string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scopes[scope])
}
