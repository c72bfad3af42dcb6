// Package artifacts fronts the durable fractal store with the cache.
//
// A cached record is trusted without re-reading the store. Callers that
// find a cached record has vanished call Invalidate and retry against the
// store.
package artifacts

import (
	"context"
	"errors"
	"time"

	"github.com/friedchicken888/cab432-a2/cache"
	"github.com/friedchicken888/cab432-a2/database/models"
	repo "github.com/friedchicken888/cab432-a2/database/repo/artifacts"
	"github.com/friedchicken888/cab432-a2/internal/fractal"
)

// DefaultTTL is how long artifact lookups stay cached.
const DefaultTTL = time.Hour

// Service 分形记录服务
type Service struct {
	repo  *repo.Repository
	cache *cache.Layer
	ttl   time.Duration
}

// NewService 创建分形记录服务
func NewService(r *repo.Repository, layer *cache.Layer, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{repo: r, cache: layer, ttl: ttl}
}

// FindByHash returns the fractal for hash, from cache when possible.
func (s *Service) FindByHash(ctx context.Context, hash string) (*models.Fractal, error) {
	var cached models.Fractal
	if s.cache.Get(ctx, cache.ArtifactByHash.Build(hash), &cached) {
		return &cached, nil
	}
	return s.FindByHashUncached(ctx, hash)
}

// FindByHashUncached reads the store and refreshes the cache.
func (s *Service) FindByHashUncached(ctx context.Context, hash string) (*models.Fractal, error) {
	f, err := s.repo.FindByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, cache.ArtifactByHash.Build(hash), f, s.ttl)
	return f, nil
}

func (s *Service) FindByID(ctx context.Context, id uint) (*models.Fractal, error) {
	return s.repo.FindByID(ctx, id)
}

// Create stores a new fractal for params. The by-hash entry is dropped
// rather than filled, so the next read sees the committed row.
func (s *Service) Create(ctx context.Context, p fractal.Params, hash, blobKey string) (*models.Fractal, error) {
	p = p.Normalize()
	f := &models.Fractal{
		Hash:          hash,
		Width:         p.Width,
		Height:        p.Height,
		MaxIterations: p.MaxIterations,
		Power:         p.Power,
		CReal:         p.C.Real,
		CImag:         p.C.Imag,
		Scale:         p.Scale,
		OffsetX:       p.OffsetX,
		OffsetY:       p.OffsetY,
		ColourScheme:  p.ColourScheme,
		BlobKey:       blobKey,
	}
	err := s.repo.Create(ctx, f)
	s.cache.Del(ctx, cache.ArtifactByHash.Build(hash))
	if err != nil {
		return nil, err
	}
	return f, nil
}

// GetBlobKey returns the blob key of fractal id. A store miss drops the
// cached key and reports fractal.ErrNotFound.
func (s *Service) GetBlobKey(ctx context.Context, id uint) (string, error) {
	key := cache.ArtifactBlobKeyByID.BuildID(id)
	var blobKey string
	if s.cache.Get(ctx, key, &blobKey) && blobKey != "" {
		return blobKey, nil
	}

	blobKey, err := s.repo.GetBlobKey(ctx, id)
	if err != nil {
		if errors.Is(err, fractal.ErrNotFound) {
			s.cache.Del(ctx, key)
		}
		return "", err
	}
	s.cache.Set(ctx, key, blobKey, s.ttl)
	return blobKey, nil
}

// Delete removes the fractal and drops both cache entries.
func (s *Service) Delete(ctx context.Context, id uint) error {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.Invalidate(ctx, f.Hash, f.ID)
	return nil
}

// Invalidate drops every cache entry that could refer to the fractal.
func (s *Service) Invalidate(ctx context.Context, hash string, id uint) {
	s.cache.Del(ctx, CacheKeys(hash, id)...)
}

// CacheKeys lists the cache keys describing one fractal.
func CacheKeys(hash string, id uint) []string {
	return []string{cache.ArtifactByHash.Build(hash), cache.ArtifactBlobKeyByID.BuildID(id)}
}
