// Package gallery manages users' collections of fractals and keeps the
// cached listings coherent with them.
package gallery

import (
	"context"
	"fmt"
	"time"

	"github.com/friedchicken888/cab432-a2/cache"
	"github.com/friedchicken888/cab432-a2/database/models"
	repo "github.com/friedchicken888/cab432-a2/database/repo/gallery"
	"github.com/friedchicken888/cab432-a2/database/repo/listing"
	"github.com/friedchicken888/cab432-a2/internal/artifacts"
	"github.com/friedchicken888/cab432-a2/internal/fractal"
	"github.com/friedchicken888/cab432-a2/internal/metrics"
	"github.com/friedchicken888/cab432-a2/storage"
	"github.com/friedchicken888/cab432-a2/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MessageDeleted       = "Gallery entry deleted successfully"
	MessageDeletedPurged = "Gallery entry and associated fractal deleted successfully"
)

// ListResult is one page of a gallery listing. The echo fields are only
// filled for the admin listing.
type ListResult struct {
	Data       []repo.Row        `json:"data"`
	TotalCount int64             `json:"totalCount"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
	Filters    map[string]string `json:"filters,omitempty"`
	SortBy     string            `json:"sortBy,omitempty"`
	SortOrder  string            `json:"sortOrder,omitempty"`
}

// DeleteResult describes a removed gallery entry.
type DeleteResult struct {
	ID     uint   `json:"id"`
	Hash   string `json:"hash"`
	Purged bool   `json:"purged"`
}

// Message is the response text for the deletion.
func (r *DeleteResult) Message() string {
	if r.Purged {
		return MessageDeletedPurged
	}
	return MessageDeleted
}

// Service 图库服务
type Service struct {
	repo      *repo.Repository
	artifacts *artifacts.Service
	blobs     storage.Provider
	listings  *cache.ListingCache
	urlTTL    time.Duration
	metrics   *metrics.Collector
	log       *zap.Logger
}

// NewService 创建图库服务
func NewService(
	r *repo.Repository,
	artifactSvc *artifacts.Service,
	blobs storage.Provider,
	listings *cache.ListingCache,
	urlTTL time.Duration,
	collector *metrics.Collector,
) *Service {
	return &Service{
		repo:      r,
		artifacts: artifactSvc,
		blobs:     blobs,
		listings:  listings,
		urlTTL:    urlTTL,
		metrics:   collector,
		log:       utils.Component("gallery"),
	}
}

// EnsureMembership makes sure userID's gallery references the fractal and
// returns the entry id. fractal.ErrStaleArtifact means the fractal row is
// gone.
func (s *Service) EnsureMembership(ctx context.Context, userID string, artifactID uint, hash string) (uint, error) {
	id, created, err := s.repo.Ensure(ctx, userID, artifactID, hash)
	if err != nil {
		return 0, err
	}
	if created {
		s.listings.Invalidate(ctx, cache.ScopeUser(userID), cache.ScopeAdmin)
	}
	return id, nil
}

// ListForUser returns one page of userID's gallery.
func (s *Service) ListForUser(ctx context.Context, userID string, q listing.Query) (*ListResult, error) {
	q = repo.UserSorts.Normalize(q)
	filters := q.Filters.Map()
	key := cache.PageKey(cache.Collection, userID, filters, q.SortBy, q.SortOrder, q.Limit, q.Offset)

	var cached ListResult
	if s.listings.Get(ctx, key, &cached) {
		return &cached, nil
	}

	rows, total, err := s.repo.List(ctx, userID, q, repo.UserSorts)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].UserID = ""
	}
	if err := s.attachURLs(ctx, rows); err != nil {
		return nil, err
	}

	res := &ListResult{Data: rows, TotalCount: total, Limit: q.Limit, Offset: q.Offset}
	s.listings.Put(ctx, key, res, cache.ScopeUser(userID))
	return res, nil
}

// ListAll returns one page across every user's gallery.
func (s *Service) ListAll(ctx context.Context, q listing.Query) (*ListResult, error) {
	q = repo.AdminSorts.Normalize(q)
	filters := q.Filters.Map()
	key := cache.PageKey(cache.AdminCollection, "", filters, q.SortBy, q.SortOrder, q.Limit, q.Offset)

	var cached ListResult
	if s.listings.Get(ctx, key, &cached) {
		return &cached, nil
	}

	rows, total, err := s.repo.List(ctx, "", q, repo.AdminSorts)
	if err != nil {
		return nil, err
	}
	if err := s.attachURLs(ctx, rows); err != nil {
		return nil, err
	}

	res := &ListResult{
		Data:       rows,
		TotalCount: total,
		Limit:      q.Limit,
		Offset:     q.Offset,
		Filters:    filters,
		SortBy:     q.SortBy,
		SortOrder:  q.SortOrder,
	}
	s.listings.Put(ctx, key, res, cache.ScopeAdmin)
	return res, nil
}

// DeleteMembership removes a gallery entry. The fractal and its blob go
// with the last entry referencing them. Non-admins can only reach their
// own entries; anything else is fractal.ErrNotFound.
func (s *Service) DeleteMembership(ctx context.Context, id uint, userID string, isAdmin bool) (*DeleteResult, error) {
	removal, err := s.repo.Remove(ctx, id, userID, isAdmin, func(tx *gorm.DB, f *models.Fractal) error {
		if err := s.blobs.Delete(tx.Statement.Context, f.BlobKey); err != nil {
			return fmt.Errorf("%w: delete %s: %v", fractal.ErrBlobStore, f.BlobKey, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.listings.Invalidate(ctx, cache.ScopeUser(removal.Entry.UserID), cache.ScopeAdmin)

	res := &DeleteResult{ID: removal.Entry.ID, Hash: removal.Entry.FractalHash}
	if removal.Purged != nil {
		res.Purged = true
		s.artifacts.Invalidate(ctx, removal.Purged.Hash, removal.Purged.ID)
		s.metrics.RecordPurge()
		s.log.Info("purged fractal",
			zap.String("hash", removal.Purged.Hash),
			zap.String("blob_key", removal.Purged.BlobKey))
	}
	return res, nil
}

// CountByHash counts gallery entries referencing hash.
func (s *Service) CountByHash(ctx context.Context, hash string) (int64, error) {
	return s.repo.CountByHash(ctx, hash)
}

func (s *Service) attachURLs(ctx context.Context, rows []repo.Row) error {
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = r.BlobKey
	}
	urls, err := storage.AccessURLs(ctx, s.blobs, keys, s.urlTTL)
	if err != nil {
		return err
	}
	for i := range rows {
		rows[i].URL = urls[i]
	}
	return nil
}
