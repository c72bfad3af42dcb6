// Package history records which user asked for which fractal.
package history

import (
	"context"
	"time"

	repo "github.com/friedchicken888/cab432-a2/database/repo/history"
	"github.com/friedchicken888/cab432-a2/database/repo/listing"
	"github.com/friedchicken888/cab432-a2/storage"
	"github.com/friedchicken888/cab432-a2/utils"
	"go.uber.org/zap"
)

// ListResult is one page of history. The echo fields are only filled for
// the admin listing.
type ListResult struct {
	Data       []repo.Row        `json:"data"`
	TotalCount int64             `json:"totalCount"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
	Filters    map[string]string `json:"filters,omitempty"`
	SortBy     string            `json:"sortBy,omitempty"`
	SortOrder  string            `json:"sortOrder,omitempty"`
}

// Service 历史记录服务。列表不走缓存，每次请求都会新增记录。
type Service struct {
	repo   *repo.Repository
	blobs  storage.Provider
	urlTTL time.Duration
	log    *zap.Logger
}

// NewService 创建历史记录服务
func NewService(r *repo.Repository, blobs storage.Provider, urlTTL time.Duration) *Service {
	return &Service{repo: r, blobs: blobs, urlTTL: urlTTL, log: utils.Component("history")}
}

// Record appends an entry. Failures are logged, never returned.
func (s *Service) Record(ctx context.Context, userID, username string, artifactID uint) {
	if _, err := s.repo.Create(ctx, userID, username, artifactID); err != nil {
		s.log.Warn("failed to record history",
			zap.String("user_id", userID),
			zap.String("username", utils.SanitizeLogUsername(username)),
			zap.Uint("fractal_id", artifactID),
			zap.Error(err))
	}
}

// ListAll returns one page across all users.
func (s *Service) ListAll(ctx context.Context, q listing.Query) (*ListResult, error) {
	res, err := s.list(ctx, "", q)
	if err != nil {
		return nil, err
	}
	q = repo.Sorts.Normalize(q)
	res.Filters, res.SortBy, res.SortOrder = q.Filters.Map(), q.SortBy, q.SortOrder
	return res, nil
}

// ListForUser returns one page of userID's history.
func (s *Service) ListForUser(ctx context.Context, userID string, q listing.Query) (*ListResult, error) {
	return s.list(ctx, userID, q)
}

func (s *Service) list(ctx context.Context, userID string, q listing.Query) (*ListResult, error) {
	q = repo.Sorts.Normalize(q)
	rows, total, err := s.repo.List(ctx, userID, q)
	if err != nil {
		return nil, err
	}

	keys := make([]string, len(rows))
	for i, r := range rows {
		if r.BlobKey != nil {
			keys[i] = *r.BlobKey
		}
	}
	urls, err := storage.AccessURLs(ctx, s.blobs, keys, s.urlTTL)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].URL = urls[i]
	}
	return &ListResult{Data: rows, TotalCount: total, Limit: q.Limit, Offset: q.Offset}, nil
}
