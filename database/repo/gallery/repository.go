// Package gallery stores users' references to fractals.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/friedchicken888/cab432-a2/database"
	"github.com/friedchicken888/cab432-a2/database/models"
	"github.com/friedchicken888/cab432-a2/database/repo/artifacts"
	"github.com/friedchicken888/cab432-a2/database/repo/listing"
	"github.com/friedchicken888/cab432-a2/internal/fractal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserSorts is the sort allow-list of a user's own gallery.
var UserSorts = listing.FractalSorts("added_at", map[string]string{
	"id":       "g.id",
	"added_at": "g.added_at",
})

// AdminSorts additionally allows sorting by owner.
var AdminSorts = listing.FractalSorts("added_at", map[string]string{
	"id":       "g.id",
	"added_at": "g.added_at",
	"user_id":  "g.user_id",
})

// Row is one gallery entry joined with its fractal.
type Row struct {
	ID           uint      `gorm:"column:id" json:"id"`
	UserID       string    `gorm:"column:user_id" json:"userId,omitempty"`
	FractalID    uint      `gorm:"column:fractal_id" json:"-"`
	Hash         string    `gorm:"column:hash" json:"hash"`
	Width        int       `gorm:"column:width" json:"width"`
	Height       int       `gorm:"column:height" json:"height"`
	Iterations   int       `gorm:"column:iterations" json:"iterations"`
	Power        float64   `gorm:"column:power" json:"power"`
	CReal        float64   `gorm:"column:c_real" json:"c_real"`
	CImag        float64   `gorm:"column:c_imag" json:"c_imag"`
	Scale        float64   `gorm:"column:scale" json:"scale"`
	OffsetX      float64   `gorm:"column:offset_x" json:"offsetX"`
	OffsetY      float64   `gorm:"column:offset_y" json:"offsetY"`
	ColourScheme string    `gorm:"column:colour_scheme" json:"colourScheme"`
	AddedAt      time.Time `gorm:"column:added_at" json:"added_at"`
	FractalHash  string    `gorm:"column:fractal_hash" json:"fractal_hash"`
	BlobKey      string    `gorm:"column:blob_key" json:"-"`
	URL          string    `gorm:"-" json:"url,omitempty"`
}

const rowColumns = "g.id, g.user_id, g.fractal_id, f.hash, f.width, f.height, f.iterations, f.power, " +
	"f.c_real, f.c_imag, f.scale, f.offset_x, f.offset_y, f.colour_scheme, g.added_at, g.fractal_hash, f.blob_key"

// Removal describes a deleted gallery entry.
type Removal struct {
	Entry models.GalleryEntry
	// Purged is the fractal deleted with its last reference, if any.
	Purged *models.Fractal
}

// PurgeFunc runs inside the deletion transaction before the fractal row is
// deleted. Returning an error rolls the whole deletion back.
type PurgeFunc func(tx *gorm.DB, f *models.Fractal) error

// Repository 图库仓库
type Repository struct {
	db database.Provider
}

// NewRepository 创建图库仓库
func NewRepository(db database.Provider) *Repository {
	return &Repository{db: db}
}

// Ensure returns the id of the (userID, hash) entry, inserting it if absent.
// created reports whether this call inserted it. The fractal must still
// exist; otherwise fractal.ErrStaleArtifact is returned.
func (r *Repository) Ensure(ctx context.Context, userID string, fractalID uint, hash string) (id uint, created bool, err error) {
	err = r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		// 共享锁阻止并发清理在插入前删除分形
		q := tx.Model(&models.Fractal{})
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "SHARE"})
		}
		var ids []uint
		if err := q.Where("id = ? AND hash = ?", fractalID, hash).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return fractal.ErrStaleArtifact
		}

		entry := models.GalleryEntry{UserID: userID, FractalID: fractalID, FractalHash: hash}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "fractal_hash"}},
			DoNothing: true,
		}).Create(&entry)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrForeignKeyViolated) {
				return fractal.ErrStaleArtifact
			}
			return res.Error
		}
		if res.RowsAffected == 1 && entry.ID != 0 {
			id, created = entry.ID, true
			return nil
		}

		var existing models.GalleryEntry
		if err := tx.Select("id").Where("user_id = ? AND fractal_hash = ?", userID, hash).First(&existing).Error; err != nil {
			return err
		}
		id = existing.ID
		return nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("ensure gallery entry: %w", err)
	}
	return id, created, nil
}

// CountByHash counts entries referencing hash.
func (r *Repository) CountByHash(ctx context.Context, hash string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.GalleryEntry{}).Where("fractal_hash = ?", hash).Count(&n).Error
	return n, err
}

// Get loads an entry, restricted to userID unless isAdmin.
func (r *Repository) Get(ctx context.Context, id uint, userID string, isAdmin bool) (*models.GalleryEntry, error) {
	var entry models.GalleryEntry
	q := r.db.WithContext(ctx).Where("id = ?", id)
	if !isAdmin {
		q = q.Where("user_id = ?", userID)
	}
	if err := q.First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fractal.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// Remove deletes an entry. Non-admins only see their own entries, so a
// foreign id is fractal.ErrNotFound. When no entry references the fractal
// afterwards, purge runs and the fractal row is deleted, all under a lock
// on the fractal row so concurrent sibling deletions count consistently.
func (r *Repository) Remove(ctx context.Context, id uint, userID string, isAdmin bool, purge PurgeFunc) (*Removal, error) {
	var out Removal
	err := r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		q := tx.Where("id = ?", id)
		if !isAdmin {
			q = q.Where("user_id = ?", userID)
		}
		if err := q.First(&out.Entry).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fractal.ErrNotFound
			}
			return err
		}

		f, err := artifacts.LockInTx(tx, out.Entry.FractalID)
		if err != nil && !errors.Is(err, fractal.ErrNotFound) {
			return err
		}

		if err := tx.Delete(&models.GalleryEntry{}, out.Entry.ID).Error; err != nil {
			return err
		}
		if f == nil {
			return nil
		}

		var remaining int64
		if err := tx.Model(&models.GalleryEntry{}).Where("fractal_hash = ?", out.Entry.FractalHash).Count(&remaining).Error; err != nil {
			return err
		}
		if remaining > 0 {
			return nil
		}

		if purge != nil {
			if err := purge(tx, f); err != nil {
				return err
			}
		}
		if err := artifacts.DeleteInTx(tx, f.ID); err != nil {
			return err
		}
		out.Purged = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns one page of entries and the total matching count. An empty
// userID lists every user's entries.
func (r *Repository) List(ctx context.Context, userID string, q listing.Query, sorts listing.Sorts) ([]Row, int64, error) {
	base := r.db.WithContext(ctx).
		Table("gallery AS g").
		Joins("JOIN fractals AS f ON f.id = g.fractal_id")
	if userID != "" {
		base = base.Where("g.user_id = ?", userID)
	}
	base = q.Filters.Apply(base)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count gallery: %w", err)
	}

	rows := make([]Row, 0, q.Limit)
	page := listing.Page(sorts.Order(base.Session(&gorm.Session{}).Select(rowColumns), q, "g.id"), q)
	if err := page.Scan(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list gallery: %w", err)
	}
	return rows, total, nil
}
