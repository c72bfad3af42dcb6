// Package artifacts is the durable store of rendered fractals.
package artifacts

import (
	"context"
	"errors"
	"fmt"

	"github.com/friedchicken888/cab432-a2/database"
	"github.com/friedchicken888/cab432-a2/database/models"
	"github.com/friedchicken888/cab432-a2/internal/fractal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository 分形记录仓库
type Repository struct {
	db database.Provider
}

// NewRepository 创建分形记录仓库
func NewRepository(db database.Provider) *Repository {
	return &Repository{db: db}
}

// FindByHash 按哈希查找，不存在时返回 fractal.ErrNotFound
func (r *Repository) FindByHash(ctx context.Context, hash string) (*models.Fractal, error) {
	var f models.Fractal
	err := r.db.WithContext(ctx).Where("hash = ?", hash).First(&f).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

// FindByID 按 ID 查找
func (r *Repository) FindByID(ctx context.Context, id uint) (*models.Fractal, error) {
	var f models.Fractal
	if err := r.db.WithContext(ctx).First(&f, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

// GetBlobKey 返回分形的 blob key
func (r *Repository) GetBlobKey(ctx context.Context, id uint) (string, error) {
	var f models.Fractal
	err := r.db.WithContext(ctx).Select("id", "blob_key").First(&f, id).Error
	if err != nil {
		return "", notFound(err)
	}
	return f.BlobKey, nil
}

// Create 插入记录并回填 ID。哈希已存在时返回 fractal.ErrConflict，
// 由唯一约束保证，不依赖先查后写
func (r *Repository) Create(ctx context.Context, f *models.Fractal) error {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "hash"}}, DoNothing: true}).
		Create(f)
	if res.Error != nil {
		return fmt.Errorf("failed to create fractal: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: fractal %s", fractal.ErrConflict, f.Hash)
	}
	return nil
}

// Delete 删除分形及其历史引用
func (r *Repository) Delete(ctx context.Context, id uint) error {
	return r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		return DeleteInTx(tx, id)
	})
}

// DeleteInTx clears history references to the fractal and deletes it within
// the caller's transaction.
func DeleteInTx(tx *gorm.DB, id uint) error {
	if err := tx.Model(&models.HistoryEntry{}).Where("fractal_id = ?", id).Update("fractal_id", nil).Error; err != nil {
		return fmt.Errorf("failed to detach history: %w", err)
	}
	res := tx.Delete(&models.Fractal{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete fractal: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fractal.ErrNotFound
	}
	return nil
}

// LockInTx loads the fractal inside tx, holding a row lock where the
// database supports it.
func LockInTx(tx *gorm.DB, id uint) (*models.Fractal, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var f models.Fractal
	if err := q.First(&f, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fractal.ErrNotFound
	}
	return err
}
