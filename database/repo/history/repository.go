// Package history stores the append-only log of fractal requests.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/friedchicken888/cab432-a2/database"
	"github.com/friedchicken888/cab432-a2/database/models"
	"github.com/friedchicken888/cab432-a2/database/repo/listing"
	"gorm.io/gorm"
)

// Sorts is the sort allow-list of history listings.
var Sorts = listing.FractalSorts("generated_at", map[string]string{
	"id":           "h.id",
	"generated_at": "h.generated_at",
	"user_id":      "h.user_id",
	"username":     "h.username",
})

// Row is one history entry. Fractal fields are nil once the fractal has
// been purged.
type Row struct {
	ID           uint      `gorm:"column:id" json:"id"`
	UserID       string    `gorm:"column:user_id" json:"userId"`
	Username     string    `gorm:"column:username" json:"username"`
	FractalID    *uint     `gorm:"column:fractal_id" json:"fractalId"`
	Hash         *string   `gorm:"column:hash" json:"hash"`
	Width        *int      `gorm:"column:width" json:"width"`
	Height       *int      `gorm:"column:height" json:"height"`
	Iterations   *int      `gorm:"column:iterations" json:"iterations"`
	Power        *float64  `gorm:"column:power" json:"power"`
	CReal        *float64  `gorm:"column:c_real" json:"c_real"`
	CImag        *float64  `gorm:"column:c_imag" json:"c_imag"`
	Scale        *float64  `gorm:"column:scale" json:"scale"`
	OffsetX      *float64  `gorm:"column:offset_x" json:"offsetX"`
	OffsetY      *float64  `gorm:"column:offset_y" json:"offsetY"`
	ColourScheme *string   `gorm:"column:colour_scheme" json:"colourScheme"`
	GeneratedAt  time.Time `gorm:"column:generated_at" json:"generated_at"`
	BlobKey      *string   `gorm:"column:blob_key" json:"-"`
	URL          string    `gorm:"-" json:"url,omitempty"`
}

const rowColumns = "h.id, h.user_id, h.username, h.fractal_id, f.hash, f.width, f.height, f.iterations, f.power, " +
	"f.c_real, f.c_imag, f.scale, f.offset_x, f.offset_y, f.colour_scheme, h.generated_at, f.blob_key"

// Repository 历史记录仓库
type Repository struct {
	db database.Provider
}

// NewRepository 创建历史记录仓库
func NewRepository(db database.Provider) *Repository {
	return &Repository{db: db}
}

// Create appends an entry.
func (r *Repository) Create(ctx context.Context, userID, username string, fractalID uint) (*models.HistoryEntry, error) {
	entry := &models.HistoryEntry{UserID: userID, Username: username, FractalID: &fractalID}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("create history entry: %w", err)
	}
	return entry, nil
}

// List returns one page of entries, left-joined with their fractals, and
// the total matching count. An empty userID lists every user's entries.
func (r *Repository) List(ctx context.Context, userID string, q listing.Query) ([]Row, int64, error) {
	base := r.db.WithContext(ctx).
		Table("history AS h").
		Joins("LEFT JOIN fractals AS f ON f.id = h.fractal_id")
	if userID != "" {
		base = base.Where("h.user_id = ?", userID)
	}
	base = q.Filters.Apply(base)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}

	rows := make([]Row, 0, q.Limit)
	page := listing.Page(Sorts.Order(base.Session(&gorm.Session{}).Select(rowColumns), q, "h.id"), q)
	if err := page.Scan(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}
	return rows, total, nil
}
