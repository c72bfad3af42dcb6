package models

import "time"

// GalleryEntry is a user's reference to a fractal. FractalHash is kept on
// the row so references can be counted without a join.
type GalleryEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_gallery_user_hash,priority:1" json:"userId"`
	FractalID   uint      `gorm:"not null;index" json:"fractalId"`
	FractalHash string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_gallery_user_hash,priority:2;index:idx_gallery_hash" json:"fractalHash"`
	AddedAt     time.Time `gorm:"autoCreateTime;index" json:"added_at"`

	Fractal *Fractal `gorm:"foreignKey:FractalID;constraint:OnDelete:CASCADE" json:"-"`
}

func (GalleryEntry) TableName() string {
	return "gallery"
}
