package models

import "time"

// HistoryEntry records that a user requested a fractal. Username is copied
// at write time; FractalID is cleared when the fractal is purged.
type HistoryEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"type:varchar(128);not null;index" json:"userId"`
	Username    string    `gorm:"type:varchar(255);not null" json:"username"`
	FractalID   *uint     `gorm:"index" json:"fractalId"`
	GeneratedAt time.Time `gorm:"autoCreateTime;index" json:"generated_at"`

	Fractal *Fractal `gorm:"foreignKey:FractalID;constraint:OnDelete:SET NULL" json:"-"`
}

func (HistoryEntry) TableName() string {
	return "history"
}
