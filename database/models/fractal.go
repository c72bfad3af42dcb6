package models

import "time"

// Fractal is one rendered artifact, identified by the digest of its
// canonical parameters.
type Fractal struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Hash          string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"hash"`
	Width         int       `gorm:"not null" json:"width"`
	Height        int       `gorm:"not null" json:"height"`
	MaxIterations int       `gorm:"column:iterations;not null" json:"iterations"`
	Power         float64   `gorm:"not null" json:"power"`
	CReal         float64   `gorm:"column:c_real;not null" json:"c_real"`
	CImag         float64   `gorm:"column:c_imag;not null" json:"c_imag"`
	Scale         float64   `gorm:"not null" json:"scale"`
	OffsetX       float64   `gorm:"column:offset_x;not null" json:"offsetX"`
	OffsetY       float64   `gorm:"column:offset_y;not null" json:"offsetY"`
	ColourScheme  string    `gorm:"column:colour_scheme;type:varchar(32);not null" json:"colourScheme"`
	BlobKey       string    `gorm:"type:varchar(255);not null" json:"blobKey"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Fractal) TableName() string {
	return "fractals"
}
