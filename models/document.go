package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OfferingDocument is a due-diligence file owned by exactly one offering.
// Unlike pictures, documents keep the uploader's original filename.
type OfferingDocument struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	OfferingID string    `gorm:"type:uuid;not null;index" json:"offering_id"`
	Offering   *Offering `gorm:"foreignKey:OfferingID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Filename   string    `gorm:"size:255;not null" json:"filename"`
	Path       string    `gorm:"size:255;not null" json:"path"`
	Size       int64     `json:"size"`
}

func (d *OfferingDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
