package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OfferingPicture is a property photo owned by exactly one offering.
// Immutable once created; rows are only ever inserted or deleted whole.
type OfferingPicture struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	OfferingID string    `gorm:"type:uuid;not null;index" json:"offering_id"`
	Offering   *Offering `gorm:"foreignKey:OfferingID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	// blob store URL (e.g. public/pictures/property-....jpg)
	Path string `gorm:"size:255;not null" json:"path"`
	Size int64  `json:"size"`
}

func (p *OfferingPicture) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
