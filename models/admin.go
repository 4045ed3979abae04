package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Admin manages offering listings. Seeded from env on first boot.
type Admin struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	// bcrypt hash, never serialized
	Password string `gorm:"size:60;not null" json:"-"`
}

func (a *Admin) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
