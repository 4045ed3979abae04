package models

import "time"

// RefreshToken stores a hashed representation of a refresh token for session
// rotation and revocation. Subject may be an investor or an admin; Role
// disambiguates which table SubjectID points into.
type RefreshToken struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	SubjectID string    `gorm:"type:uuid;index;not null"`
	Role      string    `gorm:"size:16;not null"`
	TokenHash string    `gorm:"size:128;not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"index;not null"`
	Revoked   bool      `gorm:"default:false"`
}
