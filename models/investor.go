package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Residency status values accepted at registration.
const (
	ResidencyIndividualCalifornia = "individual_california_resident"
	ResidencyEntityCalifornia     = "entity_california_resident"
	ResidencyNonCalifornia        = "non_california_resident"
)

// Investing experience values accepted at registration.
const (
	ExperienceExperienced = "experienced_trust_deed_investor"
	ExperienceNew         = "new_trust_deed_investor"
)

// Investor is a registered (prospective) accredited investor.
// Accounts start unconfirmed and are activated via an emailed confirmation code.
type Investor struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	// bcrypt hash, never serialized
	Password                 string `gorm:"size:60;not null" json:"-"`
	ResidencyStatus          string `gorm:"size:30;not null" json:"residency_status"`
	InvestingExperience      string `gorm:"size:32;not null" json:"investing_experience"`
	InvestingExperienceYears int    `json:"investing_experience_years"`
	ConfirmationCode         string `gorm:"size:32;index" json:"-"`
	Confirmed                bool   `gorm:"default:false" json:"confirmed"`
	// Full suitability questionnaire answers as submitted (JSONB)
	Questionnaire datatypes.JSON `json:"questionnaire,omitempty"`
	// Participates in password-reset token invalidation
	LastLoginAt *time.Time `json:"-"`
}

func (i *Investor) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
