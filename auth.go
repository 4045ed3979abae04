package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"

	"github.com/EricBellDesigns/blackplum-wealth-platform/models"
)

// InvestorRegistration carries one registration request: account details plus
// the suitability-questionnaire answers.
type InvestorRegistration struct {
	Name                     string
	Email                    string
	Password                 string
	ResidencyStatus          string
	InvestingExperience      string
	InvestingExperienceYears int
	Questionnaire            datatypes.JSON
}

var residencyStatuses = map[string]bool{
	models.ResidencyIndividualCalifornia: true,
	models.ResidencyEntityCalifornia:     true,
	models.ResidencyNonCalifornia:        true,
}

var investingExperiences = map[string]bool{
	models.ExperienceExperienced: true,
	models.ExperienceNew:         true,
}

// RegisterInvestor creates an unconfirmed investor account and returns it,
// confirmation code included, so the caller can send the confirmation email.
func RegisterInvestor(reg InvestorRegistration) (models.Investor, error) {
	reg.Email = normalizeEmail(reg.Email)
	if reg.Name == "" || reg.Email == "" {
		return models.Investor{}, fmt.Errorf("name and email required")
	}
	if len(reg.Password) < 6 { // basic password policy
		return models.Investor{}, fmt.Errorf("password too short (min 6)")
	}
	if !residencyStatuses[reg.ResidencyStatus] {
		return models.Investor{}, fmt.Errorf("invalid residency status")
	}
	if !investingExperiences[reg.InvestingExperience] {
		return models.Investor{}, fmt.Errorf("invalid investing experience")
	}
	// pre-check existing (optimistic)
	var existing models.Investor
	if err := db.Where("email = ?", reg.Email).First(&existing).Error; err == nil {
		return models.Investor{}, fmt.Errorf("user already exists")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.Investor{}, err
	}
	code, err := generateConfirmationCode()
	if err != nil {
		return models.Investor{}, err
	}
	investor := models.Investor{
		Name:                     reg.Name,
		Email:                    reg.Email,
		Password:                 string(hashed),
		ResidencyStatus:          reg.ResidencyStatus,
		InvestingExperience:      reg.InvestingExperience,
		InvestingExperienceYears: reg.InvestingExperienceYears,
		ConfirmationCode:         code,
		Questionnaire:            reg.Questionnaire,
	}
	if err := db.Create(&investor).Error; err != nil {
		if isUniqueConstraintError(err) { // race condition after initial check
			return models.Investor{}, fmt.Errorf("user already exists")
		}
		return models.Investor{}, err
	}
	return investor, nil
}

// AuthenticateInvestor checks credentials and the email-confirmation state,
// then records the sign-in time (which also invalidates outstanding
// password-reset tokens).
func AuthenticateInvestor(email, password string) (models.Investor, error) {
	email = normalizeEmail(email)
	var investor models.Investor
	if err := db.Where("email = ?", email).First(&investor).Error; err != nil {
		return models.Investor{}, fmt.Errorf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(investor.Password), []byte(password)); err != nil {
		return models.Investor{}, fmt.Errorf("invalid credentials")
	}
	if !investor.Confirmed {
		return models.Investor{}, fmt.Errorf("please verify your email")
	}
	now := time.Now()
	if err := db.Model(&investor).Update("last_login_at", now).Error; err == nil {
		investor.LastLoginAt = &now
	}
	return investor, nil
}

// AuthenticateAdmin checks admin credentials.
func AuthenticateAdmin(email, password string) (models.Admin, error) {
	email = normalizeEmail(email)
	var admin models.Admin
	if err := db.Where("email = ?", email).First(&admin).Error; err != nil {
		return models.Admin{}, fmt.Errorf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(password)); err != nil {
		return models.Admin{}, fmt.Errorf("invalid credentials")
	}
	return admin, nil
}

// normalizeEmail lowercases and trims an email address; accounts are keyed
// by the normalized form.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// generateConfirmationCode returns a random 16-char hex code.
func generateConfirmationCode() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "already exists")
}
