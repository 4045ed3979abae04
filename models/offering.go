package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Offering is a single real-estate investment listing. An offering must have
// at least one associated picture at all times; that rule is enforced on the
// write path, not here.
type Offering struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	AdminID   string    `gorm:"type:uuid;not null;index" json:"admin_id"`
	Admin     *Admin    `gorm:"foreignKey:AdminID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"admin,omitempty"`

	// Deal information
	Title                  string  `gorm:"size:255;not null" json:"title"`
	OfferingType           string  `gorm:"size:255;not null" json:"offering_type"`
	TargetFundingDate      string  `gorm:"type:date;not null" json:"target_funding_date"`
	MinimumInvestment      float64 `gorm:"not null" json:"minimum_investment"`
	TotalCapitalInvestment float64 `gorm:"not null" json:"total_capital_investment"`
	MonthlyPmtToInvestor   float64 `gorm:"not null" json:"monthly_pmt_to_investor"`
	InvestorYield          float64 `gorm:"not null" json:"investor_yield"`
	GrossProtectiveEquity  float64 `gorm:"not null" json:"gross_protective_equity"`
	ExitStrategy           string  `gorm:"size:1020" json:"exit_strategy"`

	// Property details
	PropertyAddress string  `gorm:"size:255;not null" json:"property_address"`
	PropertyType    string  `gorm:"size:10;not null" json:"property_type"`
	Occupancy       string  `gorm:"size:20;not null" json:"occupancy"`
	MarketValue     float64 `gorm:"not null" json:"market_value"`
	Apn             string  `gorm:"size:20" json:"apn"`
	County          string  `gorm:"size:255" json:"county"`
	YearBuilt       int     `json:"year_built"`
	SquareFootage   float64 `json:"square_footage"`
	LotSize         string  `gorm:"size:255" json:"lot_size"`
	Bedrooms        int     `json:"bedrooms"`
	Bathrooms       int     `json:"bathrooms"`
	Exterior        string  `gorm:"size:1020" json:"exterior"`
	Zoning          string  `gorm:"size:1020" json:"zoning"`

	// Debt stack
	ExistingFirstMortgage bool   `gorm:"default:false" json:"existing_first_mortgage"`
	BorrowerCreditScore   int    `gorm:"not null" json:"borrower_credit_score"`
	LoanType              string `gorm:"size:20;not null" json:"loan_type"`
	LienPosition          string `gorm:"size:3;not null" json:"lien_position"`
	PaymentType           string `gorm:"size:15;not null" json:"payment_type"`
	LoanTerm              string `gorm:"size:255;not null" json:"loan_term"`
	PrepaidInterest       string `gorm:"size:255" json:"prepaid_interest"`
	GuaranteedInterest    string `gorm:"size:255" json:"guaranteed_interest"`

	Pictures  []OfferingPicture  `gorm:"foreignKey:OfferingID" json:"pictures,omitempty"`
	Documents []OfferingDocument `gorm:"foreignKey:OfferingID" json:"documents,omitempty"`
}

func (o *Offering) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}
