// Package entity defines domain types shared across the application.
package entity

import (
	"net/http"
	"strings"
	"time"

	"finsurvey/lib/validate"
)

// Answer values used by analytics rates.
const (
	AnswerYes        = "Yes"
	AnswerDefinitely = "Definitely"
	AnswerMaybe      = "Maybe"
)

// Survey is one completed submission. Documents are never updated after insert.
// Field names follow the form payload so existing collections stay readable.
type Survey struct {
	ID            string `json:"_id" bson:"_id"`
	Name          string `json:"name" bson:"name" validate:"required"`
	Email         string `json:"email" bson:"email" validate:"required,email"`
	EmailVerified bool   `json:"emailVerified" bson:"emailVerified"`

	// Section 1: basic information
	AgeGroup       string `json:"ageGroup" bson:"ageGroup" validate:"required,oneof=18–22 23–30 31–45 46+"`
	Occupation     string `json:"occupation" bson:"occupation" validate:"required,oneof=Student 'Salaried Employee' Self-Employed Homemaker Other"`
	LoanExperience string `json:"loanExperience" bson:"loanExperience" validate:"required,oneof=Yes No 'Planning to'"`

	// Section 2: loan awareness
	InterestRateUnderstanding  string `json:"interestRateUnderstanding" bson:"interestRateUnderstanding" validate:"required,oneof=Yes Partially No"`
	TotalRepaymentCalculation  string `json:"totalRepaymentCalculation" bson:"totalRepaymentCalculation" validate:"required,oneof=Yes No"`
	HiddenChargesExperience    string `json:"hiddenChargesExperience" bson:"hiddenChargesExperience" validate:"required,oneof=Yes No 'Not sure'"`
	AprKnowledge               string `json:"aprKnowledge" bson:"aprKnowledge" validate:"required,oneof=Yes No"`
	AgreementReadingConfidence string `json:"agreementReadingConfidence" bson:"agreementReadingConfidence" validate:"required,oneof='Very confident' 'Somewhat confident' 'Not confident'"`

	// Section 3: financial risk experience
	ProcessingFeeUncertainty string `json:"processingFeeUncertainty" bson:"processingFeeUncertainty" validate:"required,oneof=Yes No"`
	FraudExperience          string `json:"fraudExperience" bson:"fraudExperience" validate:"required,oneof=Yes No"`
	AgreementReadingHabit    string `json:"agreementReadingHabit" bson:"agreementReadingHabit" validate:"required,oneof=Always Sometimes Rarely"`

	// Section 4: rental agreement awareness
	RentalAgreementExperience string `json:"rentalAgreementExperience" bson:"rentalAgreementExperience" validate:"required,oneof=Yes No"`
	RentalTermsUnderstanding  string `json:"rentalTermsUnderstanding" bson:"rentalTermsUnderstanding" validate:"required,oneof=Yes No 'Not completely'"`

	// Section 5: validation platform need
	PlatformUsageWillingness string   `json:"platformUsageWillingness" bson:"platformUsageWillingness" validate:"required,oneof=Definitely Maybe No"`
	PlatformFeatures         []string `json:"platformFeatures" bson:"platformFeatures" validate:"omitempty,dive,oneof='Hidden charges' 'EMI burden' 'Risk score' 'Agreement clauses' 'Scam detection' 'All of the above'"`
	BiggestFear              string   `json:"biggestFear" bson:"biggestFear" validate:"required"`

	RiskScale *int `json:"riskScale,omitempty" bson:"riskScale,omitempty" validate:"omitempty,min=1,max=5"`

	IPAddress   string    `json:"ipAddress,omitempty" bson:"ipAddress,omitempty"`
	UserAgent   string    `json:"userAgent,omitempty" bson:"userAgent,omitempty"`
	SubmittedAt time.Time `json:"submittedAt" bson:"submittedAt"`
}

func (s *Survey) Bind(_ *http.Request) error {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = NormalizeEmail(s.Email)
	s.BiggestFear = strings.TrimSpace(s.BiggestFear)
	return validate.Struct(s)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Page is a slice of surveys with pagination info, newest first.
type Page struct {
	Surveys    []*Survey  `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type Pagination struct {
	Current int   `json:"current"`
	Pages   int64 `json:"pages"`
	Total   int64 `json:"total"`
}
