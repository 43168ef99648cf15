package analytics

import (
	"context"
	"fmt"
	"time"

	"finsurvey/entity"
	"finsurvey/lib/clock"
	"finsurvey/lib/validate"
)

const (
	trendDays = 7
	topFears  = 10
)

// Section names accepted by Section.
const (
	SectionBasicInfo       = "basic-info"
	SectionLoanAwareness   = "loan-awareness"
	SectionFinancialRisk   = "financial-risk"
	SectionRentalAwareness = "rental-awareness"
	SectionPlatformNeed    = "platform-need"
)

// Source yields survey answers; identity fields may be left empty.
type Source interface {
	AnswerSurveys(ctx context.Context) ([]*entity.Survey, error)
}

type Metrics struct {
	TotalResponses       int     `json:"totalResponses"`
	TodayResponses       int     `json:"todayResponses"`
	AvgRiskScale         float64 `json:"avgRiskScale"`
	FraudExperienceRate  float64 `json:"fraudExperienceRate"`
	HiddenChargesRate    float64 `json:"hiddenChargesRate"`
	PlatformInterestRate float64 `json:"platformInterestRate"`
}

type BasicInfo struct {
	AgeGroups      []GroupCount `json:"ageGroups"`
	Occupations    []GroupCount `json:"occupations"`
	LoanExperience []GroupCount `json:"loanExperience"`
}

type LoanAwareness struct {
	InterestUnderstanding []GroupCount `json:"interestUnderstanding"`
	RepaymentCalculation  []GroupCount `json:"repaymentCalculation"`
	HiddenCharges         []GroupCount `json:"hiddenCharges"`
	AprKnowledge          []GroupCount `json:"aprKnowledge"`
	Confidence            []GroupCount `json:"confidence"`
}

type FinancialRisk struct {
	ProcessingFeeUncertainty []GroupCount `json:"processingFeeUncertainty"`
	FraudExperience          []GroupCount `json:"fraudExperience"`
	ReadingHabit             []GroupCount `json:"readingHabit"`
}

type RentalAwareness struct {
	RentalExperience   []GroupCount `json:"rentalExperience"`
	TermsUnderstanding []GroupCount `json:"termsUnderstanding"`
}

type PlatformNeed struct {
	Willingness []GroupCount `json:"willingness"`
	Features    []GroupCount `json:"features"`
	Fears       []GroupCount `json:"fears"`
}

type Sections struct {
	BasicInfo       BasicInfo       `json:"basicInfo"`
	LoanAwareness   LoanAwareness   `json:"loanAwareness"`
	FinancialRisk   FinancialRisk   `json:"financialRisk"`
	RentalAwareness RentalAwareness `json:"rentalAwareness"`
	PlatformNeed    PlatformNeed    `json:"platformNeed"`
}

type Dashboard struct {
	Metrics    Metrics      `json:"metrics"`
	DailyTrend []GroupCount `json:"dailyTrend"`
	Sections   Sections     `json:"sections"`
}

type Stats struct {
	TotalResponses                 int          `json:"totalResponses"`
	AgeGroupStats                  []GroupCount `json:"ageGroupStats"`
	OccupationStats                []GroupCount `json:"occupationStats"`
	LoanExperienceStats            []GroupCount `json:"loanExperienceStats"`
	InterestRateUnderstandingStats []GroupCount `json:"interestRateUnderstandingStats"`
	HiddenChargesStats             []GroupCount `json:"hiddenChargesStats"`
	FraudExperienceStats           []GroupCount `json:"fraudExperienceStats"`
	PlatformWillingnessStats       []GroupCount `json:"platformWillingnessStats"`
	AvgRiskScale                   float64      `json:"avgRiskScale"`
}

type SectionData struct {
	Section string `json:"section"`
	Data    any    `json:"data"`
}

type Analytics struct {
	source Source
	loc    *time.Location
	now    clock.Clock
}

// New buckets days in loc; nil means the process local zone.
func New(source Source, loc *time.Location) *Analytics {
	if loc == nil {
		loc = time.Local
	}
	return &Analytics{source: source, loc: loc, now: clock.System}
}

func (a *Analytics) WithClock(now clock.Clock) *Analytics {
	a.now = now
	return a
}

func (a *Analytics) load(ctx context.Context) ([]*entity.Survey, error) {
	surveys, err := a.source.AnswerSurveys(ctx)
	if err != nil {
		return nil, fmt.Errorf("load surveys: %w", err)
	}
	return surveys, nil
}

func (a *Analytics) Dashboard(ctx context.Context) (*Dashboard, error) {
	surveys, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	return a.dashboard(surveys, a.now()), nil
}

func (a *Analytics) Section(ctx context.Context, name string) (*SectionData, error) {
	build, ok := sectionBuilders[name]
	if !ok {
		return nil, validate.Invalid(fmt.Sprintf("section %q is not valid", name))
	}
	surveys, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	return &SectionData{Section: name, Data: build(surveys)}, nil
}

func (a *Analytics) Stats(ctx context.Context) (*Stats, error) {
	surveys, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		TotalResponses:                 len(surveys),
		AgeGroupStats:                  groupBy(surveys, func(s *entity.Survey) string { return s.AgeGroup }),
		OccupationStats:                groupBy(surveys, func(s *entity.Survey) string { return s.Occupation }),
		LoanExperienceStats:            groupBy(surveys, func(s *entity.Survey) string { return s.LoanExperience }),
		InterestRateUnderstandingStats: groupBy(surveys, func(s *entity.Survey) string { return s.InterestRateUnderstanding }),
		HiddenChargesStats:             groupBy(surveys, func(s *entity.Survey) string { return s.HiddenChargesExperience }),
		FraudExperienceStats:           groupBy(surveys, func(s *entity.Survey) string { return s.FraudExperience }),
		PlatformWillingnessStats:       groupBy(surveys, func(s *entity.Survey) string { return s.PlatformUsageWillingness }),
		AvgRiskScale:                   averageRisk(surveys),
	}, nil
}

func (a *Analytics) dashboard(surveys []*entity.Survey, now time.Time) *Dashboard {
	total := len(surveys)
	dayStart := clock.StartOfDay(now, a.loc)

	today := countWhere(surveys, func(s *entity.Survey) bool { return !s.SubmittedAt.Before(dayStart) })
	fraud := countWhere(surveys, func(s *entity.Survey) bool { return s.FraudExperience == entity.AnswerYes })
	hidden := countWhere(surveys, func(s *entity.Survey) bool { return s.HiddenChargesExperience == entity.AnswerYes })
	interested := countWhere(surveys, func(s *entity.Survey) bool {
		return s.PlatformUsageWillingness == entity.AnswerDefinitely || s.PlatformUsageWillingness == entity.AnswerMaybe
	})

	return &Dashboard{
		Metrics: Metrics{
			TotalResponses:       total,
			TodayResponses:       today,
			AvgRiskScale:         averageRisk(surveys),
			FraudExperienceRate:  percent(fraud, total),
			HiddenChargesRate:    percent(hidden, total),
			PlatformInterestRate: percent(interested, total),
		},
		DailyTrend: a.trend(surveys, now),
		Sections: Sections{
			BasicInfo:       basicInfo(surveys),
			LoanAwareness:   loanAwareness(surveys),
			FinancialRisk:   financialRisk(surveys),
			RentalAwareness: rentalAwareness(surveys),
			PlatformNeed:    platformNeed(surveys),
		},
	}
}

// trend has one bucket per local day, oldest first, including empty days
func (a *Analytics) trend(surveys []*entity.Survey, now time.Time) []GroupCount {
	days := clock.LastDays(now, trendDays, a.loc)
	counts := make(map[string]int, len(days))
	for _, s := range surveys {
		counts[clock.Day(s.SubmittedAt, a.loc)]++
	}
	trend := make([]GroupCount, 0, len(days))
	for _, day := range days {
		trend = append(trend, GroupCount{ID: day, Count: counts[day]})
	}
	return trend
}

var sectionBuilders = map[string]func([]*entity.Survey) any{
	SectionBasicInfo:       func(s []*entity.Survey) any { return basicInfo(s) },
	SectionLoanAwareness:   func(s []*entity.Survey) any { return loanAwareness(s) },
	SectionFinancialRisk:   func(s []*entity.Survey) any { return financialRisk(s) },
	SectionRentalAwareness: func(s []*entity.Survey) any { return rentalAwareness(s) },
	SectionPlatformNeed:    func(s []*entity.Survey) any { return platformNeed(s) },
}

func basicInfo(surveys []*entity.Survey) BasicInfo {
	return BasicInfo{
		AgeGroups:      groupBy(surveys, func(s *entity.Survey) string { return s.AgeGroup }),
		Occupations:    groupBy(surveys, func(s *entity.Survey) string { return s.Occupation }),
		LoanExperience: groupBy(surveys, func(s *entity.Survey) string { return s.LoanExperience }),
	}
}

func loanAwareness(surveys []*entity.Survey) LoanAwareness {
	return LoanAwareness{
		InterestUnderstanding: groupBy(surveys, func(s *entity.Survey) string { return s.InterestRateUnderstanding }),
		RepaymentCalculation:  groupBy(surveys, func(s *entity.Survey) string { return s.TotalRepaymentCalculation }),
		HiddenCharges:         groupBy(surveys, func(s *entity.Survey) string { return s.HiddenChargesExperience }),
		AprKnowledge:          groupBy(surveys, func(s *entity.Survey) string { return s.AprKnowledge }),
		Confidence:            groupBy(surveys, func(s *entity.Survey) string { return s.AgreementReadingConfidence }),
	}
}

func financialRisk(surveys []*entity.Survey) FinancialRisk {
	return FinancialRisk{
		ProcessingFeeUncertainty: groupBy(surveys, func(s *entity.Survey) string { return s.ProcessingFeeUncertainty }),
		FraudExperience:          groupBy(surveys, func(s *entity.Survey) string { return s.FraudExperience }),
		ReadingHabit:             groupBy(surveys, func(s *entity.Survey) string { return s.AgreementReadingHabit }),
	}
}

func rentalAwareness(surveys []*entity.Survey) RentalAwareness {
	return RentalAwareness{
		RentalExperience:   groupBy(surveys, func(s *entity.Survey) string { return s.RentalAgreementExperience }),
		TermsUnderstanding: groupBy(surveys, func(s *entity.Survey) string { return s.RentalTermsUnderstanding }),
	}
}

func platformNeed(surveys []*entity.Survey) PlatformNeed {
	answered := make([]*entity.Survey, 0, len(surveys))
	for _, s := range surveys {
		if s.BiggestFear != "" {
			answered = append(answered, s)
		}
	}
	fears := groupBy(answered, func(s *entity.Survey) string { return s.BiggestFear })
	if len(fears) > topFears {
		fears = fears[:topFears]
	}
	return PlatformNeed{
		Willingness: groupBy(surveys, func(s *entity.Survey) string { return s.PlatformUsageWillingness }),
		Features:    groupByEach(surveys, func(s *entity.Survey) []string { return s.PlatformFeatures }),
		Fears:       fears,
	}
}
