// Package export renders stored surveys as an Excel workbook.
package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"finsurvey/entity"
	"finsurvey/lib/clock"
)

const (
	SheetName   = "Survey Data"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// day/month/year with a 12-hour clock, as en-IN locales print it
	timeLayout = "2/1/2006, 3:04:05 pm"
)

type column struct {
	header string
	width  float64
	value  func(*entity.Survey, *time.Location) any
}

func text(f func(*entity.Survey) string) func(*entity.Survey, *time.Location) any {
	return func(s *entity.Survey, _ *time.Location) any { return f(s) }
}

var columns = []column{
	{"_id", 25, text(func(s *entity.Survey) string { return s.ID })},
	{"name", 20, text(func(s *entity.Survey) string { return s.Name })},
	{"email", 30, text(func(s *entity.Survey) string { return s.Email })},
	{"emailVerified", 15, func(s *entity.Survey, _ *time.Location) any { return s.EmailVerified }},
	{"submittedAt", 20, func(s *entity.Survey, loc *time.Location) any {
		if s.SubmittedAt.IsZero() {
			return ""
		}
		return s.SubmittedAt.In(loc).Format(timeLayout)
	}},
	{"ipAddress", 15, text(func(s *entity.Survey) string { return s.IPAddress })},
	{"ageGroup", 15, text(func(s *entity.Survey) string { return s.AgeGroup })},
	{"occupation", 20, text(func(s *entity.Survey) string { return s.Occupation })},
	{"loanExperience", 25, text(func(s *entity.Survey) string { return s.LoanExperience })},
	{"interestRateUnderstanding", 30, text(func(s *entity.Survey) string { return s.InterestRateUnderstanding })},
	{"totalRepaymentCalculation", 25, text(func(s *entity.Survey) string { return s.TotalRepaymentCalculation })},
	{"hiddenChargesExperience", 25, text(func(s *entity.Survey) string { return s.HiddenChargesExperience })},
	{"aprKnowledge", 20, text(func(s *entity.Survey) string { return s.AprKnowledge })},
	{"agreementReadingConfidence", 25, text(func(s *entity.Survey) string { return s.AgreementReadingConfidence })},
	{"processingFeeUncertainty", 25, text(func(s *entity.Survey) string { return s.ProcessingFeeUncertainty })},
	{"fraudExperience", 20, text(func(s *entity.Survey) string { return s.FraudExperience })},
	{"agreementReadingHabit", 25, text(func(s *entity.Survey) string { return s.AgreementReadingHabit })},
	{"rentalAgreementExperience", 30, text(func(s *entity.Survey) string { return s.RentalAgreementExperience })},
	{"rentalTermsUnderstanding", 25, text(func(s *entity.Survey) string { return s.RentalTermsUnderstanding })},
	{"platformUsageWillingness", 25, text(func(s *entity.Survey) string { return s.PlatformUsageWillingness })},
	{"platformFeatures", 40, text(func(s *entity.Survey) string { return strings.Join(s.PlatformFeatures, ", ") })},
	{"biggestFear", 50, text(func(s *entity.Survey) string { return s.BiggestFear })},
	{"riskScale", 12, func(s *entity.Survey, _ *time.Location) any {
		if s.RiskScale == nil {
			return ""
		}
		return *s.RiskScale
	}},
	{"userAgent", 30, text(func(s *entity.Survey) string { return s.UserAgent })},
}

// Headers lists the column titles in sheet order.
func Headers() []string {
	h := make([]string, len(columns))
	for i, c := range columns {
		h[i] = c.header
	}
	return h
}

type Source interface {
	AllSurveys(ctx context.Context) ([]*entity.Survey, error)
}

// File is a rendered workbook ready to be sent as an attachment.
type File struct {
	Name string
	Data []byte
}

type Exporter struct {
	source Source
	loc    *time.Location
	now    clock.Clock
}

func New(source Source, loc *time.Location) *Exporter {
	if loc == nil {
		loc = time.Local
	}
	return &Exporter{source: source, loc: loc, now: clock.System}
}

func (e *Exporter) WithClock(now clock.Clock) *Exporter {
	e.now = now
	return e
}

func FileName(t time.Time, loc *time.Location) string {
	return fmt.Sprintf("survey_data_%s.xlsx", clock.Day(t, loc))
}

func (e *Exporter) Export(ctx context.Context) (*File, error) {
	surveys, err := e.source.AllSurveys(ctx)
	if err != nil {
		return nil, fmt.Errorf("load surveys: %w", err)
	}
	data, err := e.workbook(surveys)
	if err != nil {
		return nil, err
	}
	return &File{Name: FileName(e.now(), e.loc), Data: data}, nil
}

func (e *Exporter) workbook(surveys []*entity.Survey) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c.header
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err = f.SetColWidth(SheetName, name, name, c.width); err != nil {
			return nil, fmt.Errorf("column width: %w", err)
		}
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetRowStyle(SheetName, 1, 1, bold)
	}

	for r, s := range surveys {
		row := make([]any, len(columns))
		for i, c := range columns {
			row[i] = c.value(s, e.loc)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err = f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", r+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
