package survey_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"finsurvey/entity"
	"finsurvey/impl/survey"
	"finsurvey/lib/validate"
)

type mockRepo struct {
	saved     []*entity.Survey
	total     int64
	saveErr   error
	skip      int64
	limit     int64
	listCalls int
}

func (m *mockRepo) SaveSurvey(_ context.Context, s *entity.Survey) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, s)
	return nil
}

func (m *mockRepo) CountSurveys(_ context.Context) (int64, error) {
	return m.total, nil
}

func (m *mockRepo) ListSurveys(_ context.Context, skip, limit int64) ([]*entity.Survey, error) {
	m.listCalls++
	m.skip, m.limit = skip, limit
	return []*entity.Survey{}, nil
}

type mockVerifier struct {
	verified map[string]bool
}

func (m *mockVerifier) Consume(_ context.Context, email string) (bool, error) {
	ok := m.verified[email]
	delete(m.verified, email)
	return ok, nil
}

func (m *mockVerifier) Restore(_ context.Context, email string) error {
	m.verified[email] = true
	return nil
}

func validSurvey() *entity.Survey {
	return &entity.Survey{
		Name:                       "Asha",
		Email:                      " Asha@X.com ",
		AgeGroup:                   "23–30",
		Occupation:                 "Salaried Employee",
		LoanExperience:             "Planning to",
		InterestRateUnderstanding:  "Partially",
		TotalRepaymentCalculation:  "No",
		HiddenChargesExperience:    "Not sure",
		AprKnowledge:               "No",
		AgreementReadingConfidence: "Somewhat confident",
		ProcessingFeeUncertainty:   "Yes",
		FraudExperience:            "No",
		AgreementReadingHabit:      "Rarely",
		RentalAgreementExperience:  "Yes",
		RentalTermsUnderstanding:   "Not completely",
		PlatformUsageWillingness:   "Maybe",
		PlatformFeatures:           []string{"Hidden charges", "All of the above"},
		BiggestFear:                "Debt trap",
	}
}

var _ = Describe("Service", func() {
	var (
		ctx      context.Context
		now      time.Time
		repo     *mockRepo
		verifier *mockVerifier
		conf     survey.Config
		svc      *survey.Service
	)

	build := func() {
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		svc = survey.New(repo, verifier, conf, log).WithClock(func() time.Time { return now })
	}

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
		repo = &mockRepo{}
		verifier = &mockVerifier{verified: map[string]bool{}}
		conf = survey.Config{}
		build()
	})

	Describe("Submit", func() {
		It("stamps metadata and stores the survey", func() {
			verifier.verified["asha@x.com"] = true
			s, err := svc.Submit(ctx, validSurvey(), "10.0.0.1", "curl/8")
			Expect(err).NotTo(HaveOccurred())
			Expect(s.ID).NotTo(BeEmpty())
			Expect(s.Email).To(Equal("asha@x.com"))
			Expect(s.EmailVerified).To(BeTrue())
			Expect(s.IPAddress).To(Equal("10.0.0.1"))
			Expect(s.UserAgent).To(Equal("curl/8"))
			Expect(s.SubmittedAt).To(Equal(now))
			Expect(repo.saved).To(HaveLen(1))
			Expect(verifier.verified).To(BeEmpty())
		})

		It("accepts unverified email unless required", func() {
			s, err := svc.Submit(ctx, validSurvey(), "", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(s.EmailVerified).To(BeFalse())
		})

		It("rejects unverified email when required", func() {
			conf.RequireVerifiedEmail = true
			build()
			_, err := svc.Submit(ctx, validSurvey(), "", "")
			Expect(validate.IsValidation(err)).To(BeTrue())
			Expect(repo.saved).To(BeEmpty())
		})

		It("rejects values outside the allowed options", func() {
			s := validSurvey()
			s.AgeGroup = "60+"
			s.Name = ""
			_, err := svc.Submit(ctx, s, "", "")
			Expect(validate.IsValidation(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("ageGroup"))
			Expect(err.Error()).To(ContainSubstring("name"))
		})

		It("rejects a risk scale out of range", func() {
			s := validSurvey()
			six := 6
			s.RiskScale = &six
			_, err := svc.Submit(ctx, s, "", "")
			Expect(validate.IsValidation(err)).To(BeTrue())
		})

		It("wraps storage failures", func() {
			repo.saveErr = errors.New("disk full")
			_, err := svc.Submit(ctx, validSurvey(), "", "")
			Expect(err).To(MatchError(ContainSubstring("save survey")))
			Expect(validate.IsValidation(err)).To(BeFalse())
		})

		It("keeps the verification when the survey is not stored", func() {
			verifier.verified["asha@x.com"] = true
			repo.saveErr = errors.New("disk full")
			_, err := svc.Submit(ctx, validSurvey(), "", "")
			Expect(err).To(HaveOccurred())
			Expect(verifier.verified).To(HaveKeyWithValue("asha@x.com", true))

			repo.saveErr = nil
			s, err := svc.Submit(ctx, validSurvey(), "", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(s.EmailVerified).To(BeTrue())
		})

		It("does not mark an unverified email on failure", func() {
			repo.saveErr = errors.New("disk full")
			_, err := svc.Submit(ctx, validSurvey(), "", "")
			Expect(err).To(HaveOccurred())
			Expect(verifier.verified).To(BeEmpty())
		})
	})

	Describe("List", func() {
		It("applies defaults", func() {
			repo.total = 25
			page, err := svc.List(ctx, 0, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.skip).To(Equal(int64(0)))
			Expect(repo.limit).To(Equal(int64(10)))
			Expect(page.Pagination).To(Equal(entity.Pagination{Current: 1, Pages: 3, Total: 25}))
		})

		It("skips to the requested page and caps the limit", func() {
			repo.total = 250
			page, err := svc.List(ctx, 2, 500)
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.skip).To(Equal(int64(100)))
			Expect(repo.limit).To(Equal(int64(100)))
			Expect(page.Pagination.Pages).To(Equal(int64(3)))
		})

		It("reports zero pages for an empty store", func() {
			page, err := svc.List(ctx, 1, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Pagination.Pages).To(BeZero())
			Expect(page.Surveys).NotTo(BeNil())
			Expect(page.Surveys).To(BeEmpty())
		})

		It("returns an empty page past the end without overflowing the skip", func() {
			repo.total = 25
			page, err := svc.List(ctx, 999999999999999999, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.listCalls).To(BeZero())
			Expect(page.Surveys).To(BeEmpty())
			Expect(page.Pagination).To(Equal(entity.Pagination{Current: 999999999999999999, Pages: 3, Total: 25}))
		})

		It("lists the last page", func() {
			repo.total = 25
			_, err := svc.List(ctx, 3, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.listCalls).To(Equal(1))
			Expect(repo.skip).To(Equal(int64(20)))
		})
	})
})
