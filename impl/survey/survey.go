package survey

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"finsurvey/entity"
	"finsurvey/lib/clock"
	"finsurvey/lib/sl"
	"finsurvey/lib/validate"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

type Repository interface {
	SaveSurvey(ctx context.Context, survey *entity.Survey) error
	CountSurveys(ctx context.Context) (int64, error)
	ListSurveys(ctx context.Context, skip, limit int64) ([]*entity.Survey, error)
}

// Verifier reports whether an email passed OTP verification and clears the
// mark. Restore puts the mark back when the submission could not be stored.
type Verifier interface {
	Consume(ctx context.Context, email string) (bool, error)
	Restore(ctx context.Context, email string) error
}

type Config struct {
	RequireVerifiedEmail bool
	MaxPageSize          int
}

type Service struct {
	repo     Repository
	verifier Verifier
	conf     Config
	now      clock.Clock
	log      *slog.Logger
}

func New(repo Repository, verifier Verifier, conf Config, log *slog.Logger) *Service {
	if conf.MaxPageSize <= 0 || conf.MaxPageSize > MaxLimit {
		conf.MaxPageSize = MaxLimit
	}
	return &Service{
		repo:     repo,
		verifier: verifier,
		conf:     conf,
		now:      clock.System,
		log:      log.With(sl.Module("impl.survey")),
	}
}

func (s *Service) WithClock(now clock.Clock) *Service {
	s.now = now
	return s
}

// Submit stores a completed survey stamped with request metadata.
func (s *Service) Submit(ctx context.Context, survey *entity.Survey, ip, userAgent string) (*entity.Survey, error) {
	if survey == nil {
		return nil, validate.Invalid("body required")
	}
	survey.Email = entity.NormalizeEmail(survey.Email)
	if err := validate.Struct(survey); err != nil {
		return nil, err
	}
	log := s.log.With(sl.Email(survey.Email))

	verified := false
	if s.verifier != nil {
		var err error
		verified, err = s.verifier.Consume(ctx, survey.Email)
		if err != nil {
			return nil, fmt.Errorf("check verification: %w", err)
		}
	}
	if !verified && s.conf.RequireVerifiedEmail {
		log.Warn("survey from unverified email")
		return nil, validate.Invalid("email not verified")
	}

	survey.ID = uuid.NewString()
	survey.EmailVerified = verified
	survey.IPAddress = ip
	survey.UserAgent = userAgent
	survey.SubmittedAt = s.now()

	if err := s.repo.SaveSurvey(ctx, survey); err != nil {
		if verified {
			if rErr := s.verifier.Restore(ctx, survey.Email); rErr != nil {
				log.With(sl.Err(rErr)).Warn("restore verification")
			}
		}
		return nil, fmt.Errorf("save survey: %w", err)
	}
	log.With(
		slog.String("id", survey.ID),
		slog.Bool("verified", verified),
	).Info("survey submitted")
	return survey, nil
}

// List returns one page of surveys, newest first. Out of range arguments
// fall back to defaults.
func (s *Service) List(ctx context.Context, page, limit int) (*entity.Page, error) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > s.conf.MaxPageSize {
		limit = s.conf.MaxPageSize
	}

	total, err := s.repo.CountSurveys(ctx)
	if err != nil {
		return nil, fmt.Errorf("count surveys: %w", err)
	}
	pages := (total + int64(limit) - 1) / int64(limit)

	// pages past the end are empty; skip stays within total
	surveys := []*entity.Survey{}
	if int64(page) <= pages {
		surveys, err = s.repo.ListSurveys(ctx, int64(page-1)*int64(limit), int64(limit))
		if err != nil {
			return nil, fmt.Errorf("list surveys: %w", err)
		}
	}

	return &entity.Page{
		Surveys: surveys,
		Pagination: entity.Pagination{
			Current: page,
			Pages:   pages,
			Total:   total,
		},
	}, nil
}
