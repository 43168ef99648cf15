package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finsurvey/internal/cache"
	"finsurvey/lib/clock"
	"finsurvey/lib/secure"
	"finsurvey/lib/sl"
)

var (
	ErrNotFound = errors.New("otp not found or expired")
	ErrInvalid  = errors.New("invalid otp")
)

// RateLimitError is returned when too many codes were requested for an email.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many verification requests, retry in %s", e.RetryAfter.Round(time.Second))
}

type Mailer interface {
	SendOTP(ctx context.Context, to, code string, ttl time.Duration) error
}

type Config struct {
	TTL         time.Duration
	VerifiedTTL time.Duration
	RateWindow  time.Duration
	RateMax     int
}

type Service struct {
	store  cache.Store
	mailer Mailer
	conf   Config
	now    clock.Clock
	log    *slog.Logger
}

func New(store cache.Store, mailer Mailer, conf Config, log *slog.Logger) *Service {
	if conf.TTL == 0 {
		conf.TTL = 10 * time.Minute
	}
	if conf.VerifiedTTL == 0 {
		conf.VerifiedTTL = time.Hour
	}
	return &Service{
		store:  store,
		mailer: mailer,
		conf:   conf,
		now:    clock.System,
		log:    log.With(sl.Module("impl.otp")),
	}
}

func (s *Service) WithClock(now clock.Clock) *Service {
	s.now = now
	return s
}

func codeKey(email string) string {
	return "otp:" + email
}

func verifiedKey(email string) string {
	return "otp-verified:" + email
}

// Send generates a new code for email, replacing any previous one, and mails it.
func (s *Service) Send(ctx context.Context, email string) error {
	allowed, retry, err := s.store.Hit(ctx, "otp-send:"+email, s.now(), s.conf.RateWindow, s.conf.RateMax)
	if err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	if !allowed {
		return &RateLimitError{RetryAfter: retry}
	}

	code, err := secure.RandomDigits(6)
	if err != nil {
		return err
	}
	if err = s.store.Set(ctx, codeKey(email), code, s.conf.TTL); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	if err = s.mailer.SendOTP(ctx, email, code, s.conf.TTL); err != nil {
		return fmt.Errorf("send otp: %w", err)
	}
	s.log.With(sl.Email(email)).Debug("otp sent")
	return nil
}

// Verify consumes the code on success and marks the email as verified.
func (s *Service) Verify(ctx context.Context, email, code string) error {
	stored, err := s.store.Get(ctx, codeKey(email))
	if errors.Is(err, cache.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load otp: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		s.log.With(sl.Email(email)).Debug("otp mismatch")
		return ErrInvalid
	}
	if err = s.store.Delete(ctx, codeKey(email)); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	if err = s.store.Set(ctx, verifiedKey(email), "1", s.conf.VerifiedTTL); err != nil {
		return fmt.Errorf("store verification: %w", err)
	}
	return nil
}

// Consume reports whether email was verified recently and clears the marker.
func (s *Service) Consume(ctx context.Context, email string) (bool, error) {
	_, err := cache.Take(ctx, s.store, verifiedKey(email))
	if errors.Is(err, cache.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Restore marks email as verified again after a failed submission.
func (s *Service) Restore(ctx context.Context, email string) error {
	if err := s.store.Set(ctx, verifiedKey(email), "1", s.conf.VerifiedTTL); err != nil {
		return fmt.Errorf("restore verification: %w", err)
	}
	return nil
}
