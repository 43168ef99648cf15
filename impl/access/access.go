// Package access runs the dashboard access request workflow:
//
//	SubmitRequest -> pending request, admins get approve/deny links
//	Decide        -> pending -> approved (hashed access code issued, code mailed)
//	              -> pending -> denied   (rejection mailed)
//
// Terminal states never change. The transition is a conditional update in the
// store, so concurrent clicks on the same link cannot both succeed.
package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"finsurvey/entity"
	"finsurvey/internal/cache"
	"finsurvey/lib/clock"
	"finsurvey/lib/secure"
	"finsurvey/lib/sl"
	"finsurvey/lib/validate"
)

const (
	approvalTokenBytes = 24
	accessCodeBytes    = 9
	tokenAttempts      = 3
	maxPending         = 50
)

type Repository interface {
	CreateAccessRequest(ctx context.Context, request *entity.AccessRequest) error
	GetAccessRequest(ctx context.Context, token string) (*entity.AccessRequest, error)
	DecideAccessRequest(ctx context.Context, token string, status entity.AccessStatus, at time.Time) (bool, error)
	PendingAccessRequests(ctx context.Context, limit int64) ([]*entity.AccessRequest, error)
	CreateAccessToken(ctx context.Context, token *entity.AccessToken) error
}

type Mailer interface {
	SendAccessRequest(ctx context.Context, to string, request *entity.AccessRequest, approveUrl, denyUrl string) error
	SendAccessApproved(ctx context.Context, to, code string, expiresAt time.Time, ttl time.Duration) error
	SendAccessDenied(ctx context.Context, to string) error
}

// AdminNotifier is an optional extra channel for new requests, e.g. Telegram
type AdminNotifier interface {
	NotifyAccessRequest(request *entity.AccessRequest)
}

type Config struct {
	Recipients []string
	BaseUrl    string
	TokenTTL   time.Duration
	RateWindow time.Duration
	RateMax    int
}

type Service struct {
	repo     Repository
	mailer   Mailer
	limiter  cache.Store
	hasher   secure.Hasher
	notifier AdminNotifier
	conf     Config
	now      clock.Clock
	log      *slog.Logger
}

func New(repo Repository, mailer Mailer, limiter cache.Store, hasher secure.Hasher, conf Config, log *slog.Logger) *Service {
	if conf.TokenTTL == 0 {
		conf.TokenTTL = 10 * time.Minute
	}
	return &Service{
		repo:    repo,
		mailer:  mailer,
		limiter: limiter,
		hasher:  hasher,
		conf:    conf,
		now:     clock.System,
		log:     log.With(sl.Module("impl.access")),
	}
}

func (s *Service) WithClock(now clock.Clock) *Service {
	s.now = now
	return s
}

func (s *Service) SetAdminNotifier(n AdminNotifier) {
	s.notifier = n
}

// DecisionUrl builds the link an admin follows to approve or deny.
func (s *Service) DecisionUrl(token, action string) string {
	return fmt.Sprintf("%s/api/admin/decision/%s?action=%s", s.conf.BaseUrl, url.PathEscape(token), url.QueryEscape(action))
}

// SubmitRequest stores a pending request and notifies every admin recipient.
func (s *Service) SubmitRequest(ctx context.Context, form *entity.AccessRequestForm) (*entity.AccessRequest, error) {
	if err := validate.Struct(form); err != nil {
		return nil, err
	}
	email := entity.NormalizeEmail(form.Email)
	log := s.log.With(sl.Email(email))

	if len(s.conf.Recipients) == 0 {
		return nil, ErrNoRecipients
	}

	now := s.now()
	allowed, retry, err := s.limiter.Hit(ctx, "access:"+email, now, s.conf.RateWindow, s.conf.RateMax)
	if err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	if !allowed {
		log.With(slog.Duration("retry_after", retry)).Warn("access request rate limited")
		return nil, &RateLimitError{RetryAfter: retry}
	}

	request := &entity.AccessRequest{
		ID:        uuid.NewString(),
		Name:      form.Name,
		Email:     email,
		Reason:    form.Reason,
		Status:    entity.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = s.create(ctx, request); err != nil {
		return nil, err
	}
	log.With(slog.String("id", request.ID)).Info("access request created")

	approveUrl := s.DecisionUrl(request.ApprovalToken, entity.ActionApprove)
	denyUrl := s.DecisionUrl(request.ApprovalToken, entity.ActionDeny)

	var errs []error
	for _, recipient := range s.conf.Recipients {
		if err = s.mailer.SendAccessRequest(ctx, recipient, request, approveUrl, denyUrl); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", recipient, err))
		}
	}
	if s.notifier != nil {
		s.notifier.NotifyAccessRequest(request)
	}
	if len(errs) > 0 {
		return request, errors.Join(errs...)
	}
	return request, nil
}

// create retries token generation on the unlikely unique-index collision
func (s *Service) create(ctx context.Context, request *entity.AccessRequest) error {
	var err error
	for i := 0; i < tokenAttempts; i++ {
		request.ApprovalToken, err = secure.RandomHex(approvalTokenBytes)
		if err != nil {
			return err
		}
		err = s.repo.CreateAccessRequest(ctx, request)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrDuplicateToken) {
			return fmt.Errorf("save access request: %w", err)
		}
	}
	return fmt.Errorf("save access request: %w", err)
}

// Decision is the outcome of a successful Decide call.
type Decision struct {
	Request   *entity.AccessRequest
	ExpiresAt *time.Time
}

// Decide applies action to the pending request identified by token.
// A request that was already decided yields *AlreadyDecidedError.
func (s *Service) Decide(ctx context.Context, token, action string) (*Decision, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	request, err := s.repo.GetAccessRequest(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("load access request: %w", err)
	}
	if request == nil {
		return nil, ErrNotFound
	}
	if !request.IsPending() {
		return nil, &AlreadyDecidedError{Status: request.Status}
	}
	status, ok := entity.StatusForAction(action)
	if !ok {
		return nil, ErrInvalidAction
	}

	now := s.now()
	changed, err := s.repo.DecideAccessRequest(ctx, token, status, now)
	if err != nil {
		return nil, fmt.Errorf("update access request: %w", err)
	}
	if !changed {
		// lost a race with another decision
		current, err := s.repo.GetAccessRequest(ctx, token)
		if err != nil || current == nil {
			return nil, &AlreadyDecidedError{Status: status}
		}
		return nil, &AlreadyDecidedError{Status: current.Status}
	}
	request.Status = status
	request.DecidedAt = &now
	request.UpdatedAt = now

	log := s.log.With(sl.Email(request.Email), slog.String("id", request.ID), slog.String("status", string(status)))
	log.Info("access request decided")

	decision := &Decision{Request: request}
	if status == entity.StatusDenied {
		if err = s.mailer.SendAccessDenied(ctx, request.Email); err != nil {
			log.Error("denial notice", sl.Err(err))
			return decision, fmt.Errorf("%w: %w", ErrNotify, err)
		}
		return decision, nil
	}

	code, err := secure.RandomHex(accessCodeBytes)
	if err != nil {
		return decision, err
	}
	expiresAt := now.Add(s.conf.TokenTTL)
	err = s.repo.CreateAccessToken(ctx, &entity.AccessToken{
		TokenHash: s.hasher.Hash(code),
		Email:     request.Email,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	})
	if err != nil {
		return decision, fmt.Errorf("save access token: %w", err)
	}
	decision.ExpiresAt = &expiresAt

	if err = s.mailer.SendAccessApproved(ctx, request.Email, code, expiresAt, s.conf.TokenTTL); err != nil {
		log.Error("approval notice", sl.Err(err))
		return decision, fmt.Errorf("%w: %w", ErrNotify, err)
	}
	return decision, nil
}

// Pending lists requests still waiting for a decision, oldest first.
func (s *Service) Pending(ctx context.Context, limit int) ([]*entity.AccessRequest, error) {
	if limit <= 0 || limit > maxPending {
		limit = maxPending
	}
	requests, err := s.repo.PendingAccessRequests(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("pending access requests: %w", err)
	}
	return requests, nil
}
