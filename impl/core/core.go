package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finsurvey/entity"
	"finsurvey/impl/access"
	"finsurvey/impl/analytics"
	"finsurvey/impl/export"
	"finsurvey/lib/sl"
)

var ErrNotConnected = errors.New("service not connected")

type AuthService interface {
	Authorize(ctx context.Context, credential string) (*entity.Admin, error)
}

type SurveyService interface {
	Submit(ctx context.Context, survey *entity.Survey, ip, userAgent string) (*entity.Survey, error)
	List(ctx context.Context, page, limit int) (*entity.Page, error)
}

type AnalyticsService interface {
	Dashboard(ctx context.Context) (*analytics.Dashboard, error)
	Section(ctx context.Context, name string) (*analytics.SectionData, error)
	Stats(ctx context.Context) (*analytics.Stats, error)
}

type ExportService interface {
	Export(ctx context.Context) (*export.File, error)
}

type OTPService interface {
	Send(ctx context.Context, email string) error
	Verify(ctx context.Context, email, code string) error
}

type AccessService interface {
	SubmitRequest(ctx context.Context, form *entity.AccessRequestForm) (*entity.AccessRequest, error)
	Decide(ctx context.Context, token, action string) (*access.Decision, error)
	Pending(ctx context.Context, limit int) ([]*entity.AccessRequest, error)
}

// Core is the single handler facing facade; services are attached with setters
// so the server can start with a partial set, e.g. without SMTP.
type Core struct {
	auth      AuthService
	survey    SurveyService
	analytics AnalyticsService
	export    ExportService
	otp       OTPService
	access    AccessService
	log       *slog.Logger
}

func New(log *slog.Logger) *Core {
	return &Core{
		log: log.With(sl.Module("core")),
	}
}

func (c *Core) SetAuthService(auth AuthService) {
	c.auth = auth
}

func (c *Core) SetSurveyService(s SurveyService) {
	c.survey = s
}

func (c *Core) SetAnalyticsService(a AnalyticsService) {
	c.analytics = a
}

func (c *Core) SetExportService(e ExportService) {
	c.export = e
}

func (c *Core) SetOTPService(o OTPService) {
	c.otp = o
}

func (c *Core) SetAccessService(a AccessService) {
	c.access = a
}

func notConnected(name string) error {
	return fmt.Errorf("%s: %w", name, ErrNotConnected)
}

func (c *Core) AuthorizeAdmin(ctx context.Context, credential string) (*entity.Admin, error) {
	if c.auth == nil {
		return nil, notConnected("auth")
	}
	return c.auth.Authorize(ctx, credential)
}

func (c *Core) SubmitSurvey(ctx context.Context, survey *entity.Survey, ip, userAgent string) (*entity.Survey, error) {
	if c.survey == nil {
		return nil, notConnected("survey")
	}
	return c.survey.Submit(ctx, survey, ip, userAgent)
}

func (c *Core) ListSurveys(ctx context.Context, page, limit int) (*entity.Page, error) {
	if c.survey == nil {
		return nil, notConnected("survey")
	}
	return c.survey.List(ctx, page, limit)
}

func (c *Core) SurveyStats(ctx context.Context) (*analytics.Stats, error) {
	if c.analytics == nil {
		return nil, notConnected("analytics")
	}
	return c.analytics.Stats(ctx)
}

func (c *Core) Dashboard(ctx context.Context) (*analytics.Dashboard, error) {
	if c.analytics == nil {
		return nil, notConnected("analytics")
	}
	return c.analytics.Dashboard(ctx)
}

func (c *Core) SectionAnalytics(ctx context.Context, section string) (*analytics.SectionData, error) {
	if c.analytics == nil {
		return nil, notConnected("analytics")
	}
	return c.analytics.Section(ctx, section)
}

func (c *Core) ExportSurveys(ctx context.Context) (*export.File, error) {
	if c.export == nil {
		return nil, notConnected("export")
	}
	return c.export.Export(ctx)
}

func (c *Core) SendOTP(ctx context.Context, email string) error {
	if c.otp == nil {
		return notConnected("otp")
	}
	return c.otp.Send(ctx, email)
}

func (c *Core) VerifyOTP(ctx context.Context, email, code string) error {
	if c.otp == nil {
		return notConnected("otp")
	}
	return c.otp.Verify(ctx, email, code)
}

func (c *Core) RequestAccess(ctx context.Context, form *entity.AccessRequestForm) (*entity.AccessRequest, error) {
	if c.access == nil {
		return nil, notConnected("access")
	}
	return c.access.SubmitRequest(ctx, form)
}

func (c *Core) DecideAccess(ctx context.Context, token, action string) (*access.Decision, error) {
	if c.access == nil {
		return nil, notConnected("access")
	}
	return c.access.Decide(ctx, token, action)
}

func (c *Core) PendingAccessRequests(ctx context.Context, limit int) ([]*entity.AccessRequest, error) {
	if c.access == nil {
		return nil, notConnected("access")
	}
	return c.access.Pending(ctx, limit)
}
