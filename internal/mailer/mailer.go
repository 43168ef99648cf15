// Package mailer sends the transactional emails: OTP codes, access request
// notifications for admins and the decision notice for the requester.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"gopkg.in/gomail.v2"

	"finsurvey/entity"
	"finsurvey/internal/config"
	"finsurvey/lib/sl"
)

var ErrNotConfigured = errors.New("email service not configured")

const (
	subjectOTP      = "Your Financial Awareness Survey Verification Code"
	subjectRequest  = "Dashboard Access Request - Financial Awareness Survey"
	subjectApproved = "Dashboard Access Approved - Financial Awareness Survey"
	subjectDenied   = "Dashboard Access Request Update - Financial Awareness Survey"
)

// Transport is satisfied by *gomail.Dialer
type Transport interface {
	DialAndSend(m ...*gomail.Message) error
}

type Mailer struct {
	transport Transport
	from      string
	fromName  string
	log       *slog.Logger
}

func New(conf config.SmtpConfig, log *slog.Logger) *Mailer {
	m := &Mailer{
		from:     conf.From,
		fromName: conf.FromName,
		log:      log.With(sl.Module("mailer")),
	}
	if conf.Host != "" {
		dialer := gomail.NewDialer(conf.Host, conf.Port, conf.User, conf.Password)
		dialer.SSL = conf.SSL
		dialer.TLSConfig = &tls.Config{ServerName: conf.Host}
		m.transport = dialer
	}
	return m
}

// WithTransport replaces the SMTP dialer
func (m *Mailer) WithTransport(t Transport) *Mailer {
	m.transport = t
	return m
}

func (m *Mailer) send(ctx context.Context, to, subject string, tmpl *template.Template, data any) error {
	if m.transport == nil || m.from == "" {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.fromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body.String())

	if err := m.transport.DialAndSend(msg); err != nil {
		m.log.With(sl.Email(to), slog.String("subject", subject)).Error("send email", sl.Err(err))
		return fmt.Errorf("send email: %w", err)
	}
	m.log.With(sl.Email(to), slog.String("subject", subject)).Debug("email sent")
	return nil
}

func (m *Mailer) SendOTP(ctx context.Context, to, code string, ttl time.Duration) error {
	return m.send(ctx, to, subjectOTP, otpTemplate, struct {
		Code    string
		Minutes int
	}{code, int(ttl.Minutes())})
}

func (m *Mailer) SendAccessRequest(ctx context.Context, to string, request *entity.AccessRequest, approveUrl, denyUrl string) error {
	return m.send(ctx, to, subjectRequest, requestTemplate, struct {
		Request    *entity.AccessRequest
		ApproveUrl string
		DenyUrl    string
	}{request, approveUrl, denyUrl})
}

func (m *Mailer) SendAccessApproved(ctx context.Context, to, code string, expiresAt time.Time, ttl time.Duration) error {
	return m.send(ctx, to, subjectApproved, approvedTemplate, struct {
		Code    string
		Minutes int
		Until   string
	}{code, int(ttl.Minutes()), expiresAt.Format("03:04 PM MST")})
}

func (m *Mailer) SendAccessDenied(ctx context.Context, to string) error {
	return m.send(ctx, to, subjectDenied, deniedTemplate, nil)
}
