package otp_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"finsurvey/impl/otp"
	"finsurvey/internal/cache"
)

type mockMailer struct {
	codes map[string]string
	err   error
}

func (m *mockMailer) SendOTP(_ context.Context, to, code string, _ time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.codes[to] = code
	return nil
}

var _ = Describe("Service", func() {
	var (
		ctx    context.Context
		now    time.Time
		store  *cache.Memory
		mailer *mockMailer
		svc    *otp.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
		clk := func() time.Time { return now }
		store = cache.NewMemory().WithClock(clk)
		mailer = &mockMailer{codes: map[string]string{}}
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		svc = otp.New(store, mailer, otp.Config{
			TTL:         10 * time.Minute,
			VerifiedTTL: time.Hour,
			RateWindow:  15 * time.Minute,
			RateMax:     3,
		}, log).WithClock(clk)
	})

	It("verifies the mailed code once", func() {
		Expect(svc.Send(ctx, "a@x.com")).To(Succeed())
		code := mailer.codes["a@x.com"]
		Expect(code).To(MatchRegexp(`^\d{6}$`))

		Expect(svc.Verify(ctx, "a@x.com", code)).To(Succeed())
		Expect(svc.Verify(ctx, "a@x.com", code)).To(MatchError(otp.ErrNotFound))
	})

	It("rejects a wrong code and keeps the right one usable", func() {
		Expect(svc.Send(ctx, "a@x.com")).To(Succeed())
		code := mailer.codes["a@x.com"]

		wrong := "000000"
		if code == wrong {
			wrong = "111111"
		}
		Expect(svc.Verify(ctx, "a@x.com", wrong)).To(MatchError(otp.ErrInvalid))
		Expect(svc.Verify(ctx, "a@x.com", code)).To(Succeed())
	})

	It("invalidates the previous code when a new one is requested", func() {
		Expect(svc.Send(ctx, "a@x.com")).To(Succeed())
		first := mailer.codes["a@x.com"]
		Expect(svc.Send(ctx, "a@x.com")).To(Succeed())
		second := mailer.codes["a@x.com"]

		if first != second {
			Expect(svc.Verify(ctx, "a@x.com", first)).To(MatchError(otp.ErrInvalid))
		}
		Expect(svc.Verify(ctx, "a@x.com", second)).To(Succeed())
	})

	It("expires codes after the TTL", func() {
		Expect(svc.Send(ctx, "a@x.com")).To(Succeed())
		code := mailer.codes["a@x.com"]

		now = now.Add(10 * time.Minute)
		Expect(svc.Verify(ctx, "a@x.com", code)).To(MatchError(otp.ErrNotFound))
	})

	It("limits how many codes one email can request", func() {
		for i := 0; i < 3; i++ {
			Expect(svc.Send(ctx, "a@x.com")).To(Succeed())
		}
		err := svc.Send(ctx, "a@x.com")
		var rl *otp.RateLimitError
		Expect(errors.As(err, &rl)).To(BeTrue())
		Expect(rl.RetryAfter).To(BeNumerically(">", 0))
	})

	It("propagates mailer failures", func() {
		mailer.err = errors.New("smtp down")
		Expect(svc.Send(ctx, "a@x.com")).To(MatchError(ContainSubstring("smtp down")))
	})

	Describe("Consume", func() {
		It("reports a verified email once", func() {
			Expect(svc.Send(ctx, "a@x.com")).To(Succeed())
			Expect(svc.Verify(ctx, "a@x.com", mailer.codes["a@x.com"])).To(Succeed())

			ok, err := svc.Consume(ctx, "a@x.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			ok, err = svc.Consume(ctx, "a@x.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("reports an unverified email", func() {
			ok, err := svc.Consume(ctx, "b@x.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("reports a restored email once more", func() {
			Expect(svc.Restore(ctx, "c@x.com")).To(Succeed())
			ok, err := svc.Consume(ctx, "c@x.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})
	})
})
