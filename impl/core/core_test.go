package core_test

import (
	"context"
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"finsurvey/entity"
	"finsurvey/impl/core"
)

type mockOTP struct {
	sent []string
}

func (m *mockOTP) Send(_ context.Context, email string) error {
	m.sent = append(m.sent, email)
	return nil
}

func (m *mockOTP) Verify(_ context.Context, _, _ string) error {
	return nil
}

type mockAuth struct{}

func (mockAuth) Authorize(_ context.Context, credential string) (*entity.Admin, error) {
	return &entity.Admin{Kind: entity.CredentialStaticKey}, nil
}

var _ = Describe("Core", func() {
	var (
		ctx context.Context
		c   *core.Core
	)

	BeforeEach(func() {
		ctx = context.Background()
		c = core.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	It("reports services that are not attached", func() {
		_, err := c.Dashboard(ctx)
		Expect(err).To(MatchError(core.ErrNotConnected))
		_, err = c.DecideAccess(ctx, "t", "approve")
		Expect(err).To(MatchError(core.ErrNotConnected))
		Expect(c.SendOTP(ctx, "a@x.com")).To(MatchError(core.ErrNotConnected))
	})

	It("delegates to attached services", func() {
		otp := &mockOTP{}
		c.SetOTPService(otp)
		c.SetAuthService(mockAuth{})

		Expect(c.SendOTP(ctx, "a@x.com")).To(Succeed())
		Expect(otp.sent).To(ConsistOf("a@x.com"))

		admin, err := c.AuthorizeAdmin(ctx, "key")
		Expect(err).NotTo(HaveOccurred())
		Expect(admin.Kind).To(Equal(entity.CredentialStaticKey))
	})
})
