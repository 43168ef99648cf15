package access_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"finsurvey/entity"
	"finsurvey/impl/access"
	"finsurvey/internal/cache"
	"finsurvey/lib/secure"
	"finsurvey/lib/validate"
)

var _ = Describe("Service", func() {
	var (
		ctx    context.Context
		now    time.Time
		repo   *memRepo
		mailer *mockMailer
		hasher secure.Hasher
		conf   access.Config
		svc    *access.Service
	)

	form := func(email string) *entity.AccessRequestForm {
		return &entity.AccessRequestForm{Name: "Asha", Email: email, Reason: "quarterly report"}
	}

	build := func() {
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		svc = access.New(repo, mailer, cache.NewMemory(), hasher, conf, log).
			WithClock(func() time.Time { return now })
	}

	tokenFrom := func(link string) string {
		rest := strings.TrimPrefix(link, "http://localhost:5000/api/admin/decision/")
		return strings.SplitN(rest, "?", 2)[0]
	}

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)
		repo = newMemRepo()
		mailer = newMockMailer()
		hasher = secure.NewHasher("pepper")
		conf = access.Config{
			Recipients: []string{"admin1@x.com", "admin2@x.com"},
			BaseUrl:    "http://localhost:5000",
			TokenTTL:   10 * time.Minute,
			RateWindow: 15 * time.Minute,
			RateMax:    3,
		}
		build()
	})

	Describe("SubmitRequest", func() {
		It("stores a pending request and mails every admin", func() {
			request, err := svc.SubmitRequest(ctx, form("a@x.com"))
			Expect(err).NotTo(HaveOccurred())
			Expect(request.Status).To(Equal(entity.StatusPending))
			Expect(request.ApprovalToken).To(MatchRegexp(`^[0-9a-f]{48}$`))
			Expect(request.DecidedAt).To(BeNil())

			Expect(mailer.requests).To(HaveLen(2))
			Expect(mailer.requests[0].to).To(Equal("admin1@x.com"))
			Expect(mailer.requests[1].to).To(Equal("admin2@x.com"))
			Expect(mailer.requests[0].approveUrl).To(Equal(
				"http://localhost:5000/api/admin/decision/" + request.ApprovalToken + "?action=approve"))
			Expect(mailer.requests[0].denyUrl).To(Equal(
				"http://localhost:5000/api/admin/decision/" + request.ApprovalToken + "?action=deny"))

			stored, _ := repo.GetAccessRequest(ctx, request.ApprovalToken)
			Expect(stored).NotTo(BeNil())
			Expect(stored.Email).To(Equal("a@x.com"))
		})

		It("generates a unique approval token per request", func() {
			conf.RateMax = 1000
			build()
			seen := map[string]bool{}
			for i := 0; i < 200; i++ {
				request, err := svc.SubmitRequest(ctx, form(fmt.Sprintf("user%d@x.com", i)))
				Expect(err).NotTo(HaveOccurred())
				Expect(seen).NotTo(HaveKey(request.ApprovalToken))
				seen[request.ApprovalToken] = true
			}
		})

		It("retries when the token collides", func() {
			repo.createErr = []error{access.ErrDuplicateToken}
			_, err := svc.SubmitRequest(ctx, form("a@x.com"))
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.requests).To(HaveLen(1))
		})

		It("rejects incomplete forms", func() {
			_, err := svc.SubmitRequest(ctx, &entity.AccessRequestForm{Email: "a@x.com"})
			Expect(validate.IsValidation(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("name required"))
			Expect(err.Error()).To(ContainSubstring("reason required"))
			Expect(repo.requests).To(BeEmpty())
		})

		It("fails without admin recipients", func() {
			conf.Recipients = nil
			build()
			_, err := svc.SubmitRequest(ctx, form("a@x.com"))
			Expect(err).To(MatchError(access.ErrNoRecipients))
		})

		It("rate limits the fourth request inside the window", func() {
			for i := 0; i < 3; i++ {
				now = now.Add(time.Minute)
				_, err := svc.SubmitRequest(ctx, form("a@x.com"))
				Expect(err).NotTo(HaveOccurred())
			}

			_, err := svc.SubmitRequest(ctx, form("a@x.com"))
			var rl *access.RateLimitError
			Expect(errors.As(err, &rl)).To(BeTrue())
			Expect(rl.RetryAfter).To(BeNumerically(">", 0))
			Expect(rl.RetryAfter).To(BeNumerically("<=", 15*time.Minute))

			_, err = svc.SubmitRequest(ctx, form("b@x.com"))
			Expect(err).NotTo(HaveOccurred())

			now = now.Add(15 * time.Minute)
			_, err = svc.SubmitRequest(ctx, form("a@x.com"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("treats email case-insensitively for rate limiting", func() {
			conf.RateMax = 1
			build()
			_, err := svc.SubmitRequest(ctx, form("A@X.com"))
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.SubmitRequest(ctx, form("a@x.com"))
			Expect(err).To(BeAssignableToTypeOf(&access.RateLimitError{}))
		})

		It("keeps the request when admin mail fails", func() {
			mailer.requestErr = errors.New("smtp down")
			request, err := svc.SubmitRequest(ctx, form("a@x.com"))
			Expect(err).To(MatchError(ContainSubstring("smtp down")))
			Expect(request).NotTo(BeNil())
			Expect(repo.requests).To(HaveKey(request.ApprovalToken))
		})

		It("pushes the request to the extra admin channel", func() {
			notifier := &mockNotifier{}
			svc.SetAdminNotifier(notifier)
			_, err := svc.SubmitRequest(ctx, form("a@x.com"))
			Expect(err).NotTo(HaveOccurred())
			Expect(notifier.notified).To(HaveLen(1))
		})
	})

	Describe("Decide", func() {
		var token string

		BeforeEach(func() {
			request, err := svc.SubmitRequest(ctx, form("a@x.com"))
			Expect(err).NotTo(HaveOccurred())
			token = request.ApprovalToken
			Expect(tokenFrom(mailer.requests[0].approveUrl)).To(Equal(token))
		})

		It("fails for an unknown token", func() {
			_, err := svc.Decide(ctx, "deadbeef", "approve")
			Expect(err).To(MatchError(access.ErrNotFound))
		})

		It("rejects unknown actions", func() {
			_, err := svc.Decide(ctx, token, "maybe")
			Expect(err).To(MatchError(access.ErrInvalidAction))
			stored, _ := repo.GetAccessRequest(ctx, token)
			Expect(stored.Status).To(Equal(entity.StatusPending))
		})

		It("approves and issues a hashed access code", func() {
			decision, err := svc.Decide(ctx, token, "APPROVE")
			Expect(err).NotTo(HaveOccurred())
			Expect(decision.Request.Status).To(Equal(entity.StatusApproved))
			Expect(*decision.ExpiresAt).To(Equal(now.Add(10 * time.Minute)))

			code := mailer.approved["a@x.com"]
			Expect(code).To(MatchRegexp(`^[0-9a-f]{18}$`))
			Expect(repo.tokens).To(HaveLen(1))
			Expect(repo.tokens[0].TokenHash).To(Equal(hasher.Hash(code)))
			Expect(repo.tokens[0].TokenHash).NotTo(ContainSubstring(code))
			Expect(repo.tokens[0].Email).To(Equal("a@x.com"))
		})

		It("denies and notifies the requester", func() {
			decision, err := svc.Decide(ctx, token, "deny")
			Expect(err).NotTo(HaveOccurred())
			Expect(decision.Request.Status).To(Equal(entity.StatusDenied))
			Expect(mailer.denied).To(ConsistOf("a@x.com"))
			Expect(repo.tokens).To(BeEmpty())
		})

		It("decides only once and keeps the first decision time", func() {
			_, err := svc.Decide(ctx, token, "approve")
			Expect(err).NotTo(HaveOccurred())
			first, _ := repo.GetAccessRequest(ctx, token)
			decidedAt := *first.DecidedAt

			now = now.Add(time.Hour)
			_, err = svc.Decide(ctx, token, "deny")
			var already *access.AlreadyDecidedError
			Expect(errors.As(err, &already)).To(BeTrue())
			Expect(already.Status).To(Equal(entity.StatusApproved))

			second, _ := repo.GetAccessRequest(ctx, token)
			Expect(second.Status).To(Equal(entity.StatusApproved))
			Expect(*second.DecidedAt).To(Equal(decidedAt))
			Expect(mailer.denied).To(BeEmpty())
		})

		It("lets exactly one of concurrent decisions win", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			wins := 0
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					action := "approve"
					if i%2 == 1 {
						action = "deny"
					}
					_, err := svc.Decide(ctx, token, action)
					if err == nil {
						mu.Lock()
						wins++
						mu.Unlock()
						return
					}
					Expect(err).To(BeAssignableToTypeOf(&access.AlreadyDecidedError{}))
				}(i)
			}
			wg.Wait()
			Expect(wins).To(Equal(1))
		})

		It("keeps the decision when the requester email fails", func() {
			mailer.approvedErr = errors.New("smtp down")
			decision, err := svc.Decide(ctx, token, "approve")
			Expect(err).To(MatchError(access.ErrNotify))
			Expect(decision).NotTo(BeNil())
			stored, _ := repo.GetAccessRequest(ctx, token)
			Expect(stored.Status).To(Equal(entity.StatusApproved))
			Expect(repo.tokens).To(HaveLen(1))
		})
	})

	Describe("Pending", func() {
		It("lists only undecided requests, oldest first", func() {
			first, err := svc.SubmitRequest(ctx, form("a@x.com"))
			Expect(err).NotTo(HaveOccurred())
			now = now.Add(time.Minute)
			second, err := svc.SubmitRequest(ctx, form("b@x.com"))
			Expect(err).NotTo(HaveOccurred())
			now = now.Add(time.Minute)
			third, err := svc.SubmitRequest(ctx, form("c@x.com"))
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Decide(ctx, second.ApprovalToken, "deny")
			Expect(err).NotTo(HaveOccurred())

			pending, err := svc.Pending(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(HaveLen(2))
			Expect(pending[0].ID).To(Equal(first.ID))
			Expect(pending[1].ID).To(Equal(third.ID))
		})
	})
})
