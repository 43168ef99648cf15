package errors_test

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"finsurvey/entity"
	"finsurvey/impl/access"
	"finsurvey/impl/auth"
	"finsurvey/impl/otp"
	herr "finsurvey/internal/http-server/handlers/errors"
	"finsurvey/lib/api/response"
	"finsurvey/lib/validate"
)

var _ = Describe("Classify", func() {
	DescribeTable("maps service errors",
		func(err error, status int, message string) {
			code, msg := herr.Classify(err)
			Expect(code).To(Equal(status))
			Expect(msg).To(Equal(message))
		},
		Entry("validation", validate.Invalid("email email", "name required"), 400, "email email; name required"),
		Entry("missing otp", otp.ErrNotFound, 400, "OTP not found or expired"),
		Entry("wrong otp", otp.ErrInvalid, 400, "Invalid OTP"),
		Entry("otp rate limit", &otp.RateLimitError{RetryAfter: 61 * time.Second}, 429, "Too many requests. Please wait 2 minutes."),
		Entry("access rate limit", &access.RateLimitError{RetryAfter: 10 * time.Minute}, 429, "Too many requests. Please wait 10 minutes."),
		Entry("already decided", &access.AlreadyDecidedError{Status: entity.StatusApproved}, 200, "Request already approved."),
		Entry("invalid action", access.ErrInvalidAction, 400, "Invalid action"),
		Entry("not found", access.ErrNotFound, 404, "Request not found"),
		Entry("forbidden", fmt.Errorf("guard: %w", auth.ErrForbidden), 403, "Access restricted"),
		Entry("unconfigured", access.ErrNoRecipients, 500, "Admin email is not configured"),
		Entry("unexpected", stderrors.New("boom"), 500, "Internal server error"),
	)
})

var _ = Describe("Render", func() {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	decode := func(rec *httptest.ResponseRecorder) response.Response {
		var resp response.Response
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		return resp
	}

	AfterEach(func() {
		response.SetVerbose(false)
	})

	It("sets Retry-After in seconds", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		herr.Render(rec, req, log, &otp.RateLimitError{RetryAfter: 90 * time.Second})
		Expect(rec.Code).To(Equal(http.StatusTooManyRequests))
		Expect(rec.Header().Get("Retry-After")).To(Equal("90"))
		Expect(decode(rec).Success).To(BeFalse())
	})

	It("hides internal details unless verbose", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		herr.Render(rec, req, log, stderrors.New("mongo down"))
		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(decode(rec).Error).To(BeEmpty())

		response.SetVerbose(true)
		rec = httptest.NewRecorder()
		herr.Render(rec, req, log, stderrors.New("mongo down"))
		Expect(decode(rec).Error).To(Equal("mongo down"))
	})
})
