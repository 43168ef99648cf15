package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"

	"finsurvey/impl/access"
	"finsurvey/impl/auth"
	"finsurvey/impl/otp"
	"finsurvey/lib/api/response"
	"finsurvey/lib/sl"
	"finsurvey/lib/validate"
)

const (
	MessageRestricted = "Access restricted"
	messageInternal   = "Internal server error"
)

// Classify maps a service error to the status code and client message.
func Classify(err error) (int, string) {
	var (
		otpLimit    *otp.RateLimitError
		accessLimit *access.RateLimitError
		decided     *access.AlreadyDecidedError
	)
	switch {
	case validate.IsValidation(err):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, otp.ErrNotFound):
		return http.StatusBadRequest, "OTP not found or expired"
	case errors.Is(err, otp.ErrInvalid):
		return http.StatusBadRequest, "Invalid OTP"
	case errors.As(err, &otpLimit):
		return http.StatusTooManyRequests, waitMessage(otpLimit.RetryAfter)
	case errors.As(err, &accessLimit):
		return http.StatusTooManyRequests, waitMessage(accessLimit.RetryAfter)
	case errors.As(err, &decided):
		return http.StatusOK, fmt.Sprintf("Request already %s.", decided.Status)
	case errors.Is(err, access.ErrInvalidAction):
		return http.StatusBadRequest, "Invalid action"
	case errors.Is(err, access.ErrNotFound):
		return http.StatusNotFound, "Request not found"
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, MessageRestricted
	case errors.Is(err, access.ErrNoRecipients):
		return http.StatusInternalServerError, "Admin email is not configured"
	}
	return http.StatusInternalServerError, messageInternal
}

// RetryAfter returns the wait carried by a rate limit error, if any.
func RetryAfter(err error) (time.Duration, bool) {
	var (
		otpLimit    *otp.RateLimitError
		accessLimit *access.RateLimitError
	)
	if errors.As(err, &otpLimit) {
		return otpLimit.RetryAfter, true
	}
	if errors.As(err, &accessLimit) {
		return accessLimit.RetryAfter, true
	}
	return 0, false
}

func waitMessage(wait time.Duration) string {
	return fmt.Sprintf("Too many requests. Please wait %d minutes.", minutes(wait))
}

func minutes(wait time.Duration) int {
	m := int(math.Ceil(wait.Minutes()))
	if m < 1 {
		m = 1
	}
	return m
}

func seconds(wait time.Duration) int {
	s := int(math.Ceil(wait.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}

// SetRetryAfter adds the Retry-After header for rate limit errors.
func SetRetryAfter(w http.ResponseWriter, err error) {
	if wait, ok := RetryAfter(err); ok {
		w.Header().Set("Retry-After", strconv.Itoa(seconds(wait)))
	}
}

// Render writes err as a JSON envelope. Server side failures are logged as
// errors, client mistakes as warnings.
func Render(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	RenderWith(w, r, log, err, "")
}

// RenderWith replaces the generic 500 message with fallback when it is set.
func RenderWith(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, fallback string) {
	status, message := Classify(err)
	if status == http.StatusInternalServerError && message == messageInternal && fallback != "" {
		message = fallback
	}
	SetRetryAfter(w, err)
	if status >= http.StatusInternalServerError {
		log.Error(message, sl.Err(err))
	} else {
		log.Warn(message, sl.Err(err))
	}
	render.Status(r, status)
	if status == http.StatusInternalServerError {
		render.JSON(w, r, response.Failure(message, err))
		return
	}
	render.JSON(w, r, response.Error(message))
}
