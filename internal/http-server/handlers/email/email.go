package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"finsurvey/entity"
	"finsurvey/internal/http-server/handlers/errors"
	"finsurvey/lib/api/response"
	"finsurvey/lib/sl"
)

type Core interface {
	SendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) error
}

func Send(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.email")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("otp service not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Email verification not available"))
			return
		}

		var req entity.OTPRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Warn("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(sl.Email(req.Email))

		if err := handler.SendOTP(r.Context(), req.Email); err != nil {
			errors.Render(w, r, logger, err)
			return
		}
		logger.Debug("otp sent")

		render.JSON(w, r, response.Message("OTP sent successfully", nil))
	}
}

func Verify(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.email")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("otp service not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Email verification not available"))
			return
		}

		var req entity.OTPVerification
		if err := render.Bind(r, &req); err != nil {
			logger.Warn("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(sl.Email(req.Email))

		if err := handler.VerifyOTP(r.Context(), req.Email, req.OTP); err != nil {
			errors.Render(w, r, logger, err)
			return
		}
		logger.Debug("email verified")

		render.JSON(w, r, response.Message("Email verified successfully", nil))
	}
}
