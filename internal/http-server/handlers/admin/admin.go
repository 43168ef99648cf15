package admin

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"finsurvey/entity"
	"finsurvey/impl/access"
	"finsurvey/internal/http-server/handlers/errors"
	"finsurvey/lib/api/cont"
	"finsurvey/lib/api/response"
	"finsurvey/lib/sl"
)

type Core interface {
	RequestAccess(ctx context.Context, form *entity.AccessRequestForm) (*entity.AccessRequest, error)
	DecideAccess(ctx context.Context, token, action string) (*access.Decision, error)
}

// Verify runs behind the admin guard, so reaching it means the key is valid.
func Verify(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin := cont.GetAdmin(r.Context())
		if admin == nil {
			log.With(
				sl.Module("http.handlers.admin"),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			).Error("admin missing in context")
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, response.Error(errors.MessageRestricted))
			return
		}
		render.JSON(w, r, response.Message("Authorized", admin))
	}
}

func RequestAccess(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.admin")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("access service not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Access requests not available"))
			return
		}

		var form entity.AccessRequestForm
		if err := render.Bind(r, &form); err != nil {
			logger.Warn("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(sl.Email(form.Email))

		request, err := handler.RequestAccess(r.Context(), &form)
		if err != nil {
			if request != nil {
				logger = logger.With(slog.String("id", request.ID))
			}
			errors.RenderWith(w, r, logger, err, "Failed to send access request")
			return
		}
		logger.With(slog.String("id", request.ID)).Info("access requested")

		render.JSON(w, r, response.Message("Access request sent", nil))
	}
}
