package analytics

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"finsurvey/impl/analytics"
	"finsurvey/internal/http-server/handlers/errors"
	"finsurvey/lib/api/response"
	"finsurvey/lib/sl"
)

type Core interface {
	Dashboard(ctx context.Context) (*analytics.Dashboard, error)
	SectionAnalytics(ctx context.Context, section string) (*analytics.SectionData, error)
}

func Dashboard(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.analytics"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("analytics service not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Analytics not available"))
			return
		}

		dashboard, err := handler.Dashboard(r.Context())
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}

		render.JSON(w, r, response.Ok(dashboard))
	}
}

func Section(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		section := chi.URLParam(r, "section")
		logger := log.With(
			sl.Module("http.handlers.analytics"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("section", section),
		)

		if handler == nil {
			logger.Error("analytics service not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Analytics not available"))
			return
		}

		data, err := handler.SectionAnalytics(r.Context(), section)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}

		render.JSON(w, r, response.Ok(data))
	}
}
