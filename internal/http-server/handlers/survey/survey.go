package survey

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"finsurvey/entity"
	"finsurvey/impl/analytics"
	"finsurvey/impl/export"
	"finsurvey/internal/http-server/handlers/errors"
	"finsurvey/lib/api/response"
	"finsurvey/lib/sl"
)

type Core interface {
	SubmitSurvey(ctx context.Context, survey *entity.Survey, ip, userAgent string) (*entity.Survey, error)
	ListSurveys(ctx context.Context, page, limit int) (*entity.Page, error)
	SurveyStats(ctx context.Context) (*analytics.Stats, error)
	ExportSurveys(ctx context.Context) (*export.File, error)
}

type submitted struct {
	ID string `json:"id"`
}

func Submit(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.survey")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("survey service not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Survey service not available"))
			return
		}

		var survey entity.Survey
		if err := render.Bind(r, &survey); err != nil {
			logger.Warn("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(sl.Email(survey.Email))

		saved, err := handler.SubmitSurvey(r.Context(), &survey, clientIP(r), r.UserAgent())
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}
		logger.With(slog.String("id", saved.ID)).Debug("survey saved")

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Message("Survey submitted successfully", submitted{ID: saved.ID}))
	}
}

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.survey")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("survey service not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Survey service not available"))
			return
		}

		page := queryInt(r, "page")
		limit := queryInt(r, "limit")
		result, err := handler.ListSurveys(r.Context(), page, limit)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}

		render.JSON(w, r, response.Ok(result))
	}
}

func Stats(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.survey"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("survey service not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Survey service not available"))
			return
		}

		stats, err := handler.SurveyStats(r.Context())
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}

		render.JSON(w, r, response.Ok(stats))
	}
}

// Export streams the workbook as an attachment instead of the JSON envelope.
func Export(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.survey"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("export service not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Export service not available"))
			return
		}

		file, err := handler.ExportSurveys(r.Context())
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}
		logger.With(
			slog.String("file", file.Name),
			slog.Int("size", len(file.Data)),
		).Info("surveys exported")

		w.Header().Set("Content-Type", export.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
		w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
		w.WriteHeader(http.StatusOK)
		if _, err = w.Write(file.Data); err != nil {
			logger.Error("write export", sl.Err(err))
		}
	}
}

// queryInt returns 0 for a missing or malformed value; the service applies defaults
func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}

// clientIP expects middleware.RealIP to have resolved proxy headers
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
