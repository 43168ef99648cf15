package admin

import (
	"context"
	stderrors "errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"finsurvey/entity"
	"finsurvey/impl/access"
	"finsurvey/internal/http-server/handlers/errors"
	"finsurvey/lib/sl"
)

const (
	textApproved       = "Approved. Access code sent to the requester."
	textDenied         = "Disapproved. Requester notified via email."
	textApprovedUnsent = "Approved, but the access code email could not be sent."
	textDeniedUnsent   = "Disapproved, but the requester could not be notified."
	textInvalid        = "Invalid request"
	textServer         = "Server error"
)

var confirmPage = template.Must(template.New("confirm").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>Access request</title></head>
<body style="font-family: Arial, sans-serif; text-align: center; padding-top: 60px;">
<p>{{.Question}}</p>
<form method="post" action="{{.Target}}">
<button type="submit" style="padding: 10px 24px; font-size: 16px;">{{.Button}}</button>
</form>
</body>
</html>`))

type confirmData struct {
	Question string
	Target   string
	Button   string
}

// Decision handles the approve/deny links from admin emails. With confirm set,
// GET only shows a form and the decision is taken by the POST it submits, so
// link scanners that prefetch GET urls cannot decide a request.
func Decision(log *slog.Logger, handler Core, confirm bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")
		action := r.URL.Query().Get("action")

		logger := log.With(
			sl.Module("http.handlers.admin"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Secret("token", token),
			slog.String("action", action),
		)

		if handler == nil {
			logger.Error("access service not available")
			text(w, http.StatusServiceUnavailable, textServer)
			return
		}
		if token == "" || action == "" {
			logger.Warn("missing token or action")
			text(w, http.StatusBadRequest, textInvalid)
			return
		}

		if confirm && r.Method == http.MethodGet {
			showConfirmation(w, r, logger, action)
			return
		}
		decide(r.Context(), w, logger, handler, token, action)
	}
}

func showConfirmation(w http.ResponseWriter, r *http.Request, log *slog.Logger, action string) {
	status, ok := entity.StatusForAction(action)
	if !ok {
		log.Warn("invalid action")
		text(w, http.StatusBadRequest, "Invalid action")
		return
	}
	data := confirmData{
		Question: "Approve dashboard access for this request?",
		Target:   r.URL.RequestURI(),
		Button:   "Approve",
	}
	if status == entity.StatusDenied {
		data.Question = "Deny dashboard access for this request?"
		data.Button = "Deny"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := confirmPage.Execute(w, data); err != nil {
		log.Error("render confirmation", sl.Err(err))
	}
}

func decide(ctx context.Context, w http.ResponseWriter, log *slog.Logger, handler Core, token, action string) {
	decision, err := handler.DecideAccess(ctx, token, action)
	if err != nil && (decision == nil || !stderrors.Is(err, access.ErrNotify)) {
		status, message := errors.Classify(err)
		if status == http.StatusInternalServerError {
			message = textServer
			log.Error("access decision", sl.Err(err))
		} else {
			log.Warn("access decision", sl.Err(err))
		}
		text(w, status, message)
		return
	}

	denied := decision.Request.Status == entity.StatusDenied
	if err != nil {
		// state is already stored, only the email is missing
		log.Error("access decision notification", sl.Err(err))
		message := textApprovedUnsent
		if denied {
			message = textDeniedUnsent
		}
		text(w, http.StatusInternalServerError, message)
		return
	}
	log.With(sl.Email(decision.Request.Email)).Info("access decided")
	if denied {
		text(w, http.StatusOK, textDenied)
		return
	}
	text(w, http.StatusOK, textApproved)
}

func text(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, message)
}
