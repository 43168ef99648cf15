package authenticate

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"finsurvey/entity"
	"finsurvey/impl/auth"
	"finsurvey/internal/http-server/handlers/errors"
	"finsurvey/lib/api/cont"
	"finsurvey/lib/api/response"
	"finsurvey/lib/sl"
)

const HeaderAdminKey = "X-Admin-Key"

type Authenticate interface {
	AuthorizeAdmin(ctx context.Context, credential string) (*entity.Admin, error)
}

// New guards admin routes. Every rejected key gets the same 403 so callers
// cannot tell a missing key from an expired one; store failures are 500.
func New(log *slog.Logger, authorizer Authenticate) func(next http.Handler) http.Handler {
	mod := sl.Module("middleware.authenticate")
	log.With(mod).Info("authenticate middleware initialized")

	return func(next http.Handler) http.Handler {

		fn := func(w http.ResponseWriter, r *http.Request) {
			logger := log.With(
				mod,
				slog.String("path", r.URL.Path),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			credential := strings.TrimSpace(r.Header.Get(HeaderAdminKey))
			if credential == "" {
				logger.With(sl.Err(fmt.Errorf("admin key header not found"))).Warn("access restricted")
				authFailed(w, r)
				return
			}
			logger = logger.With(sl.Secret("key", credential))

			if authorizer == nil {
				logger.Error("authorization not enabled")
				authFailed(w, r)
				return
			}

			admin, err := authorizer.AuthorizeAdmin(r.Context(), credential)
			if stderrors.Is(err, auth.ErrForbidden) {
				logger.With(sl.Err(err)).Warn("access restricted")
				authFailed(w, r)
				return
			}
			if err != nil {
				errors.RenderWith(w, r, logger, err, "Authorization error")
				return
			}
			logger.With(
				slog.String("kind", string(admin.Kind)),
				sl.Email(admin.Email),
			).Debug("admin authorized")

			ctx := cont.PutAdmin(r.Context(), admin)
			next.ServeHTTP(w, r.WithContext(ctx))
		}

		return http.HandlerFunc(fn)
	}
}

func authFailed(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusForbidden)
	render.JSON(w, r, response.Error(errors.MessageRestricted))
}
