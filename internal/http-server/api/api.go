package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"

	"finsurvey/internal/config"
	"finsurvey/internal/http-server/handlers/admin"
	"finsurvey/internal/http-server/handlers/analytics"
	"finsurvey/internal/http-server/handlers/email"
	"finsurvey/internal/http-server/handlers/errors"
	"finsurvey/internal/http-server/handlers/health"
	"finsurvey/internal/http-server/handlers/survey"
	"finsurvey/internal/http-server/middleware/authenticate"
	"finsurvey/internal/http-server/middleware/requestlog"
	"finsurvey/internal/http-server/middleware/timeout"
	"finsurvey/lib/api/response"
	"finsurvey/lib/sl"
)

const requestTimeout = 20 * time.Second

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	survey.Core
	analytics.Core
	email.Core
	admin.Core
}

// NewRouter wires every route; handler may be partially backed, each handler
// reports its own unavailability.
func NewRouter(conf *config.Config, log *slog.Logger, handler Handler) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(middleware.RequestID)
	router.Use(requestlog.New(log))
	router.Use(middleware.Recoverer)
	router.Use(timeout.Timeout(requestTimeout))
	corsOptions := cors.Options{
		AllowedOrigins:   conf.Cors,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", authenticate.HeaderAdminKey},
		ExposedHeaders:   []string{"Content-Disposition", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	// no configured origins: reflect whatever origin the browser sends
	if len(conf.Cors) == 0 {
		corsOptions.AllowOriginFunc = func(_ *http.Request, _ string) bool { return true }
	}
	router.Use(cors.Handler(corsOptions))
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	guard := authenticate.New(log, handler)

	router.Route("/api", func(rootApi chi.Router) {
		if conf.RateLimit.Requests > 0 {
			rootApi.Use(httprate.Limit(
				conf.RateLimit.Requests,
				conf.RateLimit.Window,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(tooManyRequests),
			))
		}

		rootApi.Get("/health", health.Health())

		rootApi.Route("/survey", func(sv chi.Router) {
			sv.Post("/", survey.Submit(log, handler))
			sv.Get("/", survey.List(log, handler))
			sv.Get("/stats", survey.Stats(log, handler))
			sv.With(guard).Get("/export", survey.Export(log, handler))
		})
		rootApi.Route("/analytics", func(an chi.Router) {
			an.Use(guard)
			an.Get("/dashboard", analytics.Dashboard(log, handler))
			an.Get("/section/{section}", analytics.Section(log, handler))
		})
		rootApi.Route("/email", func(em chi.Router) {
			em.Post("/send", email.Send(log, handler))
			em.Post("/verify", email.Verify(log, handler))
		})
		rootApi.Route("/admin", func(ad chi.Router) {
			ad.With(guard).Post("/verify", admin.Verify(log))
			ad.Post("/request-access", admin.RequestAccess(log, handler))
			decision := admin.Decision(log, handler, conf.Access.ConfirmDecisions)
			ad.Get("/decision/{token}", decision)
			ad.Post("/decision/{token}", decision)
		})
	})

	return router
}

func tooManyRequests(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusTooManyRequests)
	render.JSON(w, r, response.Error("Too many requests from this IP, please try again later."))
}

func New(conf *config.Config, log *slog.Logger, handler Handler) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:      NewRouter(conf, log, handler),
		ErrorLog:     httpLog,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIp, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
