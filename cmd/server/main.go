package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"finsurvey/bot"
	"finsurvey/impl/access"
	"finsurvey/impl/analytics"
	"finsurvey/impl/auth"
	"finsurvey/impl/core"
	"finsurvey/impl/export"
	"finsurvey/impl/otp"
	"finsurvey/impl/survey"
	"finsurvey/internal/cache"
	"finsurvey/internal/config"
	"finsurvey/internal/database"
	"finsurvey/internal/http-server/api"
	"finsurvey/internal/mailer"
	"finsurvey/lib/api/response"
	"finsurvey/lib/clock"
	"finsurvey/lib/logger"
	"finsurvey/lib/secure"
	"finsurvey/lib/sl"
)

const sweepInterval = time.Minute

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	envPath := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	// values already present in the environment win over the file
	_ = godotenv.Load(*envPath)

	conf := config.MustLoad(*configPath)
	log := logger.SetupLogger(conf.Env, *logPath)
	log.Info("starting finsurvey", slog.String("config", *configPath), slog.String("env", conf.Env))

	response.SetVerbose(!logger.IsProd(conf.Env))
	loc := clock.LoadLocation(conf.Location)

	var tg *bot.TgBot
	if conf.Telegram.Enabled {
		var err error
		tg, err = bot.NewTgBot(conf.Telegram.ApiKey, log, bot.BotConfig{AdminIds: conf.Telegram.AdminIds})
		if err != nil {
			log.Error("telegram bot", sl.Err(err))
		} else {
			log = slog.New(logger.NewTelegramHandler(log.Handler(), tg, logger.ParseLevel(conf.Telegram.LogLevel)))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	mongo, err := database.NewMongoClient(ctx, conf)
	if err != nil {
		cancel()
		log.Error("mongo client", sl.Err(err))
		os.Exit(1)
	}
	if err = mongo.EnsureIndexes(ctx); err != nil {
		log.Warn("mongo indexes", sl.Err(err))
	}
	cancel()

	store := newStore(conf, log)

	mail := mailer.New(conf.Smtp, log)
	hasher := secure.NewHasher(conf.Admin.Pepper)

	otpService := otp.New(store, mail, otp.Config{
		TTL:         conf.Otp.TTL,
		VerifiedTTL: conf.Otp.VerifiedTTL,
		RateWindow:  conf.Otp.RateWindow,
		RateMax:     conf.Otp.RateMax,
	}, log)

	accessService := access.New(mongo, mail, store, hasher, access.Config{
		Recipients: conf.Admin.Recipients,
		BaseUrl:    conf.Access.BaseUrl,
		TokenTTL:   conf.Admin.TokenTTL,
		RateWindow: conf.Access.RateWindow,
		RateMax:    conf.Access.RateMax,
	}, log)
	if len(conf.Admin.Recipients) == 0 {
		log.Warn("no admin recipients configured; access requests will fail")
	}

	authService := auth.New(log,
		auth.StaticKeys(conf.Admin.Keys),
		auth.AccessTokens(mongo, hasher, clock.System),
	)

	surveyService := survey.New(mongo, otpService, survey.Config{
		RequireVerifiedEmail: conf.Survey.RequireVerifiedEmail,
		MaxPageSize:          conf.Survey.MaxPageSize,
	}, log)

	handler := core.New(log)
	handler.SetAuthService(authService)
	handler.SetSurveyService(surveyService)
	handler.SetAnalyticsService(analytics.New(mongo, loc))
	handler.SetExportService(export.New(mongo, loc))
	handler.SetOTPService(otpService)
	handler.SetAccessService(accessService)

	if tg != nil {
		tg.SetCore(handler)
		accessService.SetAdminNotifier(tg)
		go func() {
			if err := tg.Start(); err != nil {
				log.Error("telegram bot", sl.Err(err))
			}
		}()
	}

	go shutdown(log, tg, store, mongo)

	if err = api.New(conf, log, handler); err != nil {
		log.Error("server", sl.Err(err))
		os.Exit(1)
	}
}

// newStore picks Redis when enabled so OTPs and rate windows survive
// restarts and are shared between instances.
func newStore(conf *config.Config, log *slog.Logger) cache.Store {
	if conf.Redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		store, err := cache.NewRedis(ctx, conf.Redis.Url, conf.Redis.Prefix)
		if err == nil {
			log.Info("using redis store")
			return store
		}
		log.Error("redis unavailable, falling back to memory store", sl.Err(err))
	}

	memory := cache.NewMemory()
	window := max(conf.Otp.RateWindow, conf.Access.RateWindow)
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			memory.Sweep(window)
		}
	}()
	return memory
}

func shutdown(log *slog.Logger, tg *bot.TgBot, store cache.Store, mongo *database.MongoDB) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	log.Info("shutting down", slog.String("signal", sig.String()))

	if tg != nil {
		tg.Stop()
	}
	if err := store.Close(); err != nil {
		log.Warn("closing store", sl.Err(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := mongo.Close(ctx); err != nil {
		log.Warn("closing mongo", sl.Err(err))
	}
	cancel()
	os.Exit(0)
}
