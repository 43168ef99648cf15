// Package bot implements the admin Telegram bot.
//
//   - tgbot.go: TgBot struct, lifecycle, admin list
//   - commands.go: /start, /help, /stats, /pending
//   - callbacks.go: approve/deny buttons on access requests
//   - menus.go: command menus for admins and everyone else
//   - messaging.go: log forwarding, errors now and lower levels via digest
//   - digest.go: DigestBuffer for batched log delivery
//   - helpers.go: Sanitize, plainResponse and message formatting
//
// Admins are the chat ids listed in the config; nobody else can trigger a
// decision or see statistics.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/callbackquery"

	"finsurvey/entity"
	"finsurvey/impl/access"
	"finsurvey/impl/analytics"
	"finsurvey/lib/sl"
)

const commandTimeout = 15 * time.Second

type BotConfig struct {
	AdminIds       []int64
	DigestInterval time.Duration
}

// Core is what the bot needs from the application; implemented by impl/core.
type Core interface {
	DecideAccess(ctx context.Context, token, action string) (*access.Decision, error)
	PendingAccessRequests(ctx context.Context, limit int) ([]*entity.AccessRequest, error)
	Dashboard(ctx context.Context) (*analytics.Dashboard, error)
}

type TgBot struct {
	log         *slog.Logger
	api         *tgbotapi.Bot
	core        Core
	adminIds    []int64
	minLogLevel slog.Level
	updater     *ext.Updater
	digest      *DigestBuffer
	config      BotConfig
}

func NewTgBot(apiKey string, log *slog.Logger, cfg BotConfig) (*TgBot, error) {
	if cfg.DigestInterval <= 0 {
		cfg.DigestInterval = time.Hour
	}

	tgBot := &TgBot{
		log:         log.With(sl.Module("tgbot")),
		adminIds:    slices.Clone(cfg.AdminIds),
		minLogLevel: slog.LevelDebug,
		config:      cfg,
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api
	tgBot.digest = NewDigestBuffer(tgBot, cfg.DigestInterval)

	return tgBot, nil
}

func (t *TgBot) SetCore(core Core) {
	t.core = core
}

// Start blocks while polling for updates.
func (t *TgBot) Start() error {
	t.digest.StartTicker()

	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Error("handling update:", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	t.updater = ext.NewUpdater(dispatcher, nil)

	dispatcher.AddHandler(handlers.NewCommand("start", t.start))
	dispatcher.AddHandler(handlers.NewCommand("help", t.help))
	dispatcher.AddHandler(handlers.NewCommand("stats", t.stats))
	dispatcher.AddHandler(handlers.NewCommand("pending", t.pending))

	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbDecision), t.onDecisionCallback))

	t.setDefaultCommands()
	t.setAdminCommands()

	err := t.updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}

	t.updater.Idle()
	return nil
}

func (t *TgBot) Stop() {
	t.digest.Stop()
	if t.updater != nil {
		t.log.Info("stopping telegram bot")
		t.updater.Stop()
	}
}

func (t *TgBot) isAdmin(chatId int64) bool {
	return slices.Contains(t.adminIds, chatId)
}
