package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"finsurvey/lib/sl"
)

const pendingLimit = 10

func (t *TgBot) start(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	if t.isAdmin(chatId) {
		t.plainResponse(chatId, "Admin notifications are active for this chat\\.")
		return nil
	}
	t.plainResponse(chatId, fmt.Sprintf("Your chat id is `%d`\\. Ask the operator to add it to the admin list\\.", chatId))
	return nil
}

func (t *TgBot) help(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	text := "/start \\- show your chat id\n/help \\- this message"
	if t.isAdmin(chatId) {
		text = "/stats \\- survey statistics\n/pending \\- access requests waiting for a decision\n/help \\- this message"
	}
	t.plainResponse(chatId, text)
	return nil
}

func (t *TgBot) stats(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	if !t.isAdmin(chatId) || t.core == nil {
		return nil
	}

	c, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	dashboard, err := t.core.Dashboard(c)
	if err != nil {
		t.reportError(chatId, "/stats", err)
		return nil
	}
	t.plainResponse(chatId, formatMetrics(dashboard.Metrics))
	return nil
}

func (t *TgBot) pending(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	if !t.isAdmin(chatId) || t.core == nil {
		return nil
	}

	c, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	requests, err := t.core.PendingAccessRequests(c, pendingLimit)
	if err != nil {
		t.reportError(chatId, "/pending", err)
		return nil
	}
	if len(requests) == 0 {
		t.plainResponse(chatId, "No pending access requests\\.")
		return nil
	}
	for _, request := range requests {
		t.sendWithKeyboard(chatId, formatAccessRequest(request), buildDecisionButtons(request.ApprovalToken))
	}
	return nil
}

// reportError logs the error and sends a neutral message to the admin.
func (t *TgBot) reportError(chatId int64, command string, err error) {
	t.log.With(
		sl.Module("tgbot.commands"),
	).Error("bot command failed", "command", command, "chat_id", chatId, sl.Err(err))
	t.plainResponse(chatId, "Something went wrong\\. Please try again later\\.")
}
