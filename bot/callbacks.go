package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"finsurvey/entity"
	"finsurvey/impl/access"
	"finsurvey/lib/sl"
)

// Callback data is limited to 64 bytes: "acc:" + action letter + ":" + 48 hex chars.
const (
	cbDecision = "acc:"
	cbApprove  = cbDecision + "a:"
	cbDeny     = cbDecision + "d:"
)

func buildDecisionButtons(token string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{
			{
				{Text: "Approve ✓", CallbackData: cbApprove + token},
				{Text: "Deny ✗", CallbackData: cbDeny + token},
			},
		},
	}
}

// parseDecision splits callback data into the action and approval token.
func parseDecision(data string) (action, token string, ok bool) {
	switch {
	case strings.HasPrefix(data, cbApprove):
		action, token = entity.ActionApprove, strings.TrimPrefix(data, cbApprove)
	case strings.HasPrefix(data, cbDeny):
		action, token = entity.ActionDeny, strings.TrimPrefix(data, cbDeny)
	default:
		return "", "", false
	}
	return action, token, token != ""
}

// decisionText is the short answer shown to the admin who pressed a button.
func decisionText(decision *access.Decision, err error) string {
	var decided *access.AlreadyDecidedError
	switch {
	case err == nil && decision.Request.Status == entity.StatusApproved:
		return "Approved, access code sent"
	case err == nil:
		return "Denied, requester notified"
	case errors.As(err, &decided):
		return fmt.Sprintf("Request already %s", decided.Status)
	case errors.Is(err, access.ErrNotify) && decision != nil:
		return fmt.Sprintf("Request %s, but the email failed", decision.Request.Status)
	case errors.Is(err, access.ErrNotFound):
		return "Request not found"
	}
	return "Error occurred"
}

func (t *TgBot) onDecisionCallback(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	chatId := cq.From.Id

	if !t.isAdmin(chatId) || t.core == nil {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Not authorized", ShowAlert: true})
		return nil
	}

	action, token, ok := parseDecision(cq.Data)
	if !ok {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Invalid action"})
		return nil
	}

	c, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	decision, err := t.core.DecideAccess(c, token, action)
	answer := decisionText(decision, err)

	log := t.log.With(
		slog.Int64("chat_id", chatId),
		slog.String("action", action),
		sl.Secret("token", token),
	)
	if err != nil {
		log.Warn("telegram decision", sl.Err(err))
	} else {
		log.Info("telegram decision")
	}

	// the buttons are useless once the request is no longer pending
	if msg := cq.Message; msg != nil {
		_, _, _ = t.api.EditMessageReplyMarkup(&tgbotapi.EditMessageReplyMarkupOpts{
			ChatId:      msg.GetChat().Id,
			MessageId:   msg.GetMessageId(),
			ReplyMarkup: tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}},
		})
	}

	_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: answer, ShowAlert: err != nil})
	return nil
}

// NotifyAccessRequest pushes a new request to every admin chat with decision buttons.
func (t *TgBot) NotifyAccessRequest(request *entity.AccessRequest) {
	text := formatAccessRequest(request)
	keyboard := buildDecisionButtons(request.ApprovalToken)
	for _, id := range t.adminIds {
		t.sendWithKeyboard(id, text, keyboard)
	}
}
