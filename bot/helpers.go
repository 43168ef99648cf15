package bot

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"finsurvey/entity"
	"finsurvey/impl/analytics"
	"finsurvey/lib/sl"
)

func (t *TgBot) plainResponse(chatId int64, text string) {
	if text == "" {
		t.log.With("id", chatId).Debug("empty message")
		return
	}

	_, err := t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		t.log.With(slog.Int64("id", chatId)).Warn("sending message", sl.Err(err))
		_, err = t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{})
		if err != nil {
			t.log.With(slog.Int64("id", chatId)).Error("sending safe message", sl.Err(err))
		}
	}
}

// sendWithKeyboard sends a message with an inline keyboard attached.
func (t *TgBot) sendWithKeyboard(chatId int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	if text == "" {
		return
	}
	_, err := t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
		ParseMode:   "MarkdownV2",
		ReplyMarkup: keyboard,
	})
	if err != nil {
		t.log.With(slog.Int64("id", chatId)).Warn("sending message with keyboard", sl.Err(err))
		_, err = t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
			ReplyMarkup: keyboard,
		})
		if err != nil {
			t.log.With(slog.Int64("id", chatId)).Error("sending message with keyboard fallback", sl.Err(err))
		}
	}
}

func (t *TgBot) notifyAdmins(msg string) {
	for _, id := range t.adminIds {
		t.plainResponse(id, msg)
	}
}

// Sanitize escapes MarkdownV2 reserved characters.
func Sanitize(input string) string {
	reservedChars := "\\_*[]()~`>#+-=|{}.!"
	var sb strings.Builder
	sb.Grow(len(input))
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			sb.WriteRune('\\')
		}
		sb.WriteRune(char)
	}
	return sb.String()
}

func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			parts = append(parts, text)
			break
		}
		// Try to split at newline
		cutAt := maxLen
		nlIdx := strings.LastIndex(text[:maxLen], "\n")
		if nlIdx > 0 {
			cutAt = nlIdx + 1
		}
		parts = append(parts, text[:cutAt])
		text = text[cutAt:]
	}
	return parts
}

func formatAccessRequest(request *entity.AccessRequest) string {
	return fmt.Sprintf("*Dashboard access request*\nName: %s\nEmail: %s\nReason: %s\nReceived: `%s`",
		Sanitize(request.Name),
		Sanitize(request.Email),
		Sanitize(request.Reason),
		request.CreatedAt.UTC().Format(time.DateTime),
	)
}

func formatMetrics(m analytics.Metrics) string {
	return fmt.Sprintf("*Survey statistics*\nResponses: %d\nToday: %d\nAvg risk scale: %s\nFraud experience: %s%%\nHidden charges: %s%%\nPlatform interest: %s%%",
		m.TotalResponses,
		m.TodayResponses,
		Sanitize(fmt.Sprintf("%.2f", m.AvgRiskScale)),
		Sanitize(fmt.Sprintf("%.1f", m.FraudExperienceRate)),
		Sanitize(fmt.Sprintf("%.1f", m.HiddenChargesRate)),
		Sanitize(fmt.Sprintf("%.1f", m.PlatformInterestRate)),
	)
}
