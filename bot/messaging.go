package bot

import (
	"log/slog"
)

func (t *TgBot) SendMessage(msg string) {
	t.SendMessageWithLevel(msg, t.minLogLevel)
}

// SendMessageWithLevel forwards a log message to the admins. Errors go out
// immediately; lower levels are collected into the periodic digest.
func (t *TgBot) SendMessageWithLevel(msg string, level slog.Level) {
	if level >= slog.LevelError || t.digest == nil {
		t.notifyAdmins(msg)
		return
	}
	for _, id := range t.adminIds {
		t.digest.Add(id, msg, level)
	}
}
