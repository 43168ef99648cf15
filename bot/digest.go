package bot

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

const maxTelegramMessageLen = 4096

type DigestEntry struct {
	Message   string
	Level     slog.Level
	Timestamp time.Time
}

type DigestBuffer struct {
	mu       sync.Mutex
	entries  map[int64][]DigestEntry
	interval time.Duration
	send     func(chatId int64, text string)
	stopCh   chan struct{}
	done     chan struct{}
	running  bool
}

func NewDigestBuffer(bot *TgBot, interval time.Duration) *DigestBuffer {
	return newDigestBuffer(bot.plainResponse, interval)
}

func newDigestBuffer(send func(chatId int64, text string), interval time.Duration) *DigestBuffer {
	return &DigestBuffer{
		entries:  make(map[int64][]DigestEntry),
		interval: interval,
		send:     send,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (d *DigestBuffer) Add(chatId int64, msg string, level slog.Level) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[chatId] = append(d.entries[chatId], DigestEntry{
		Message:   msg,
		Level:     level,
		Timestamp: time.Now(),
	})
}

func (d *DigestBuffer) StartTicker() {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	go func() {
		defer close(d.done)
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d.Flush()
			case <-d.stopCh:
				d.Flush() // final flush
				return
			}
		}
	}()
}

func (d *DigestBuffer) Flush() {
	d.mu.Lock()
	snapshot := d.entries
	d.entries = make(map[int64][]DigestEntry)
	d.mu.Unlock()

	for chatId, entries := range snapshot {
		if len(entries) == 0 {
			continue
		}
		for _, part := range splitMessage(formatDigest(entries), maxTelegramMessageLen) {
			d.send(chatId, part)
		}
	}
}

// Stop flushes what is left; without a running ticker it only flushes.
func (d *DigestBuffer) Stop() {
	d.mu.Lock()
	running := d.running
	d.running = false
	d.mu.Unlock()

	if !running {
		d.Flush()
		return
	}
	close(d.stopCh)
	<-d.done
}

// formatDigest groups entries by level, most severe first. Messages are
// already MarkdownV2 formatted by the log handler.
func formatDigest(entries []DigestEntry) string {
	grouped := make(map[slog.Level][]DigestEntry)
	for _, e := range entries {
		grouped[e.Level] = append(grouped[e.Level], e)
	}
	levels := make([]slog.Level, 0, len(grouped))
	for level := range grouped {
		levels = append(levels, level)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] > levels[j] })

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*Digest* \\(%d messages\\)\n\n", len(entries)))

	for _, level := range levels {
		levelEntries := grouped[level]
		sb.WriteString(fmt.Sprintf("*%s* \\(%d\\):\n", level.String(), len(levelEntries)))
		for _, e := range levelEntries {
			sb.WriteString(fmt.Sprintf("  `%s` %s\n", e.Timestamp.Format("15:04"), e.Message))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
