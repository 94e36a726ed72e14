// Package notify pushes entries to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"feedshelf/internal/model"
)

const maxSummaryRunes = 280

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends one message per entry to a single chat.
type Telegram struct {
	api    telegramAPI
	chatID int64
	log    *slog.Logger
	pause  time.Duration
}

// NewTelegram connects to the Bot API with token.
func NewTelegram(token string, chatID int64, log *slog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &Telegram{
		api:    api,
		chatID: chatID,
		log:    log,
		// ~20 messages/sec max for Telegram
		pause: 50 * time.Millisecond,
	}, nil
}

// Push sends entries in order and returns how many were delivered. It stops
// at the first failed send.
func (t *Telegram) Push(ctx context.Context, entries []model.Entry, labelFor func(sourceID string) string) (int, error) {
	sent := 0
	for i := range entries {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if sent > 0 && t.pause > 0 {
			select {
			case <-ctx.Done():
				return sent, ctx.Err()
			case <-time.After(t.pause):
			}
		}

		msg := tgbotapi.NewMessage(t.chatID, FormatMessage(labelFor(entries[i].SourceID), &entries[i]))
		msg.DisableWebPagePreview = true
		if _, err := t.api.Send(msg); err != nil {
			return sent, fmt.Errorf("send message: %w", err)
		}
		sent++
	}
	t.log.Info("pushed entries", "chat_id", t.chatID, "count", sent)
	return sent, nil
}

// FormatMessage formats an entry as a Telegram message.
func FormatMessage(label string, e *model.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]\n\n", label)
	b.WriteString(e.Title)
	if summary := shorten(e.Summary, maxSummaryRunes); summary != "" {
		b.WriteString("\n\n")
		b.WriteString(summary)
	}
	if e.Link != "" {
		b.WriteString("\n\n")
		b.WriteString(e.Link)
	}
	return b.String()
}

func shorten(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}
