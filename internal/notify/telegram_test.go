package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/go-cmp/cmp"

	"feedshelf/internal/model"
)

type sentMsg struct {
	ChatID int64
	Text   string
}

type mockAPI struct {
	sent   []sentMsg
	failAt int
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m.failAt > 0 && len(m.sent)+1 == m.failAt {
		return tgbotapi.Message{}, errors.New("bad request: chat not found")
	}
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.sent = append(m.sent, sentMsg{ChatID: msg.ChatID, Text: msg.Text})
	}
	return tgbotapi.Message{}, nil
}

func newTestTelegram(api telegramAPI) *Telegram {
	return &Telegram{
		api:    api,
		chatID: 100,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func label(id string) string { return "label-" + id }

func TestPush(t *testing.T) {
	api := &mockAPI{}
	tg := newTestTelegram(api)

	entries := []model.Entry{
		{SourceID: "hn", Title: "First", Link: "https://hn/1"},
		{SourceID: "lwn", Title: "Second", Summary: "Kernel news", Link: "https://lwn/2"},
	}

	n, err := tg.Push(context.Background(), entries, label)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if diff := cmp.Diff(2, n); diff != "" {
		t.Errorf("sent count mismatch (-want +got):\n%s", diff)
	}

	want := []sentMsg{
		{ChatID: 100, Text: "[label-hn]\n\nFirst\n\nhttps://hn/1"},
		{ChatID: 100, Text: "[label-lwn]\n\nSecond\n\nKernel news\n\nhttps://lwn/2"},
	}
	if diff := cmp.Diff(want, api.sent); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestPushCancelDuringPause(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := &mockAPI{}
	tg := newTestTelegram(api)
	tg.pause = time.Hour
	time.AfterFunc(20*time.Millisecond, cancel)

	entries := []model.Entry{{Title: "a"}, {Title: "b"}}
	start := time.Now()
	n, err := tg.Push(ctx, entries, label)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("push waited %v after cancel", elapsed)
	}
	if diff := cmp.Diff(1, n); diff != "" {
		t.Errorf("sent count mismatch (-want +got):\n%s", diff)
	}
}

func TestPushStopsAtFirstFailure(t *testing.T) {
	api := &mockAPI{failAt: 2}
	tg := newTestTelegram(api)

	entries := []model.Entry{{Title: "a"}, {Title: "b"}, {Title: "c"}}
	n, err := tg.Push(context.Background(), entries, label)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if diff := cmp.Diff(1, n); diff != "" {
		t.Errorf("sent count mismatch (-want +got):\n%s", diff)
	}
}

func TestPushHonoursCancelledContext(t *testing.T) {
	api := &mockAPI{}
	tg := newTestTelegram(api)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := tg.Push(ctx, []model.Entry{{Title: "a"}}, label)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n != 0 || len(api.sent) != 0 {
		t.Errorf("expected nothing sent, got %d", len(api.sent))
	}
}

func TestFormatMessageShortensSummary(t *testing.T) {
	e := model.Entry{Title: "T", Summary: strings.Repeat("ж", 300)}

	got := FormatMessage("src", &e)

	want := "[src]\n\nT\n\n" + strings.Repeat("ж", 280) + "…"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FormatMessage() mismatch (-want +got):\n%s", diff)
	}
}
