package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"feedshelf/internal/command"
	"feedshelf/internal/config"
	"feedshelf/internal/fetcher"
	"feedshelf/internal/filter"
	"feedshelf/internal/notify"
	"feedshelf/internal/render"
	"feedshelf/internal/scheduler"
	"feedshelf/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run executes one command and returns the process exit code. State is saved
// only when the command succeeds.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	inv, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	if err := execute(ctx, inv, stdout, stderr); err != nil {
		_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func execute(ctx context.Context, inv *invocation, stdout, stderr io.Writer) error {
	cfg, err := config.Load(inv.configPath)
	if err != nil {
		return err
	}
	log := newLogger(stderr, cfg.LogLevel)

	rules, err := filter.Compile(inv.filters)
	if err != nil {
		return err
	}
	limit := inv.limit
	if limit <= 0 {
		limit = cfg.DefaultLimit
	}

	if dir := filepath.Dir(cfg.StateFile); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
	}

	backend, err := storage.Open(ctx, cfg.StateFile, log)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	st, err := backend.Load(ctx)
	if err != nil {
		return err
	}

	f := fetcher.New(&http.Client{}, cfg.FetchTimeout)
	sched := scheduler.New(f, scheduler.Config{
		RefreshAge:  cfg.RefreshAge,
		MaxHistory:  cfg.MaxHistory,
		Concurrency: cfg.Concurrency,
	}, log)

	deps := command.Deps{
		Store:     st,
		Scheduler: sched,
		Printer:   render.NewPrinter(stdout, stderr, cfg.NewLineBetweenItems),
		Log:       log,
		StateFile: cfg.StateFile,
	}
	// The bot client talks to Telegram on creation, so only build it when needed.
	if inv.name == "push" && cfg.Telegram.Enabled() {
		tg, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, log)
		if err != nil {
			return err
		}
		deps.Pusher = tg
	}
	r := command.New(deps)

	if err := dispatch(ctx, r, inv, limit, rules); err != nil {
		return err
	}

	if err := backend.Save(ctx, st); err != nil {
		return err
	}
	log.Debug("state saved", "path", cfg.StateFile, "sources", len(st.Sources), "entries", len(st.Entries))
	return nil
}

func dispatch(ctx context.Context, r *command.Runner, inv *invocation, limit int, rules *filter.Rules) error {
	switch inv.name {
	case "":
		return r.Show(ctx, "", limit, rules)
	case "feed":
		return r.Show(ctx, inv.key(), limit, rules)
	case "sub":
		return r.Subscribe(inv.key(), inv.alias)
	case "unsub":
		return r.Unsubscribe(inv.key())
	case "list":
		r.List()
		return nil
	case "refresh":
		return r.Refresh(ctx, inv.args, inv.force)
	case "rename":
		return r.Rename(inv.key(), inv.alias)
	case "import":
		return r.Import(inv.key())
	case "export":
		return r.Export(inv.output)
	case "push":
		return r.Push(ctx, inv.key(), limit)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, inv.name)
	}
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
